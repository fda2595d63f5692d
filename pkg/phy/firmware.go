// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Firmware is one training image, as little-endian 16-bit words.
type Firmware struct {
	Name string
	IMEM []uint16
	DMEM []uint16
}

type FirmwareSet struct {
	OneD Firmware
	TwoD Firmware
}

func words(b []byte) ([]uint16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("odd image length %d", len(b))
	}
	w := make([]uint16, len(b)/2)
	for i := range w {
		w[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return w, nil
}

func loadImage(fs afero.Fs, path string) ([]uint16, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	w, err := words(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func loadFirmware(fs afero.Fs, dir, stage string) (Firmware, error) {
	fw := Firmware{Name: stage}
	var err error
	if fw.IMEM, err = loadImage(fs, filepath.Join(dir, "train_imem_"+stage+".bin")); err != nil {
		return fw, err
	}
	if fw.DMEM, err = loadImage(fs, filepath.Join(dir, "train_dmem_"+stage+".bin")); err != nil {
		return fw, err
	}
	return fw, nil
}

// LoadFirmware reads the 1D and 2D training images from dir.
func LoadFirmware(fs afero.Fs, dir string) (*FirmwareSet, error) {
	one, err := loadFirmware(fs, dir, "1d")
	if err != nil {
		return nil, err
	}
	two, err := loadFirmware(fs, dir, "2d")
	if err != nil {
		return nil, err
	}
	return &FirmwareSet{OneD: one, TwoD: two}, nil
}

func (p *Phy) copyVerify(reg uint32, img []uint16) error {
	for i, w := range img {
		p.Write(reg+uint32(i), w)
	}
	for i, w := range img {
		if got := p.Read(reg + uint32(i)); got != w {
			return fmt.Errorf("%v: word %#x at %#x reads %04x, wrote %04x: %w",
				p, i, reg, got, w, ErrFirmwareVerify)
		}
	}
	return nil
}

// LoadImage copies a training image into PHY instruction and data memory
// and reads it back.
func (p *Phy) LoadImage(fw *Firmware) error {
	log.Debugf("%v: loading %s training firmware, IMEM %d words, DMEM %d words",
		p, fw.Name, len(fw.IMEM), len(fw.DMEM))
	var err error
	p.CSRAccess(func() {
		if err = p.copyVerify(IMEM, fw.IMEM); err != nil {
			return
		}
		err = p.copyVerify(DMEM, fw.DMEM)
	})
	return err
}
