// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resetstate classifies the last reset and tracks whether a DDR
// bring-up was interrupted, using bits that persist across resets.
package resetstate

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/hardware/socfpga"
	"github.com/u-root/u-ddr/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

type ResetType int

const (
	POR ResetType = iota
	WARM
	COLD
	NCONFIG
	JTAG_CONFIG
	RSU_RECONFIG
)

func (r ResetType) String() string {
	switch r {
	case POR:
		return "POR"
	case WARM:
		return "WARM"
	case COLD:
		return "COLD"
	case NCONFIG:
		return "NCONFIG"
	case JTAG_CONFIG:
		return "JTAG_CONFIG"
	case RSU_RECONFIG:
		return "RSU_RECONFIG"
	}
	return fmt.Sprintf("ResetType(%d)", int(r))
}

// Layout places each persistent flag in a scratch register. A flag with a
// zero mask does not exist on that SoC generation and always reads false.
type Layout struct {
	ResetType  mmio.Field
	Retention  mmio.Field
	SHAMatch   mmio.Field
	InProgress mmio.Field
	OCRAMDBE   mmio.Field
	DDRDBE     mmio.Field
}

var (
	N5XLayout = Layout{
		ResetType:  mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD0, Mask: 0x3 << 28},
		Retention:  mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD0, Mask: 1 << 31},
		SHAMatch:   mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD0, Mask: 1 << 30},
		InProgress: mmio.Field{Reg: socfpga.BOOT_SCRATCH_POR1, Mask: 1 << 0},
	}

	Agilex5Layout = Layout{
		ResetType:  mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD0, Mask: 0x7 << 27},
		Retention:  mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD0, Mask: 1 << 31},
		SHAMatch:   mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD0, Mask: 1 << 30},
		InProgress: mmio.Field{Reg: socfpga.BOOT_SCRATCH_POR1, Mask: 1 << 0},
		OCRAMDBE:   mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD3, Mask: 1 << 30},
		DDRDBE:     mmio.Field{Reg: socfpga.BOOT_SCRATCH_COLD3, Mask: 1 << 31},
	}
)

// Store is where the persistent flags live.
type Store interface {
	Read(r uintptr) uint32
	Write(r uintptr, v uint32)
}

// ScratchStore keeps the flags in the system manager boot scratch registers.
type ScratchStore struct {
	SoC *socfpga.SoC
}

func (s ScratchStore) Read(r uintptr) uint32 {
	return s.SoC.ReadScratch(r)
}

func (s ScratchStore) Write(r uintptr, v uint32) {
	s.SoC.WriteScratch(r, v)
}

// MemStore is an in-memory Store.
type MemStore map[uintptr]uint32

func (m MemStore) Read(r uintptr) uint32 {
	return m[r]
}

func (m MemStore) Write(r uintptr, v uint32) {
	m[r] = v
}

// GetResetType decodes the reset type from the raw scratch register value.
func GetResetType(reg uint32, l Layout) ResetType {
	return ResetType(l.ResetType.Get(reg))
}

type Tracker struct {
	store  Store
	layout Layout
}

func New(s Store, l Layout) *Tracker {
	return &Tracker{store: s, layout: l}
}

func (t *Tracker) get(f mmio.Field) bool {
	if f.Mask == 0 {
		return false
	}
	return f.Get(t.store.Read(f.Reg)) != 0
}

func (t *Tracker) put(f mmio.Field, on bool) {
	if f.Mask == 0 {
		return
	}
	var x uint32
	if on {
		x = 1
	}
	t.store.Write(f.Reg, f.Put(t.store.Read(f.Reg), x))
}

func (t *Tracker) ResetType() ResetType {
	return GetResetType(t.store.Read(t.layout.ResetType.Reg), t.layout)
}

// IsDDRInit reports whether DRAM has to be initialized. Only a warm reset,
// or a cold reset with retention requested and a matching bitstream, may
// keep the contents.
func (t *Tracker) IsDDRInit() bool {
	switch rt := t.ResetType(); rt {
	case WARM:
		log.Infof("DDR: %v reset, skipping init", rt)
		return false
	case COLD:
		if t.get(t.layout.Retention) && t.get(t.layout.SHAMatch) {
			log.Infof("DDR: %v reset with retention, skipping init", rt)
			return false
		}
	}
	return true
}

// IsInitHang reports whether the previous bring-up never finished.
func (t *Tracker) IsInitHang() bool {
	return t.get(t.layout.InProgress)
}

func (t *Tracker) InProgress(on bool) {
	t.put(t.layout.InProgress, on)
}

func (t *Tracker) OCRAMDBE() bool {
	return t.get(t.layout.OCRAMDBE)
}

func (t *Tracker) DDRDBE() bool {
	return t.get(t.layout.DDRDBE)
}

func (t *Tracker) SetDDRDBE() {
	t.put(t.layout.DDRDBE, true)
}

func (t *Tracker) ClearDBE() {
	t.put(t.layout.DDRDBE, false)
	t.put(t.layout.OCRAMDBE, false)
}

// NeedsFullInit reports whether retained contents are untrustworthy, which
// overrides a retention decision from IsDDRInit.
func (t *Tracker) NeedsFullInit() bool {
	hang, ocram, ddr := t.IsInitHang(), t.OCRAMDBE(), t.DDRDBE()
	if hang {
		log.Infof("DDR: previous init did not complete")
	}
	if ocram || ddr {
		log.Infof("DDR: double-bit error flagged (OCRAM %v, DDR %v)", ocram, ddr)
	}
	return hang || ocram || ddr
}
