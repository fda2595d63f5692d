// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package banks lays the detected DRAM out over the architectural address
// windows and verifies that it is all there.
package banks

import (
	"errors"
	"fmt"

	"github.com/u-root/u-ddr/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

var (
	ErrCapacity  = errors.New("DRAM capacity mismatch")
	ErrSizeCheck = errors.New("SDRAM size check failed")
)

// Window is an architectural DRAM address window.
type Window struct {
	Start   uint64
	MaxSize uint64
}

// Bank is the part of a window populated with DRAM.
type Bank struct {
	Start uint64
	Size  uint64
}

func (b Bank) String() string {
	return fmt.Sprintf("[%#011x-%#011x]", b.Start, b.Start+b.Size-1)
}

// SoC64Windows are the DRAM windows of the 64-bit SoCFPGA parts: 2 GiB
// below 4 GiB, then the rest of the 36 and 40 bit spaces.
var SoC64Windows = []Window{
	{Start: 0x0080000000, MaxSize: 0x0080000000},
	{Start: 0x0880000000, MaxSize: 0x0780000000},
	{Start: 0x8800000000, MaxSize: 0x7800000000},
}

// Partition fills the windows in order until total is placed.
func Partition(windows []Window, total uint64) ([]Bank, error) {
	var banks []Bank
	remaining := total
	for _, w := range windows {
		if remaining == 0 {
			break
		}
		size := remaining
		if size > w.MaxSize {
			size = w.MaxSize
		}
		banks = append(banks, Bank{Start: w.Start, Size: size})
		remaining -= size
	}
	if remaining != 0 {
		return banks, fmt.Errorf("%#x bytes do not fit the DRAM windows, %#x left over: %w",
			total, remaining, ErrCapacity)
	}
	for i, b := range banks {
		log.Debugf("DDR: bank %d %v", i, b)
	}
	return banks, nil
}

// Total sums the bank sizes.
func Total(banks []Bank) uint64 {
	var t uint64
	for _, b := range banks {
		t += b.Size
	}
	return t
}

// CheckCapacity compares the size the device tree declares with the size
// found in hardware and returns the size to use. A declaration of zero
// means none was given.
func CheckCapacity(declared, detected uint64) (uint64, error) {
	switch {
	case declared == 0:
		return detected, nil
	case declared > detected:
		return 0, fmt.Errorf("device tree declares %d MiB but only %d MiB found: %w",
			declared>>20, detected>>20, ErrCapacity)
	case declared < detected:
		log.Warnf("DDR: device tree declares %d MiB, %d MiB found, using %d MiB",
			declared>>20, detected>>20, declared>>20)
	}
	return declared, nil
}
