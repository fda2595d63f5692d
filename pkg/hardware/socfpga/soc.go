// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Library for accessing the SoCFPGA system blocks the DDR bring-up depends
// on: the system manager boot scratch registers and the L4 watchdog.
//
// The scratch registers survive warm and cold resets (the POR bank only
// survives warm/cold, not power-on) and are shared with other boot stages.
// Only touch the bits you own.
//
// Call socfpga.Open() and Close() as the first and last thing before and
// after you want to run any library commands.
package socfpga

import (
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
)

const (
	SYSMGR_BASE uintptr = 0xffd12000
	L4WD0_BASE  uintptr = 0xffd00200
)

type SoC struct {
	mem    mmio.Bus
	sysmgr uintptr
	wdt    uintptr
}

func Open(devmem string) (*SoC, error) {
	mem, err := mmio.OpenDevMem(devmem)
	if err != nil {
		return nil, err
	}
	return OpenWithMemory(mem), nil
}

func OpenWithMemory(mem mmio.Bus) *SoC {
	return &SoC{mem: mem, sysmgr: SYSMGR_BASE, wdt: L4WD0_BASE}
}

// WithBases overrides the block addresses, for SoCs that moved them.
func (s *SoC) WithBases(sysmgr, wdt uintptr) *SoC {
	s.sysmgr = sysmgr
	s.wdt = wdt
	return s
}

func (s *SoC) Mem() mmio.Bus {
	return s.mem
}

func (s *SoC) Close() {
	s.mem.Close()
}
