// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package firewall opens the DDR firewall for the populated DRAM banks.
package firewall

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

const (
	FW_MPU_DDR_SCR_BASE     = 0xf8020100
	FW_F2SDRAM_DDR_SCR_BASE = 0xf8020200
)

const (
	FW_DDR_SCR_EN     = 0x00
	FW_DDR_SCR_EN_SET = 0x04

	FW_MPUREGION0ADDR_BASE        = 0x10
	FW_MPUREGION0ADDR_BASEEXT     = 0x14
	FW_MPUREGION0ADDR_LIMIT       = 0x18
	FW_MPUREGION0ADDR_LIMITEXT    = 0x1c
	FW_NONMPUREGION0ADDR_BASE     = 0x90
	FW_NONMPUREGION0ADDR_BASEEXT  = 0x94
	FW_NONMPUREGION0ADDR_LIMIT    = 0x98
	FW_NONMPUREGION0ADDR_LIMITEXT = 0x9c

	// Region i registers sit at region 0 + i*FW_REGION_STRIDE.
	FW_REGION_STRIDE = 0x10

	// Regions the tables provide per side.
	FW_MAX_REGIONS = 8

	// The secure monitor keeps the bottom of bank 0.
	ATF_CARVE_OUT = 1 << 20
)

// Table is one DDR firewall register block.
type Table struct {
	Name string
	Base uintptr
	// ATFCarveOut keeps the first MiB of bank 0 secure.
	ATFCarveOut bool
}

// MPU returns the CPU side firewall.
func MPU(atf bool) Table {
	return Table{Name: "mpu", Base: FW_MPU_DDR_SCR_BASE, ATFCarveOut: atf}
}

// F2SDRAM returns the FPGA to SDRAM bridge firewall. It never carves out
// the secure monitor.
func F2SDRAM() Table {
	return Table{Name: "f2sdram", Base: FW_F2SDRAM_DDR_SCR_BASE}
}

func (t Table) write(b mmio.Bus, r uintptr, v uint32) {
	b.MustWrite32(t.Base+r, v)
}

func (t Table) region(b mmio.Bus, i int, base, limit uint64) {
	off := uintptr(i) * FW_REGION_STRIDE
	t.write(b, FW_MPUREGION0ADDR_BASE+off, uint32(base))
	t.write(b, FW_MPUREGION0ADDR_BASEEXT+off, uint32(base>>32)&0xff)
	t.write(b, FW_NONMPUREGION0ADDR_BASE+off, uint32(base))
	t.write(b, FW_NONMPUREGION0ADDR_BASEEXT+off, uint32(base>>32)&0xff)

	t.write(b, FW_MPUREGION0ADDR_LIMIT+off, uint32(limit))
	t.write(b, FW_MPUREGION0ADDR_LIMITEXT+off, uint32(limit>>32)&0xff)
	t.write(b, FW_NONMPUREGION0ADDR_LIMIT+off, uint32(limit))
	t.write(b, FW_NONMPUREGION0ADDR_LIMITEXT+off, uint32(limit>>32)&0xff)

	t.write(b, FW_DDR_SCR_EN_SET, 1<<i | 1<<(i+8))
}

// Program opens one MPU and one non-MPU region per populated bank. Empty
// banks keep their region closed.
func (t Table) Program(b mmio.Bus, bs []banks.Bank) error {
	if len(bs) > FW_MAX_REGIONS {
		return fmt.Errorf("%s firewall: %d banks, %d regions", t.Name, len(bs), FW_MAX_REGIONS)
	}
	for i, bank := range bs {
		if bank.Size == 0 {
			continue
		}
		start := bank.Start
		if i == 0 && t.ATFCarveOut {
			start += ATF_CARVE_OUT
		}
		limit := bank.Start + bank.Size - 1
		log.Debugf("DDR: %s firewall region %d %#x-%#x", t.Name, i, start, limit)
		t.region(b, i, start, limit)
	}
	return nil
}
