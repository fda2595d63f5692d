// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package firewall

import (
	"testing"

	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/hardware/mmio/mmiotest"
)

func expectRegion(f *mmiotest.Script, base uintptr, i int, lo, lox, hi, hix uint32) {
	off := uintptr(i) * 0x10
	f.ExpectWrite32(base+0x10+off, lo)
	f.ExpectWrite32(base+0x14+off, lox)
	f.ExpectWrite32(base+0x90+off, lo)
	f.ExpectWrite32(base+0x94+off, lox)
	f.ExpectWrite32(base+0x18+off, hi)
	f.ExpectWrite32(base+0x1c+off, hix)
	f.ExpectWrite32(base+0x98+off, hi)
	f.ExpectWrite32(base+0x9c+off, hix)
	f.ExpectWrite32(base+0x04, 1<<i | 1<<(i+8))
}

func TestProgramMPU(t *testing.T) {
	f := mmiotest.NewScript(t)
	expectRegion(f, 0xf8020100, 0, 0x80100000, 0, 0xffffffff, 0)
	expectRegion(f, 0xf8020100, 1, 0x80000000, 0x08, 0x7fffffff, 0x09)

	bs := []banks.Bank{{Start: 0x80000000, Size: 0x80000000}, {Start: 0x880000000, Size: 0x100000000}}
	if err := MPU(true).Program(f, bs); err != nil {
		t.Fatal(err)
	}
	f.Done()
}

func TestProgramF2SDRAMNoCarveOut(t *testing.T) {
	f := mmiotest.NewScript(t)
	expectRegion(f, 0xf8020200, 0, 0x80000000, 0, 0xbfffffff, 0)

	if err := F2SDRAM().Program(f, []banks.Bank{{Start: 0x80000000, Size: 0x40000000}}); err != nil {
		t.Fatal(err)
	}
	f.Done()
}

func TestProgramSkipsEmptyBank(t *testing.T) {
	f := mmiotest.NewScript(t)
	expectRegion(f, 0xf8020100, 2, 0x00000000, 0x88, 0xffffffff, 0x88)

	bs := []banks.Bank{{}, {}, {Start: 0x8800000000, Size: 0x100000000}}
	if err := MPU(true).Program(f, bs); err != nil {
		t.Fatal(err)
	}
	f.Done()
}

func TestProgramTooManyBanks(t *testing.T) {
	f := mmiotest.NewScript(t)
	if err := MPU(false).Program(f, make([]banks.Bank, FW_MAX_REGIONS+1)); err == nil {
		t.Fatal("Program accepted more banks than regions")
	}
	f.Done()
}
