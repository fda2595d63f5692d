// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package banks

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/u-root/u-ddr/pkg/hardware/mmio/mmiotest"
	"github.com/u-root/u-root/pkg/dt"
)

func TestPartition(t *testing.T) {
	for _, tt := range []struct {
		total uint64
		want  []Bank
	}{
		{1 << 30, []Bank{{0x80000000, 1 << 30}}},
		{2 << 30, []Bank{{0x80000000, 2 << 30}}},
		{8 << 30, []Bank{{0x80000000, 2 << 30}, {0x880000000, 6 << 30}}},
		{64 << 30, []Bank{{0x80000000, 2 << 30}, {0x880000000, 0x780000000}, {0x8800000000, 0x800000000}}},
	} {
		got, err := Partition(SoC64Windows, tt.total)
		if err != nil {
			t.Errorf("Partition(%#x): %v", tt.total, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Partition(%#x) (-want +got):\n%s", tt.total, diff)
		}
		if Total(got) != tt.total {
			t.Errorf("Total(Partition(%#x)) = %#x", tt.total, Total(got))
		}
	}
}

func TestPartitionTooLarge(t *testing.T) {
	if _, err := Partition(SoC64Windows, 1<<40); !errors.Is(err, ErrCapacity) {
		t.Fatalf("Partition(1 TiB) = %v, want %v", err, ErrCapacity)
	}
}

func TestCheckCapacity(t *testing.T) {
	for _, tt := range []struct {
		declared, detected, want uint64
		err                      error
	}{
		{0, 4 << 30, 4 << 30, nil},
		{4 << 30, 4 << 30, 4 << 30, nil},
		{2 << 30, 4 << 30, 2 << 30, nil},
		{8 << 30, 4 << 30, 0, ErrCapacity},
	} {
		got, err := CheckCapacity(tt.declared, tt.detected)
		if got != tt.want || !errors.Is(err, tt.err) {
			t.Errorf("CheckCapacity(%#x, %#x) = %#x, %v, want %#x, %v",
				tt.declared, tt.detected, got, err, tt.want, tt.err)
		}
	}
}

func u32s(v ...uint32) []byte {
	b := make([]byte, 0, 4*len(v))
	for _, x := range v {
		b = binary.BigEndian.AppendUint32(b, x)
	}
	return b
}

func TestDeclaredSizeFDT(t *testing.T) {
	fdt := &dt.FDT{RootNode: &dt.Node{
		Properties: []dt.Property{
			{Name: "#address-cells", Value: u32s(2)},
			{Name: "#size-cells", Value: u32s(2)},
		},
		Children: []*dt.Node{
			{Name: "chosen"},
			{Name: "memory@80000000", Properties: []dt.Property{
				{Name: "device_type", Value: []byte("memory\x00")},
				{Name: "reg", Value: u32s(0, 0x80000000, 0, 0x80000000, 0x8, 0x80000000, 0x1, 0x80000000)},
			}},
			{Name: "memory@8800000000", Properties: []dt.Property{
				{Name: "reg", Value: u32s(0x88, 0, 0, 0x40000000)},
			}},
			{Name: "sram@0", Properties: []dt.Property{
				{Name: "reg", Value: u32s(0, 0, 0, 0x40000)},
			}},
		},
	}}
	got, err := DeclaredSizeFDT(fdt)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(2<<30 + 6<<30 + 1<<30); got != want {
		t.Errorf("DeclaredSizeFDT() = %#x, want %#x", got, want)
	}
}

func TestDeclaredSizeFDTBadReg(t *testing.T) {
	fdt := &dt.FDT{RootNode: &dt.Node{
		Children: []*dt.Node{
			{Name: "memory", Properties: []dt.Property{{Name: "reg", Value: u32s(0, 0x80000000, 0)}}},
		},
	}}
	got, err := DeclaredSizeFDT(fdt)
	if err != nil {
		t.Fatal(err)
	}
	// Default cells are 2+1, so three words are one entry.
	if got != 0 {
		t.Errorf("DeclaredSizeFDT() = %#x, want 0", got)
	}

	fdt.RootNode.Children[0].Properties[0].Value = u32s(0, 0x80000000, 0, 1)
	if _, err := DeclaredSizeFDT(fdt); err == nil {
		t.Error("DeclaredSizeFDT accepted a truncated reg")
	}
}

func TestDeclaredSizeNotADTB(t *testing.T) {
	if _, err := DeclaredSize(bytes.NewReader([]byte("not a device tree"))); err == nil {
		t.Fatal("DeclaredSize accepted garbage")
	}
}

// dram returns a memory where only size bytes at base are backed; accesses
// above alias back into them.
func dram(base, size uintptr) *mmiotest.Mem {
	m := mmiotest.New()
	m.AliasMask = base | (size - 1)
	return m
}

func TestGetRAMSize(t *testing.T) {
	for _, tt := range []struct {
		backed, probe uint64
	}{
		{1 << 30, 1 << 30},
		{512 << 20, 1 << 30},
		{1 << 20, 1 << 30},
		{64 << 10, 64 << 10},
	} {
		const base = 0x80000000
		m := dram(base, uintptr(tt.backed))
		m.Poke32(base, 0x12345678)
		m.Poke32(base+4, 0xcafef00d)
		m.Poke32(base+uintptr(tt.backed)/2, 0xdeadbeef)

		if got := GetRAMSize(m, base, tt.probe); got != tt.backed {
			t.Errorf("GetRAMSize(backed %#x, probe %#x) = %#x", tt.backed, tt.probe, got)
		}
		for a, want := range map[uintptr]uint32{base: 0x12345678, base + 4: 0xcafef00d, base + uintptr(tt.backed)/2: 0xdeadbeef} {
			if got := m.Peek32(a); got != want {
				t.Errorf("backed %#x: %#x = %#x after probe, want %#x", tt.backed, a, got, want)
			}
		}
	}
}

func TestGetRAMSizeStuckBase(t *testing.T) {
	m := mmiotest.New()
	m.OnRead(0x80000000, func(m *mmiotest.Mem, a uintptr) { m.Poke32(a, 0xffffffff) })
	if got := GetRAMSize(m, 0x80000000, 1<<20); got != 0 {
		t.Errorf("GetRAMSize() = %#x, want 0", got)
	}
}

func TestSizeCheck(t *testing.T) {
	m := mmiotest.New()
	bs := []Bank{{0x80000000, 2 << 30}, {0x880000000, 1 << 30}}
	if err := SizeCheck(m, bs, 3<<30); err != nil {
		t.Fatalf("SizeCheck: %v", err)
	}
}

func TestSizeCheckUnevenBank(t *testing.T) {
	m := mmiotest.New()
	m.Record = true
	bs := []Bank{{0x80000000, 3 << 28}}
	if err := SizeCheck(m, bs, 3<<28); err != nil {
		t.Fatalf("SizeCheck: %v", err)
	}
	// 512 MiB then 256 MiB, each probed from its own base.
	for _, a := range []uintptr{0x80000000, 0xa0000000} {
		if len(m.WritesTo(a)) == 0 {
			t.Errorf("chunk at %#x not probed", a)
		}
	}
}

func TestSizeCheckFails(t *testing.T) {
	for _, tt := range []struct {
		name  string
		mem   *mmiotest.Mem
		banks []Bank
		total uint64
	}{
		{"aliased", dram(0x80000000, 512<<20), []Bank{{0x80000000, 1 << 30}}, 1 << 30},
		{"uneven aliased", dram(0x80000000, 256<<20), []Bank{{0x80000000, 3 << 28}}, 3 << 28},
		{"total", mmiotest.New(), []Bank{{0x80000000, 1 << 30}}, 2 << 30},
	} {
		if err := SizeCheck(tt.mem, tt.banks, tt.total); !errors.Is(err, ErrSizeCheck) {
			t.Errorf("%s: SizeCheck = %v, want %v", tt.name, err, ErrSizeCheck)
		}
	}
}
