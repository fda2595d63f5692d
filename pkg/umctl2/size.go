// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package umctl2

import (
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
)

// Address map fields and the value that marks each as unused.
type addrBit struct {
	f      mmio.Field
	unused uint32
	bits   uint
}

func nibble(r uintptr, pos uint) mmio.Field {
	return mmio.Field{Reg: r, Mask: 0xf << pos}
}

func sixBits(r uintptr, pos uint) mmio.Field {
	return mmio.Field{Reg: r, Mask: 0x3f << pos}
}

var addrMap = []addrBit{
	// Rank
	{mmio.Field{Reg: ADDRMAP0, Mask: 0x1f}, 31, 1},
	// Bank
	{sixBits(ADDRMAP1, 0), 63, 1},
	{sixBits(ADDRMAP1, 8), 63, 1},
	{sixBits(ADDRMAP1, 16), 63, 1},
	// Column b2 to b11
	{nibble(ADDRMAP2, 0), 15, 1},
	{nibble(ADDRMAP2, 8), 15, 1},
	{nibble(ADDRMAP2, 16), 15, 1},
	{nibble(ADDRMAP2, 24), 15, 1},
	{nibble(ADDRMAP3, 0), 15, 1},
	{nibble(ADDRMAP3, 8), 15, 1},
	{nibble(ADDRMAP3, 16), 15, 1},
	{nibble(ADDRMAP3, 24), 15, 1},
	{nibble(ADDRMAP4, 0), 15, 1},
	{nibble(ADDRMAP4, 8), 15, 1},
	// Row b0, b1, b2 to b10, b11
	{nibble(ADDRMAP5, 0), 15, 1},
	{nibble(ADDRMAP5, 8), 15, 1},
	{nibble(ADDRMAP5, 16), 15, 9},
	{nibble(ADDRMAP5, 24), 15, 1},
	// Row b12 to b17
	{nibble(ADDRMAP6, 0), 15, 1},
	{nibble(ADDRMAP6, 8), 15, 1},
	{nibble(ADDRMAP6, 16), 15, 1},
	{nibble(ADDRMAP6, 24), 15, 1},
	{nibble(ADDRMAP7, 0), 15, 1},
	{nibble(ADDRMAP7, 8), 15, 1},
	// Bank group
	{sixBits(ADDRMAP8, 0), 63, 1},
	{sixBits(ADDRMAP8, 8), 63, 1},
}

// Column b0 and b1 are always mapped.
const fixedColumnBits = 2

// Size decodes the DRAM size in bytes from the address map and bus width.
func (c *Controller) Size() uint64 {
	bits := uint(fixedColumnBits)
	for _, a := range addrMap {
		if a.f.Read(c.mem, c.Base) != a.unused {
			bits += a.bits
		}
	}
	width := c.field(MSTR_DATA_BUS_WIDTH)
	return (c.FullBusBytes >> width) << bits
}
