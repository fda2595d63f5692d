// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package banks

import (
	"fmt"
	"math/bits"

	"github.com/u-root/u-ddr/pkg/hardware/mmio"
)

const wordSize = 4

// CheckChunk is the largest region probed at once.
const CheckChunk = 1 << 30

// GetRAMSize finds how much of [base, base+maxSize) is backed by distinct
// memory. It writes a pattern at every power of two offset and looks for
// the first one that aliased. Memory contents are restored. maxSize must
// be a power of two.
func GetRAMSize(b mmio.Bus, base uintptr, maxSize uint64) uint64 {
	words := uintptr(maxSize / wordSize)
	var save []uint32

	for cnt := words >> 1; cnt > 0; cnt >>= 1 {
		a := base + cnt*wordSize
		save = append(save, b.MustRead32(a))
		b.MustWrite32(a, ^uint32(cnt))
	}

	saveBase := b.MustRead32(base)
	b.MustWrite32(base, 0)
	if b.MustRead32(base) != 0 {
		b.MustWrite32(base, saveBase)
		for cnt := uintptr(1); cnt < words; cnt <<= 1 {
			b.MustWrite32(base+cnt*wordSize, pop(&save))
		}
		return 0
	}

	for cnt := uintptr(1); cnt < words; cnt <<= 1 {
		a := base + cnt*wordSize
		v := b.MustRead32(a)
		b.MustWrite32(a, pop(&save))
		if v != ^uint32(cnt) {
			size := uint64(cnt * wordSize)
			for cnt <<= 1; cnt < words; cnt <<= 1 {
				b.MustWrite32(base+cnt*wordSize, pop(&save))
			}
			// base aliases base+size and was restored through it.
			return size
		}
	}
	b.MustWrite32(base, saveBase)
	return maxSize
}

func pop(s *[]uint32) uint32 {
	v := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return v
}

// SizeCheck probes every bank in power of two chunks of at most CheckChunk
// bytes. Each chunk must be fully backed and the banks must add up to total.
func SizeCheck(b mmio.Bus, banks []Bank, total uint64) error {
	log.Debugf("DDR: running SDRAM size sanity check")
	var checked uint64
	for i, bank := range banks {
		for off := uint64(0); off < bank.Size; {
			size := bank.Size - off
			if size > CheckChunk {
				size = CheckChunk
			}
			// Uneven tails are probed as descending powers of two.
			size = 1 << (63 - bits.LeadingZeros64(size))
			got := GetRAMSize(b, uintptr(bank.Start+off), size)
			if got != size {
				return fmt.Errorf("bank %d: %#x bytes at %#x, only %#x respond: %w",
					i, size, bank.Start+off, got, ErrSizeCheck)
			}
			off += size
		}
		checked += bank.Size
	}
	if checked != total {
		return fmt.Errorf("banks hold %#x bytes, expected %#x: %w", checked, total, ErrSizeCheck)
	}
	log.Infof("DDR: SDRAM size check passed")
	return nil
}
