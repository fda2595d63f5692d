// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"github.com/u-root/u-ddr/pkg/umctl2"
)

// Margin is added to every merged timing.
const Margin = 3

// Results are the per-lane maxima of one training stage, in DRAM clocks.
type Results struct {
	ReadGap     uint32
	WriteGap    uint32
	WriteToRead uint32
	ReadToWrite uint32
	WrDataDelay uint32
}

func (p *Phy) laneMax(reg uint32) uint32 {
	max := int8(0)
	for i := 0; i < p.Lanes; i++ {
		if v := int8(p.Read(DMEM + reg + uint32(i))); v > max {
			max = v
		}
	}
	return uint32(max)
}

// ReadResults reads the message block. The CPU must own the PHY memories.
func (p *Phy) ReadResults() Results {
	return Results{
		ReadGap:     p.laneMax(DMEM_CDD_RR),
		WriteGap:    p.laneMax(DMEM_CDD_WW),
		WriteToRead: p.laneMax(DMEM_CDD_WR),
		ReadToWrite: p.laneMax(DMEM_CDD_RW),
		WrDataDelay: p.laneMax(DMEM_TX_DQS_DELAY),
	}
}

func add(cur, delta, max uint32) uint32 {
	v := cur + delta
	if v > max {
		log.Warnf("training result %d exceeds field maximum %d", v, max)
		return max
	}
	return v
}

// MergeResults adds training results on top of the current controller
// timings. Each stage adds again, so 1D and 2D results accumulate.
func MergeResults(c *umctl2.Controller, r Results) error {
	ratio2 := c.FreqRatio2()
	adj := func(v uint32) uint32 {
		if ratio2 {
			v = (v + 1) / 2
		}
		return v + Margin
	}
	return c.Group3(func() {
		rk := c.Read(umctl2.RANKCTL)
		rd := umctl2.RANKCTL_RD_GAP.Get(rk) | umctl2.RANKCTL_RD_GAP_MSB.Get(rk)<<4
		wr := umctl2.RANKCTL_WR_GAP.Get(rk) | umctl2.RANKCTL_WR_GAP_MSB.Get(rk)<<4
		rd = add(rd, adj(r.ReadGap), 0x1f)
		wr = add(wr, adj(r.WriteGap), 0x1f)
		rk = umctl2.RANKCTL_RD_GAP.Put(rk, rd)
		rk = umctl2.RANKCTL_RD_GAP_MSB.Put(rk, rd>>4)
		rk = umctl2.RANKCTL_WR_GAP.Put(rk, wr)
		rk = umctl2.RANKCTL_WR_GAP_MSB.Put(rk, wr>>4)
		c.Write(umctl2.RANKCTL, rk)

		t2 := c.Read(umctl2.DRAMTMG2)
		f := umctl2.DRAMTMG2_WR2RD
		t2 = f.Put(t2, add(f.Get(t2), adj(r.WriteToRead), f.Max()))
		f = umctl2.DRAMTMG2_RD2WR
		t2 = f.Put(t2, add(f.Get(t2), adj(r.ReadToWrite), f.Max()))
		c.Write(umctl2.DRAMTMG2, t2)

		t1 := c.Read(umctl2.DFITMG1)
		f = umctl2.DFITMG1_WRDATA_DELAY
		t1 = f.Put(t1, add(f.Get(t1), adj(r.WrDataDelay), f.Max()))
		c.Write(umctl2.DFITMG1, t1)
	})
}
