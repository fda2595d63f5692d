// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdram

import (
	"fmt"
	"math/bits"

	"github.com/u-root/u-ddr/config"
	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/mailbox"
	"github.com/u-root/u-ddr/pkg/memcal"
	"github.com/u-root/u-ddr/pkg/metric"
	"github.com/u-root/u-ddr/pkg/resetstate"
)

func (s *System) endpoints() []*memcal.Endpoint {
	t := s.Target
	l := t.StatusLayout()
	var eps []*memcal.Endpoint
	for i, base := range t.Sequencers {
		var tr mailbox.Transport
		if t.Flow == config.FLOW_UIB {
			u := mailbox.NewUIB(s.mem, base, s.poller)
			u.Timeout = t.Timeouts.Mailbox
			tr = u
		} else {
			m := mailbox.NewIOSSM(s.mem, base, s.poller)
			m.Timeout = t.Timeouts.Mailbox
			tr = m
		}
		eps = append(eps, memcal.NewEndpoint(fmt.Sprintf("%s%d", t.Flow, i), s.mem, base, l, tr))
	}
	return eps
}

// bistRegions splits the banks into naturally aligned power of two
// regions of the DRAM address space, which starts at zero in the first
// bank.
func bistRegions(bs []banks.Bank) []memcal.Region {
	var regions []memcal.Region
	var off uint64
	for _, b := range bs {
		for left := b.Size; left > 0; {
			size := uint64(1) << (63 - bits.LeadingZeros64(left))
			if off != 0 {
				if align := off & -off; align < size {
					size = align
				}
			}
			regions = append(regions, memcal.Region{Start: off, Size: size})
			off += size
			left -= size
		}
	}
	return regions
}

// checkRetained fails on uncorrectable errors in memory that survived the
// reset. The DDR DBE flag forces a full init on the next boot.
func (s *System) checkRetained(cal *memcal.Calibrator, eps []*memcal.Endpoint) error {
	errs, err := cal.CheckECC(eps)
	if err != nil {
		return halt("ECC check", err)
	}
	if !mailbox.AnyDoubleBit(errs) {
		return nil
	}
	s.Tracker.SetDDRDBE()
	err = fmt.Errorf("%d ECC error(s) in retained memory, uncorrectable among them", len(errs))
	if s.Watchdog != nil {
		log.Errorf("DDR: %v, resetting", err)
		s.Watchdog.ResetCpu()
	}
	return haltAs("ECC check", ErrDataIntegrity, err)
}

func (s *System) initSequencer() (*Result, error) {
	tr := s.Tracker
	res := &Result{ResetType: tr.ResetType()}
	res.FullInit = s.needsInit()
	tr.InProgress(true)

	eps := s.endpoints()
	cal := memcal.New(s.poller)
	cal.Timeouts = s.Target.Timeouts.Cal
	cal.Attempts = s.Target.CalAttempts

	done := metric.Stage("calibration")
	if err := cal.Calibrate(eps); err != nil {
		return nil, halt("calibration", err)
	}
	done()
	if err := cal.Discover(eps); err != nil {
		return nil, halt("discovery", err)
	}
	res.ECC = memcal.ECCEnabled(eps)

	// Only retained contents are checked.
	if !res.FullInit && res.ResetType == resetstate.WARM && res.ECC {
		if err := s.checkRetained(cal, eps); err != nil {
			return nil, err
		}
	}

	var err error
	if res.Banks, err = s.layout(memcal.TotalSize(eps)); err != nil {
		return nil, err
	}

	if res.FullInit && res.ECC {
		done = metric.Stage("bist")
		if err := cal.BISTMemInit(eps, bistRegions(res.Banks)); err != nil {
			return nil, halt("BIST", err)
		}
		done()
	}
	if res.FullInit {
		tr.ClearDBE()
	}
	tr.InProgress(false)

	if err := s.protect(res.Banks); err != nil {
		return nil, err
	}
	res.Size = banks.Total(res.Banks)
	return res, nil
}
