// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdram

import (
	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/handoff"
	"github.com/u-root/u-ddr/pkg/metric"
	"github.com/u-root/u-ddr/pkg/phy"
	"github.com/u-root/u-ddr/pkg/umctl2"
)

func (s *System) controllers(h *handoff.Handoff) ([]*umctl2.Controller, error) {
	var ctrls []*umctl2.Controller
	for _, sec := range h.Controllers() {
		t, err := umctl2.TypeOf(sec.Kind)
		if err != nil {
			return nil, halt("handoff", err)
		}
		c := umctl2.New(s.mem, sec.Base, t, s.poller)
		c.Timeouts = s.Target.Timeouts.Controller
		ctrls = append(ctrls, c)
	}
	return ctrls, nil
}

// bringUp programs the controllers, trains the PHY and hands the DFI bus
// over to the controllers.
func (s *System) bringUp(h *handoff.Handoff, ctrls []*umctl2.Controller) error {
	secs := h.Controllers()
	done := metric.Stage("controller")
	for i, c := range ctrls {
		if err := c.Init(&secs[i]); err != nil {
			return halt("controller init", err)
		}
	}
	done()

	p := phy.New(s.mem, h.Phy.Base, s.Target.PhyLanes, s.poller)
	p.Timeouts = s.Target.Timeouts.Phy
	for _, c := range ctrls {
		if err := c.PreHandoffConfig(); err != nil {
			return halt("PHY pre-handoff", err)
		}
	}
	p.CSRAccess(func() {
		handoff.Apply(s.mem, &h.Phy)
	})

	fw, err := phy.LoadFirmware(s.Fs, s.Target.FirmwareDir)
	if err != nil {
		return halt("PHY firmware", err)
	}
	done = metric.Stage("training")
	if err := p.Train(ctrls, fw); err != nil {
		return halt("PHY training", err)
	}
	done()

	p.CSRAccess(func() {
		handoff.Apply(s.mem, &h.PhyEngine)
	})
	for _, c := range ctrls {
		if err := c.StartDFIInit(); err != nil {
			return halt("DFI init", err)
		}
		if err := c.PostInit(); err != nil {
			return halt("controller post init", err)
		}
	}

	for _, c := range ctrls {
		if !c.ECCEnabled() {
			continue
		}
		done = metric.Stage("scrub")
		log.Infof("DDR: %v ECC enabled, scrubbing", c)
		if err := c.Scrub(); err != nil {
			return halt("ECC scrub", err)
		}
		done()
	}
	return nil
}

func (s *System) initUmctl2() (*Result, error) {
	tr := s.Tracker
	res := &Result{ResetType: tr.ResetType()}

	h, err := handoff.Load(s.Fs, s.Target.HandoffPath)
	if err != nil {
		return nil, halt("handoff", err)
	}
	ctrls, err := s.controllers(h)
	if err != nil {
		return nil, err
	}

	res.FullInit = s.needsInit()
	if res.FullInit {
		tr.InProgress(true)
		if err := s.bringUp(h, ctrls); err != nil {
			return nil, err
		}
		tr.ClearDBE()
		tr.InProgress(false)
	}

	var detected uint64
	for _, c := range ctrls {
		detected += c.Size()
		res.ECC = res.ECC || c.ECCEnabled()
	}
	log.Infof("DDR: %d MiB behind %d controller(s)", detected>>20, len(ctrls))

	if res.Banks, err = s.layout(detected); err != nil {
		return nil, err
	}
	if err := s.protect(res.Banks); err != nil {
		return nil, err
	}
	res.Size = banks.Total(res.Banks)
	return res, nil
}
