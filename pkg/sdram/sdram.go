// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sdram runs the DDR bring-up of a target from reset decoding to
// the final size check.
//
// Every stage either completes or stops the bring-up with an *Error. There
// is no degraded mode: the caller halts on any error.
package sdram

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/u-root/u-ddr/config"
	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/logger"
	"github.com/u-root/u-ddr/pkg/metric"
	"github.com/u-root/u-ddr/pkg/poll"
	"github.com/u-root/u-ddr/pkg/resetstate"
)

var log = logger.LogContainer.GetSimpleLogger()

// Watchdog resets the SoC.
type Watchdog interface {
	ResetCpu()
}

type Result struct {
	ResetType resetstate.ResetType
	// FullInit is false when DRAM contents were retained.
	FullInit bool
	ECC      bool
	Size     uint64
	Banks    []banks.Bank
}

type System struct {
	mem     mmio.Bus
	Target  *config.Target
	Tracker *resetstate.Tracker
	poller  *poll.Poller

	// Watchdog, when set, is used to reset after a double-bit error on
	// retained memory. Without one that error only halts.
	Watchdog Watchdog
	// Fs holds the handoff blob and PHY firmware.
	Fs afero.Fs
	// DeclaredSize is the DRAM size from the device tree, zero for none.
	DeclaredSize uint64
}

func New(mem mmio.Bus, t *config.Target, tr *resetstate.Tracker, p *poll.Poller) *System {
	return &System{
		mem:     mem,
		Target:  t,
		Tracker: tr,
		poller:  p,
		Fs:      afero.NewOsFs(),
	}
}

// Init brings up the memory of the target.
func (s *System) Init() (*Result, error) {
	log.Infof("DDR: %s bring-up, %v", s.Target.Name, s.Target.Flow)
	switch s.Target.Flow {
	case config.FLOW_UMCTL2:
		return s.initUmctl2()
	case config.FLOW_IOSSM, config.FLOW_UIB:
		return s.initSequencer()
	}
	return nil, haltAs("setup", ErrInvalidArgument, fmt.Errorf("unknown flow %q", s.Target.Flow))
}

// needsInit decides between a full initialization and keeping the DRAM
// contents.
func (s *System) needsInit() bool {
	full := s.Tracker.IsDDRInit()
	if !full && s.Tracker.NeedsFullInit() {
		log.Infof("DDR: retained contents not trusted, full initialization")
		full = true
	}
	return full
}

// layout turns the detected size into banks.
func (s *System) layout(detected uint64) ([]banks.Bank, error) {
	size, err := banks.CheckCapacity(s.DeclaredSize, detected)
	if err != nil {
		return nil, halt("capacity check", err)
	}
	bs, err := banks.Partition(s.Target.Windows, size)
	if err != nil {
		return nil, halt("bank layout", err)
	}
	return bs, nil
}

// protect opens the firewalls for the banks and verifies every byte of
// them is backed.
func (s *System) protect(bs []banks.Bank) error {
	defer metric.Stage("finalize")()
	for _, fw := range s.Target.Firewalls {
		if err := fw.Program(s.mem, bs); err != nil {
			return haltAs("firewall", ErrInvalidArgument, err)
		}
	}
	total := banks.Total(bs)
	if err := banks.SizeCheck(s.mem, bs, total); err != nil {
		return haltAs("size check", ErrDataIntegrity, err)
	}
	metric.DRAMBytes.Set(float64(total))
	log.Infof("DDR: %d MiB ready", total>>20)
	return nil
}
