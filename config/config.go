// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/firewall"
	"github.com/u-root/u-ddr/pkg/hardware/socfpga"
	"github.com/u-root/u-ddr/pkg/mailbox"
	"github.com/u-root/u-ddr/pkg/memcal"
	"github.com/u-root/u-ddr/pkg/phy"
	"github.com/u-root/u-ddr/pkg/resetstate"
	"github.com/u-root/u-ddr/pkg/umctl2"
)

type Version struct {
	Version string
	GitHash string
}

// Flow is how a target brings up its memory.
type Flow string

const (
	// Controller programmed from the handoff, PHY trained by its firmware.
	FLOW_UMCTL2 Flow = "umctl2"
	// IO96B sequencers calibrate, reached through the IOSSM mailbox.
	FLOW_IOSSM Flow = "iossm"
	// UIB sequencers calibrate, reached through the UIB mailbox FIFO.
	FLOW_UIB Flow = "uib"
)

type Timeouts struct {
	Controller umctl2.Timeouts
	Phy        phy.Timeouts
	Mailbox    time.Duration
	Cal        memcal.Timeouts
}

type Target struct {
	Name string
	Flow Flow

	SysMgrBase uintptr
	WdtBase    uintptr
	// Watchdog timeout range while bring-up runs, 0 leaves it alone.
	WdtTORR uint32
	Reset   resetstate.Layout

	// FLOW_UMCTL2: byte lanes trained by the PHY.
	PhyLanes int
	// FLOW_IOSSM and FLOW_UIB: one base per sequencer instance.
	Sequencers []uintptr
	// Recalibrations per failed sequencer.
	CalAttempts int

	Windows   []banks.Window
	Firewalls []firewall.Table

	PollInterval time.Duration
	Timeouts     Timeouts

	HandoffPath string
	FirmwareDir string
}

// StatusLayout is the sequencer status layout of the target's flow.
func (t *Target) StatusLayout() *mailbox.StatusLayout {
	if t.Flow == FLOW_UIB {
		return &mailbox.UIBLayout
	}
	return &mailbox.IOSSMLayout
}

type Config struct {
	Version Version
	Targets map[string]*Target
}

var defaultTimeouts = Timeouts{
	Controller: umctl2.DefaultTimeouts,
	Phy:        phy.DefaultTimeouts,
	Mailbox:    mailbox.DefaultTimeout,
	Cal:        memcal.DefaultTimeouts,
}

var DefaultConfig = &Config{
	Version: Version{
		Version: gitVersion,
		GitHash: gitHash,
	},

	Targets: map[string]*Target{
		// Agilex N5X: Synopsys umctl2 controller(s) plus PHY, trained by
		// PHY firmware loaded from the boot medium.
		"n5x": {
			Name:         "n5x",
			Flow:         FLOW_UMCTL2,
			SysMgrBase:   socfpga.SYSMGR_BASE,
			WdtBase:      socfpga.L4WD0_BASE,
			Reset:        resetstate.N5XLayout,
			PhyLanes:     4,
			Windows:      banks.SoC64Windows,
			Firewalls:    []firewall.Table{firewall.MPU(true), firewall.F2SDRAM()},
			PollInterval: time.Microsecond,
			Timeouts:     defaultTimeouts,
			HandoffPath:  "/boot/ddr_handoff.bin",
			FirmwareDir:  "/boot/ddr_phy",
		},

		// Agilex 5: two IO96B instances behind the IOSSM mailbox.
		"agilex5": {
			Name:         "agilex5",
			Flow:         FLOW_IOSSM,
			SysMgrBase:   0x10d12000,
			WdtBase:      0x10d00200,
			Reset:        resetstate.Agilex5Layout,
			Sequencers:   []uintptr{0x18400000, 0x18800000},
			CalAttempts:  3,
			Windows:      banks.SoC64Windows,
			Firewalls:    []firewall.Table{firewall.MPU(true), firewall.F2SDRAM()},
			PollInterval: time.Microsecond,
			Timeouts:     defaultTimeouts,
		},

		// Agilex 7 M-series HBM: UIB sequencers, one per HBM pseudo
		// channel group.
		"agilex7m": {
			Name:         "agilex7m",
			Flow:         FLOW_UIB,
			SysMgrBase:   socfpga.SYSMGR_BASE,
			WdtBase:      socfpga.L4WD0_BASE,
			Reset:        resetstate.Agilex5Layout,
			Sequencers:   []uintptr{0xf8400000, 0xf8410000, 0xf8420000, 0xf8430000},
			CalAttempts:  3,
			Windows:      banks.SoC64Windows,
			Firewalls:    []firewall.Table{firewall.MPU(true)},
			PollInterval: time.Microsecond,
			Timeouts:     defaultTimeouts,
		},
	},
}

// Targets lists the known target names.
func Targets() []string {
	var names []string
	for n := range DefaultConfig.Targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForTarget returns a copy of the default configuration of a target, safe
// to modify.
func ForTarget(name string) (*Target, error) {
	d, ok := DefaultConfig.Targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q, have %v", name, Targets())
	}
	t := *d
	t.Sequencers = append([]uintptr(nil), d.Sequencers...)
	t.Windows = append([]banks.Window(nil), d.Windows...)
	t.Firewalls = append([]firewall.Table(nil), d.Firewalls...)
	return &t, nil
}
