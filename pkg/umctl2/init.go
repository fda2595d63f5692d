// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package umctl2

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/handoff"
)

type state int

const (
	stateReset state = iota
	stateDisableDQ
	stateForceSelfref
	stateEnterQuasiDynamic
	stateWaitInitMode
	stateApplyHandoff
	stateLPDDR4Selfref
	stateExitQuasiDynamic
	stateReleaseDQ
	stateDone
)

var stateNames = map[state]string{
	stateReset:             "RESET",
	stateDisableDQ:         "DISABLE_DQ",
	stateForceSelfref:      "FORCE_SELFREF",
	stateEnterQuasiDynamic: "ENTER_QUASI_DYNAMIC",
	stateWaitInitMode:      "WAIT_INIT_OPERATING_MODE",
	stateApplyHandoff:      "APPLY_HANDOFF_TABLE",
	stateLPDDR4Selfref:     "SET_SELFREF_SW+SET_SKIP_RAM_INIT",
	stateExitQuasiDynamic:  "EXIT_QUASI_DYNAMIC",
	stateReleaseDQ:         "RELEASE_DQ",
	stateDone:              "DONE",
}

func (s state) String() string {
	return stateNames[s]
}

func (c *Controller) enter(s state) {
	log.Debugf("%v: %v", c, s)
}

// Init programs the controller from its handoff section. On error the
// controller is left wherever it stopped and must not be used further.
func (c *Controller) Init(s *handoff.Section) error {
	if s.Kind.Wide() {
		return fmt.Errorf("%v: cannot apply %v section: %w", c, s.Kind, handoff.ErrFormat)
	}
	c.enter(stateReset)

	c.enter(stateDisableDQ)
	c.set(DBG1, DBG1_DIS_DQ)

	c.enter(stateForceSelfref)
	c.set(PWRCTL, PWRCTL_SELFREF_EN)

	c.enter(stateEnterQuasiDynamic)
	c.clr(SWCTL, SWCTL_SW_DONE)

	c.enter(stateWaitInitMode)
	if err := c.waitMode(STAT_MODE_INIT, c.Timeouts.Handshake); err != nil {
		return err
	}

	c.enter(stateApplyHandoff)
	handoff.Apply(c.mem, &handoff.Section{Kind: s.Kind, Base: c.Base, Pairs: s.Pairs})

	// The handoff PWRCTL and INIT0 come back in PostInit, the PHY
	// handshake needs self-refresh off until then.
	c.pwrctl = c.read(PWRCTL)
	c.init0 = c.read(INIT0)
	c.clr(PWRCTL, PWRCTL_SELFREF_EN)

	if c.Type == LPDDR4 {
		c.enter(stateLPDDR4Selfref)
		c.set(PWRCTL, PWRCTL_SELFREF_SW)
		c.setField(INIT0_SKIP_DRAM_INIT, SKIP_DRAM_INIT_SELFREF)
	}

	c.enter(stateExitQuasiDynamic)
	if err := c.CompleteQuasiDynamic(); err != nil {
		return err
	}

	c.enter(stateReleaseDQ)
	c.clr(DBG1, DBG1_DIS_DQ)

	c.enter(stateDone)
	return nil
}

// PreHandoffConfig prepares the controller for the PHY to take over the DFI
// bus: DFI init completion must not be signalled until the PHY is trained.
func (c *Controller) PreHandoffConfig() error {
	return c.QuasiDynamic(func() {
		c.clr(DFIMISC, DFIMISC_COMPL_EN)
	})
}

// StartDFIInit runs the DFI initialization handshake with the trained PHY.
func (c *Controller) StartDFIInit() error {
	if err := c.QuasiDynamic(func() {
		c.set(DFIMISC, DFIMISC_INIT_START)
	}); err != nil {
		return err
	}
	if err := c.waitBit(DFISTAT, DFISTAT_INIT_DONE, true, c.Timeouts.DFI); err != nil {
		return err
	}
	return c.QuasiDynamic(func() {
		c.clr(DFIMISC, DFIMISC_INIT_START)
		c.set(DFIMISC, DFIMISC_COMPL_EN)
	})
}

// PostInit restores the handoff power settings, waits for the controller
// to reach normal operation and opens the AXI port.
func (c *Controller) PostInit() error {
	if err := c.QuasiDynamic(func() {
		pwrctl := c.pwrctl
		if c.Type == LPDDR4 {
			pwrctl &^= PWRCTL_SELFREF_SW
		}
		c.write(PWRCTL, pwrctl)
		c.write(INIT0, c.init0)
	}); err != nil {
		return err
	}
	if err := c.waitMode(STAT_MODE_NORMAL, c.Timeouts.DFI); err != nil {
		return err
	}
	c.set(PCTRL0, PCTRL0_PORT_EN)
	log.Debugf("%v: normal operating mode", c)
	return nil
}
