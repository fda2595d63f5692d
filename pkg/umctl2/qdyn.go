// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package umctl2

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/poll"
)

const MR5 = 5

// MR5 A4 is the sticky C/A parity error status.
const mr5ParityErrorStatus uint32 = 1 << 4

// CompleteQuasiDynamic sets sw_done and waits for the controller to take
// the new register values.
func (c *Controller) CompleteQuasiDynamic() error {
	c.set(SWCTL, SWCTL_SW_DONE)
	return c.waitBit(SWSTAT, SWSTAT_SW_DONE_ACK, true, c.Timeouts.Handshake)
}

// QuasiDynamic runs program with the software programming gate open.
func (c *Controller) QuasiDynamic(program func()) error {
	c.clr(SWCTL, SWCTL_SW_DONE)
	program()
	return c.CompleteQuasiDynamic()
}

// EnableQuasiDynamicGroup3 stops all traffic into the controller and waits
// for it to drain, after which group 3 registers may be written.
func (c *Controller) EnableQuasiDynamicGroup3() error {
	c.clr(PCTRL0, PCTRL0_PORT_EN)
	if err := c.waitBit(PSTAT, PSTAT_RD_PORT_BUSY|PSTAT_WR_PORT_BUSY, false, c.Timeouts.Handshake); err != nil {
		return err
	}

	c.set(DBG1, DBG1_DIS_HIF)

	// One empty observation may be stale because of pipeline latency.
	empty := poll.Consecutive(func() bool {
		return c.read(DBGCAM)&DBGCAM_EMPTY == DBGCAM_EMPTY
	}, 2)
	if err := c.poller.Until(empty, c.Timeouts.Handshake,
		fmt.Sprintf("%v: CAM and pipelines empty", c)); err != nil {
		return err
	}

	if c.Type == DDR4 && c.read(CRCPARCTL1)&CRCPARCTL1_RETRY_EN != 0 {
		return c.drainRetry()
	}
	return nil
}

func (c *Controller) drainRetry() error {
	if err := c.waitBit(CRCPARSTAT, CRCPARSTAT_CMD_IN_ERR_WIN, false, c.Timeouts.Retry); err != nil {
		return err
	}
	st := c.read(CRCPARSTAT)
	log.Debugf("%v: CRCPARSTAT %08x, %d alerts", c, st, CRCPARSTAT_ALERT_ERR_CNT.Get(st))
	if st&CRCPARSTAT_ALERT_FATAL_INT != 0 {
		log.Errorf("%v: fatal C/A parity error, CRCPARSTAT %08x", c, st)
		return fmt.Errorf("%v: %w", c, ErrFatalParity)
	}
	if st&CRCPARSTAT_ALERT_ERR_INT == 0 {
		return nil
	}
	log.Infof("%v: clearing C/A parity error status", c)
	if err := c.ModeRegisterWrite(MR5, c.field(MRCTRL1_MR_DATA)&^mr5ParityErrorStatus); err != nil {
		return err
	}
	c.set(CRCPARCTL0, CRCPARCTL0_CLR_ALERT_ERR|CRCPARCTL0_CLR_ALERT_ERRCNT)
	return nil
}

// ModeRegisterWrite issues a software mode register write to all ranks.
func (c *Controller) ModeRegisterWrite(mr, data uint32) error {
	if err := c.waitBit(MRSTAT, MRSTAT_MR_WR_BUSY, false, c.Timeouts.Handshake); err != nil {
		return err
	}
	v := c.read(MRCTRL0) &^ (MRCTRL0_MR_TYPE | MRCTRL0_MPR_EN | MRCTRL0_PDA_EN | MRCTRL0_SW_INIT)
	v = MRCTRL0_MR_RANK.Put(v, MRCTRL0_MR_RANK.Max())
	v = MRCTRL0_MR_ADDR.Put(v, mr)
	c.write(MRCTRL0, v)
	c.setField(MRCTRL1_MR_DATA, data)
	c.set(MRCTRL0, MRCTRL0_MR_WR)
	return c.waitBit(MRSTAT, MRSTAT_MR_WR_BUSY, false, c.Timeouts.Handshake)
}

// DisableQuasiDynamicGroup3 lets traffic back in.
func (c *Controller) DisableQuasiDynamicGroup3() {
	c.clr(DBG1, DBG1_DIS_HIF)
	c.set(PCTRL0, PCTRL0_PORT_EN)
}

// Group3 runs program with traffic drained and the programming gate open.
func (c *Controller) Group3(program func()) error {
	if err := c.EnableQuasiDynamicGroup3(); err != nil {
		return err
	}
	if err := c.QuasiDynamic(program); err != nil {
		return err
	}
	c.DisableQuasiDynamicGroup3()
	return nil
}
