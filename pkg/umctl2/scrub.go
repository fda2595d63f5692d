// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package umctl2

// Scrub writes zeros over the whole memory with the controller's scrubber
// so every ECC check word is valid, then puts the user's scrubber
// configuration back.
func (c *Controller) Scrub() error {
	log.Infof("%v: scrubbing memory for ECC", c)

	c.clr(PCTRL0, PCTRL0_PORT_EN)

	orig := c.read(SBRCTL)
	c.clr(SBRCTL, SBRCTL_SCRUB_EN)
	if err := c.waitBit(SBRSTAT, SBRSTAT_SCRUB_BUSY, false, c.Timeouts.Scrub); err != nil {
		return err
	}

	if c.Type == LPDDR4 {
		if err := c.EnableQuasiDynamicGroup3(); err != nil {
			return err
		}
		if err := c.QuasiDynamic(func() {
			c.set(ECCCFG1, ECCCFG1_REGION_LCK)
		}); err != nil {
			return err
		}
		c.clr(DBG1, DBG1_DIS_HIF)
	}

	sbrctl := SBRCTL_SCRUB_INTERVAL.Put(orig, 0)
	sbrctl &^= SBRCTL_SCRUB_EN | SBRCTL_LOW_POWER
	c.write(SBRCTL, sbrctl|SBRCTL_SCRUB_WRITE)
	c.write(SBRWDATA0, 0)
	c.write(SBRWDATA1, 0)
	// Zero start and range cover the whole memory.
	c.write(SBRSTART0, 0)
	c.write(SBRSTART1, 0)
	c.write(SBRRANGE0, 0)
	c.write(SBRRANGE1, 0)

	c.set(SBRCTL, SBRCTL_SCRUB_EN)
	// Done means every write command was issued, busy clear means they
	// all reached the DRAM.
	if err := c.waitBit(SBRSTAT, SBRSTAT_SCRUB_DONE, true, c.Timeouts.Scrub); err != nil {
		return err
	}
	if err := c.waitBit(SBRSTAT, SBRSTAT_SCRUB_BUSY, false, c.Timeouts.Scrub); err != nil {
		return err
	}

	c.clr(SBRCTL, SBRCTL_SCRUB_EN)
	c.write(SBRCTL, orig&^SBRCTL_SCRUB_EN)
	// A read mode configuration always leaves the scrubber running.
	if orig&SBRCTL_SCRUB_WRITE == 0 {
		c.set(SBRCTL, SBRCTL_SCRUB_EN)
	}

	c.set(PCTRL0, PCTRL0_PORT_EN)
	log.Infof("%v: scrubbing done", c)
	return nil
}
