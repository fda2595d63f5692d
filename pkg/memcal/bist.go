// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memcal

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/mailbox"
)

// Region is a range BIST initializes on inline ECC interfaces. Size must be
// a power of two.
type Region struct {
	Start uint64
	Size  uint64
}

func checkRegions(regions []Region) error {
	if len(regions) == 0 {
		return fmt.Errorf("no BIST regions: %w", mailbox.ErrInvalidArgument)
	}
	for _, r := range regions {
		if r.Size == 0 || r.Size&(r.Size-1) != 0 {
			return fmt.Errorf("BIST region %#x size %#x is not a power of two: %w",
				r.Start, r.Size, mailbox.ErrInvalidArgument)
		}
	}
	return nil
}

func (c *Calibrator) waitBIST(ep *Endpoint, intf Interface) error {
	l := ep.Layout
	return c.poller.WaitBit32(ep.mem, ep.Base+l.BISTDone[intf.Index], l.BISTDoneMask[intf.Index], true,
		c.Timeouts.BIST, fmt.Sprintf("%s: %v BIST done", ep.Name, intf.Interface))
}

// BISTMemInit initializes memory through the sequencers. Inline ECC
// interfaces are initialized region by region, the others in one full
// range pass.
func (c *Calibrator) BISTMemInit(eps []*Endpoint, regions []Region) error {
	for _, ep := range eps {
		for _, intf := range ep.Interfaces {
			if intf.ECC.Enabled && intf.ECC.Inline {
				if err := checkRegions(regions); err != nil {
					return err
				}
			}
		}
	}

	for _, ep := range eps {
		for _, intf := range ep.Interfaces {
			if intf.ECC.Enabled && intf.ECC.Inline {
				for _, r := range regions {
					log.Debugf("%s: %v BIST %#x+%#x", ep.Name, intf.Interface, r.Start, r.Size)
					if err := ep.Client.BISTMemInitByAddr(intf.Interface, r.Start, r.Size); err != nil {
						return fmt.Errorf("%s: %w", ep.Name, err)
					}
					if err := c.waitBIST(ep, intf); err != nil {
						return err
					}
				}
				continue
			}
			log.Debugf("%s: %v BIST full range", ep.Name, intf.Interface)
			if err := ep.Client.BISTMemInitFull(intf.Interface); err != nil {
				return fmt.Errorf("%s: %w", ep.Name, err)
			}
			if err := c.waitBIST(ep, intf); err != nil {
				return err
			}
		}
	}
	log.Infof("DDR: BIST memory initialization done")
	return nil
}
