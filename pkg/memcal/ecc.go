// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memcal

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/mailbox"
	"github.com/u-root/u-ddr/pkg/metric"
)

// CheckECC drains the ECC error FIFO of every sequencer and acknowledges
// the interrupt. It returns all records seen.
func (c *Calibrator) CheckECC(eps []*Endpoint) ([]mailbox.ECCErrInfo, error) {
	var all []mailbox.ECCErrInfo
	for _, ep := range eps {
		errs := mailbox.ReadECCErrors(ep.mem, ep.Base, ep.Layout)
		if len(errs) == 0 {
			continue
		}
		for _, e := range errs {
			metric.ECCErrors.WithLabelValues(e.Type.String()).Inc()
		}
		all = append(all, errs...)
		for _, intf := range ep.Interfaces {
			if err := ep.Client.ECCInterruptAck(intf.Interface); err != nil {
				return all, fmt.Errorf("%s: %w", ep.Name, err)
			}
		}
	}
	return all, nil
}
