// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package phy trains the DDR PHY by running the vendor training firmware on
// its embedded microcontroller and folding the results into the controller
// timing registers.
package phy

import (
	"errors"
	"fmt"
	"time"

	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/logger"
	"github.com/u-root/u-ddr/pkg/poll"
)

var log = logger.LogContainer.GetSimpleLogger()

var (
	ErrTrainingFailed = errors.New("PHY training failed")
	ErrFirmwareVerify = errors.New("PHY firmware verify mismatch")
)

type Timeouts struct {
	// Wait for the next message from the firmware.
	Message time.Duration
	// Wait for the firmware to see an acknowledge.
	Ack time.Duration
}

var DefaultTimeouts = Timeouts{
	Message: 10 * time.Second,
	Ack:     200 * time.Millisecond,
}

type Phy struct {
	mem  mmio.Bus
	Base uintptr

	poller   *poll.Poller
	Timeouts Timeouts
	// Lanes is the number of DRAM byte lanes results are read for.
	Lanes int
}

func New(mem mmio.Bus, base uintptr, lanes int, p *poll.Poller) *Phy {
	return &Phy{
		mem:      mem,
		Base:     base,
		poller:   p,
		Timeouts: DefaultTimeouts,
		Lanes:    lanes,
	}
}

func (p *Phy) addr(reg uint32) uintptr {
	return p.Base + uintptr(reg)<<1
}

func (p *Phy) Read(reg uint32) uint16 {
	return p.mem.MustRead16(p.addr(reg))
}

func (p *Phy) Write(reg uint32, v uint16) {
	p.mem.MustWrite16(p.addr(reg), v)
}

func (p *Phy) waitBit(reg uint32, m uint16, set bool, timeout time.Duration, what string) error {
	return p.poller.WaitBit16(p.mem, p.addr(reg), m, set, timeout,
		fmt.Sprintf("PHY %#x: %s", p.Base, what))
}

// CSRAccess runs fn with the PHY CSRs and memories routed to the CPU.
func (p *Phy) CSRAccess(fn func()) {
	mmio.ClrBits16(p.mem, p.addr(APBONLY0), MICROCONTMUXSEL)
	fn()
	mmio.SetBits16(p.mem, p.addr(APBONLY0), MICROCONTMUXSEL)
}

func (p *Phy) String() string {
	return fmt.Sprintf("PHY @ %#x", p.Base)
}
