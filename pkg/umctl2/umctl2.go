// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package umctl2 drives the DesignWare uMCTL2 DDR controller from reset to
// the point where it hands off to the PHY, and back to normal operation.
//
// Many controller registers are quasi-dynamic: they may only be written
// while SWCTL.sw_done is clear, and the new values only take effect after
// sw_done is set again and acknowledged in SWSTAT. Group 3 registers
// additionally require the controller to be drained of traffic first.
package umctl2

import (
	"errors"
	"fmt"
	"time"

	"github.com/u-root/u-ddr/pkg/handoff"
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/logger"
	"github.com/u-root/u-ddr/pkg/poll"
)

var log = logger.LogContainer.GetSimpleLogger()

// ErrFatalParity is an uncleared fatal C/A parity alert. Nothing can recover
// the controller from it.
var ErrFatalParity = errors.New("fatal DDR4 C/A parity error")

type DDRType int

const (
	DDR4 DDRType = iota
	LPDDR4
)

func (t DDRType) String() string {
	switch t {
	case DDR4:
		return "DDR4"
	case LPDDR4:
		return "LPDDR4"
	}
	return fmt.Sprintf("DDRType(%d)", int(t))
}

// TypeOf returns the DRAM type a controller handoff section programs.
func TypeOf(k handoff.SectionKind) (DDRType, error) {
	switch k {
	case handoff.DDR4:
		return DDR4, nil
	case handoff.LPDDR4ChannelA, handoff.LPDDR4ChannelB:
		return LPDDR4, nil
	}
	return 0, fmt.Errorf("%v is not a controller section: %w", k, handoff.ErrFormat)
}

type Timeouts struct {
	// Register handshakes: sw_done_ack, operating mode, port idle, CAM empty.
	Handshake time.Duration
	// DDR4 retry error window drain.
	Retry time.Duration
	// DFI init complete.
	DFI time.Duration
	// Scrubber pass over the whole memory.
	Scrub time.Duration
}

var DefaultTimeouts = Timeouts{
	Handshake: 200 * time.Millisecond,
	Retry:     time.Second,
	DFI:       5 * time.Second,
	Scrub:     5 * time.Second,
}

type Controller struct {
	mem  mmio.Bus
	Base uintptr
	Type DDRType

	poller   *poll.Poller
	Timeouts Timeouts

	// FullBusBytes is the width of the DRAM data bus at MSTR
	// data_bus_width == full.
	FullBusBytes uint64

	pwrctl uint32
	init0  uint32
}

func New(mem mmio.Bus, base uintptr, t DDRType, p *poll.Poller) *Controller {
	return &Controller{
		mem:          mem,
		Base:         base,
		Type:         t,
		poller:       p,
		Timeouts:     DefaultTimeouts,
		FullBusBytes: 8,
	}
}

func (c *Controller) read(r uintptr) uint32 {
	return c.mem.MustRead32(c.Base + r)
}

func (c *Controller) write(r uintptr, v uint32) {
	c.mem.MustWrite32(c.Base+r, v)
}

func (c *Controller) set(r uintptr, m uint32) {
	mmio.SetBits32(c.mem, c.Base+r, m)
}

func (c *Controller) clr(r uintptr, m uint32) {
	mmio.ClrBits32(c.mem, c.Base+r, m)
}

func (c *Controller) field(f mmio.Field) uint32 {
	return f.Read(c.mem, c.Base)
}

func (c *Controller) setField(f mmio.Field, x uint32) {
	f.Write(c.mem, c.Base, x)
}

func (c *Controller) waitBit(r uintptr, m uint32, set bool, timeout time.Duration) error {
	return c.poller.WaitBit32(c.mem, c.Base+r, m, set, timeout,
		fmt.Sprintf("umctl2 %#x: %s %08x", c.Base, RegisterName(r), m))
}

func (c *Controller) waitMode(mode uint32, timeout time.Duration) error {
	return c.poller.Until(func() bool {
		return c.field(STAT_OPERATING_MODE) == mode
	}, timeout, fmt.Sprintf("umctl2 %#x: operating mode %d", c.Base, mode))
}

// Read and Write give access to registers without a named accessor, for
// diagnostics.
func (c *Controller) Read(r uintptr) uint32 {
	return c.read(r)
}

func (c *Controller) Write(r uintptr, v uint32) {
	c.write(r, v)
}

// Field reads a register field.
func (c *Controller) Field(f mmio.Field) uint32 {
	return c.field(f)
}

// FreqRatio2 reports whether the controller runs at 1:2 to the DRAM.
func (c *Controller) FreqRatio2() bool {
	return c.read(MSTR)&MSTR_FREQ_RATIO == 0
}

func (c *Controller) ECCEnabled() bool {
	return c.field(ECCCFG0_ECC_MODE) != ECC_MODE_DISABLED
}

func (c *Controller) String() string {
	return fmt.Sprintf("umctl2 %s @ %#x", c.Type, c.Base)
}
