// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package poll implements the bounded busy-wait used against hardware that
// advances on its own (sequencers, PHY microcontrollers, scrubbers).
package poll

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmhodges/clock"
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
)

var ErrTimeout = errors.New("timeout")

const DefaultInterval = time.Microsecond

// Poller runs conditions until they hold or a timeout expires. There is no
// cancellation: hardware operations cannot be aborted once started.
type Poller struct {
	Clock    clock.Clock
	Interval time.Duration
	// Kick is called on every iteration, typically to service a watchdog.
	Kick func()
}

func New(clk clock.Clock, interval time.Duration) *Poller {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{Clock: clk, Interval: interval}
}

// Until evaluates cond until it returns true. The budget is exhausted when
// either the accumulated sleep time or the wall clock reaches timeout, so a
// stopped test clock still terminates. cond is always evaluated at least once.
func (p *Poller) Until(cond func() bool, timeout time.Duration, what string) error {
	start := p.Clock.Now()
	var slept time.Duration
	for {
		if cond() {
			return nil
		}
		if slept >= timeout || p.Clock.Now().Sub(start) >= timeout {
			return fmt.Errorf("%s after %v: %w", what, timeout, ErrTimeout)
		}
		if p.Kick != nil {
			p.Kick()
		}
		p.Clock.Sleep(p.Interval)
		slept += p.Interval
	}
}

// WaitBit32 is wait_for_bit: it waits until all bits of mask are set (set ==
// true) or all are clear.
func (p *Poller) WaitBit32(b mmio.Bus, a uintptr, mask uint32, set bool, timeout time.Duration, what string) error {
	return p.Until(func() bool {
		v := b.MustRead32(a) & mask
		if set {
			return v == mask
		}
		return v == 0
	}, timeout, what)
}

func (p *Poller) WaitBit16(b mmio.Bus, a uintptr, mask uint16, set bool, timeout time.Duration, what string) error {
	return p.Until(func() bool {
		v := b.MustRead16(a) & mask
		if set {
			return v == mask
		}
		return v == 0
	}, timeout, what)
}

// Consecutive wraps cond so that it only reports true after n back to back
// true observations. A false observation restarts the count.
func Consecutive(cond func() bool, n int) func() bool {
	seen := 0
	return func() bool {
		if cond() {
			seen++
		} else {
			seen = 0
		}
		return seen >= n
	}
}
