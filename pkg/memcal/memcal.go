// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memcal runs calibration, discovery and BIST memory
// initialization across all sequencer instances of a memory subsystem. It
// is written against the mailbox client and a status layout, so the same
// code serves IOSSM and UIB sequencers.
package memcal

import (
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/logger"
	"github.com/u-root/u-ddr/pkg/mailbox"
	"github.com/u-root/u-ddr/pkg/metric"
	"github.com/u-root/u-ddr/pkg/poll"
	"go.uber.org/multierr"
)

var log = logger.LogContainer.GetSimpleLogger()

var ErrCalibration = errors.New("memory calibration failed")

// Interface is one discovered memory interface.
type Interface struct {
	mailbox.Interface
	Index      int
	Technology mailbox.Technology
	Size       uint64
	ECC        mailbox.ECCStatus
}

// Endpoint is one sequencer instance.
type Endpoint struct {
	Name   string
	mem    mmio.Bus
	Base   uintptr
	Layout *mailbox.StatusLayout
	Client *mailbox.Client

	// CalOK is the last calibration status read.
	CalOK      bool
	Interfaces []Interface
}

func NewEndpoint(name string, mem mmio.Bus, base uintptr, l *mailbox.StatusLayout, t mailbox.Transport) *Endpoint {
	return &Endpoint{
		Name:   name,
		mem:    mem,
		Base:   base,
		Layout: l,
		Client: mailbox.NewClient(t),
	}
}

func (ep *Endpoint) read(r uintptr) uint32 {
	return ep.mem.MustRead32(ep.Base + r)
}

type Timeouts struct {
	CalStatus time.Duration
	BIST      time.Duration
	// Sequencer taking a reset request.
	ResetRequest time.Duration
}

var DefaultTimeouts = Timeouts{
	CalStatus:    60 * time.Second,
	BIST:         120 * time.Second,
	ResetRequest: time.Second,
}

type Calibrator struct {
	poller   *poll.Poller
	Timeouts Timeouts
	// Attempts is the number of recalibrations per failed instance.
	Attempts int
	// Backoff spaces the recalibration attempts.
	Backoff *backoff.Backoff
}

func New(p *poll.Poller) *Calibrator {
	return &Calibrator{
		poller:   p,
		Timeouts: DefaultTimeouts,
		Attempts: 3,
		Backoff: &backoff.Backoff{
			Min:    10 * time.Millisecond,
			Max:    time.Second,
			Factor: 2,
		},
	}
}

// CalStatus waits for the sequencer to report a calibration result. Only
// success without fail counts, a timeout is a failure.
func (c *Calibrator) CalStatus(ep *Endpoint) bool {
	l := ep.Layout
	var st uint32
	err := c.poller.Until(func() bool {
		st = ep.read(l.CalStatus)
		return st&(l.CalSuccess|l.CalFail) != 0
	}, c.Timeouts.CalStatus, fmt.Sprintf("%s: calibration status", ep.Name))
	ok := err == nil && st&l.CalSuccess != 0 && st&l.CalFail == 0
	if err != nil {
		log.Errorf("%v", err)
	}
	result := "pass"
	if !ok {
		result = "fail"
	}
	metric.CalibrationAttempts.WithLabelValues(ep.Name, result).Inc()
	log.Debugf("%s: calibration status %08x, %s", ep.Name, st, result)
	return ok
}

// InitMemCal reads the calibration status of every instance and returns
// the overall status: one failed instance fails the memory subsystem.
func (c *Calibrator) InitMemCal(eps []*Endpoint) bool {
	overall := true
	for _, ep := range eps {
		ep.CalOK = c.CalStatus(ep)
		if !ep.CalOK {
			log.Infof("%s: calibration failed", ep.Name)
		}
		overall = overall && ep.CalOK
	}
	if overall {
		log.Infof("DDR: calibration passed")
	}
	return overall
}

func (c *Calibrator) recalibrate(ep *Endpoint) error {
	switch ep.Layout.Recal {
	case mailbox.RecalByResetRequest:
		r := ep.Base + ep.Layout.ResetRequest
		mmio.ClrSetBits32(ep.mem, r, mailbox.UIB_RESET_TYPE_MASK,
			mailbox.UIB_RESET_REQUEST|mailbox.UIB_RESET_WITH_CAL)
		return c.poller.WaitBit32(ep.mem, r, mailbox.UIB_RESET_REQUEST, false, c.Timeouts.ResetRequest,
			fmt.Sprintf("%s: reset with calibration", ep.Name))
	default:
		intfs, err := ep.Client.SysInfo()
		if err != nil {
			return err
		}
		for _, intf := range intfs {
			if err := ep.Client.TrigMemCal(intf); err != nil {
				return err
			}
		}
		return nil
	}
}

// TrigMemCal recalibrates every failed instance, up to Attempts times
// each. The error names every instance that never passed.
func (c *Calibrator) TrigMemCal(eps []*Endpoint) error {
	var errs error
	for _, ep := range eps {
		if ep.CalOK {
			continue
		}
		c.Backoff.Reset()
		for i := 1; i <= c.Attempts && !ep.CalOK; i++ {
			if i > 1 {
				c.poller.Clock.Sleep(c.Backoff.Duration())
			}
			log.Infof("%s: recalibration attempt %d of %d", ep.Name, i, c.Attempts)
			if err := c.recalibrate(ep); err != nil {
				log.Errorf("%s: recalibration: %v", ep.Name, err)
				continue
			}
			ep.CalOK = c.CalStatus(ep)
		}
		if !ep.CalOK {
			errs = multierr.Append(errs, fmt.Errorf("%s: %d attempts: %w", ep.Name, c.Attempts, ErrCalibration))
		}
	}
	return errs
}

// Calibrate is InitMemCal followed by TrigMemCal when needed.
func (c *Calibrator) Calibrate(eps []*Endpoint) error {
	if c.InitMemCal(eps) {
		return nil
	}
	return c.TrigMemCal(eps)
}

// Discover asks every sequencer about its interfaces.
func (c *Calibrator) Discover(eps []*Endpoint) error {
	for _, ep := range eps {
		intfs, err := ep.Client.SysInfo()
		if err != nil {
			return fmt.Errorf("%s: %w", ep.Name, err)
		}
		if len(intfs) > len(ep.Layout.BISTDone) {
			return fmt.Errorf("%s: %d interfaces, at most %d supported: %w",
				ep.Name, len(intfs), len(ep.Layout.BISTDone), mailbox.ErrProtocol)
		}
		ep.Interfaces = nil
		for i, mi := range intfs {
			intf := Interface{Interface: mi, Index: i}
			if intf.Technology, err = ep.Client.MemTechnology(mi); err != nil {
				return fmt.Errorf("%s: %w", ep.Name, err)
			}
			if intf.Size, err = ep.Client.MemCapacity(mi); err != nil {
				return fmt.Errorf("%s: %w", ep.Name, err)
			}
			if intf.ECC, err = ep.Client.ECCStatus(mi); err != nil {
				return fmt.Errorf("%s: %w", ep.Name, err)
			}
			log.Infof("%s: %v %v %d MiB, ECC %+v", ep.Name, mi, intf.Technology, intf.Size>>20, intf.ECC)
			ep.Interfaces = append(ep.Interfaces, intf)
		}
	}
	return nil
}

// TotalSize sums the capacity of every discovered interface.
func TotalSize(eps []*Endpoint) uint64 {
	var total uint64
	for _, ep := range eps {
		for _, intf := range ep.Interfaces {
			total += intf.Size
		}
	}
	return total
}

// ECCEnabled reports whether any interface has ECC on.
func ECCEnabled(eps []*Endpoint) bool {
	for _, ep := range eps {
		for _, intf := range ep.Interfaces {
			if intf.ECC.Enabled {
				return true
			}
		}
	}
	return false
}
