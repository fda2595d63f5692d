// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdram

import (
	"errors"
	"fmt"

	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/handoff"
	"github.com/u-root/u-ddr/pkg/mailbox"
	"github.com/u-root/u-ddr/pkg/phy"
	"github.com/u-root/u-ddr/pkg/poll"
	"github.com/u-root/u-ddr/pkg/umctl2"
)

// Error kinds. Every error Init returns matches ErrFatal and at most one
// of the others.
var (
	ErrFormat          = handoff.ErrFormat
	ErrTimeout         = poll.ErrTimeout
	ErrProtocol        = mailbox.ErrProtocol
	ErrInvalidArgument = mailbox.ErrInvalidArgument
	ErrCapacity        = banks.ErrCapacity
	ErrDataIntegrity   = errors.New("DRAM data integrity error")
	ErrFatal           = errors.New("DDR bring-up halted")
)

// Error is a failed bring-up stage.
type Error struct {
	Stage string
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("DDR %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrFatal || (e.Kind != nil && target == e.Kind)
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, ErrFormat):
		return ErrFormat
	case errors.Is(err, ErrTimeout):
		return ErrTimeout
	case errors.Is(err, ErrProtocol), errors.Is(err, phy.ErrTrainingFailed):
		return ErrProtocol
	case errors.Is(err, ErrInvalidArgument):
		return ErrInvalidArgument
	case errors.Is(err, ErrCapacity):
		return ErrCapacity
	case errors.Is(err, banks.ErrSizeCheck), errors.Is(err, umctl2.ErrFatalParity),
		errors.Is(err, phy.ErrFirmwareVerify):
		return ErrDataIntegrity
	}
	return nil
}

func halt(stage string, err error) error {
	return haltAs(stage, kindOf(err), err)
}

func haltAs(stage string, kind, err error) error {
	log.Errorf("DDR: %s failed: %v", stage, err)
	return &Error{Stage: stage, Kind: kind, Err: err}
}
