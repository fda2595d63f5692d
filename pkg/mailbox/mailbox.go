// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mailbox talks to the embedded memory sequencers (IOSSM and the
// UIB sequencer) that calibrate and initialize the DRAM on their own.
//
// A transaction is one request and one response. The channel of an
// instance carries at most one transaction at a time: a request is posted
// only once the channel reads back idle, and every response is
// acknowledged before the channel is reused.
package mailbox

import (
	"errors"
	"fmt"

	"github.com/u-root/u-ddr/pkg/logger"
	"go.uber.org/multierr"
)

var log = logger.LogContainer.GetSimpleLogger()

var (
	ErrProtocol        = errors.New("mailbox protocol error")
	ErrInvalidArgument = errors.New("invalid argument")
)

type CmdType uint8

const (
	CMD_NOP                CmdType = 0x0
	CMD_GET_SYS_INFO       CmdType = 0x1
	CMD_GET_MEM_INFO       CmdType = 0x2
	CMD_GET_MEM_CAL_INFO   CmdType = 0x3
	CMD_TRIG_CONTROLLER_OP CmdType = 0x4
	CMD_TRIG_MEM_CAL_OP    CmdType = 0x5
)

// Opcodes, per command type
const (
	GET_MEM_INTF_INFO   uint16 = 0x0001
	GET_MEM_TECHNOLOGY  uint16 = 0x0002
	GET_MEM_WIDTH_INFO  uint16 = 0x0004
	GET_MEM_CAL_STATUS  uint16 = 0x0001
	TRIG_MEM_CAL        uint16 = 0x000a
	ECC_ENABLE_STATUS   uint16 = 0x0102
	ECC_INTERRUPT_ACK   uint16 = 0x0114
	BIST_MEM_INIT_START uint16 = 0x0303
)

// IP types
const (
	IP_TYPE_NONE uint8 = 0
	IP_TYPE_EMIF uint8 = 1
	IP_TYPE_UIB  uint8 = 2
)

const (
	NumParams = 7
	NumData   = 3
)

type Request struct {
	IPType     uint8
	InstanceID uint8
	CmdType    CmdType
	Opcode     uint16
	// A zero parameter is not sent.
	Params [NumParams]uint32
}

// Word is the composite request register value.
func (r *Request) Word() uint32 {
	return uint32(r.IPType&0x7)<<29 |
		uint32(r.InstanceID&0x1f)<<24 |
		uint32(r.CmdType)<<16 |
		uint32(r.Opcode)
}

func (r *Request) String() string {
	return fmt.Sprintf("{ip %d/%d cmd %#x op %#04x}", r.IPType, r.InstanceID, r.CmdType, r.Opcode)
}

const (
	STATUS_RESPONSE_READY uint32 = 1 << 0
)

type Response struct {
	Status uint32
	Data   [NumData]uint32
}

func (r *Response) Ready() bool {
	return r.Status&STATUS_RESPONSE_READY != 0
}

func (r *Response) ShortData() uint16 {
	return uint16(r.Status >> 16)
}

// GeneralError is the 4-bit general error field.
func (r *Response) GeneralError() uint32 {
	return (r.Status >> 1) & 0xf
}

// CommandError is the 3-bit command response error field.
func (r *Response) CommandError() uint32 {
	return (r.Status >> 5) & 0x7
}

var generalErrors = []string{
	"command not supported",
	"invalid parameter",
	"sequencer busy",
	"internal error",
}

var commandErrors = []string{
	"command failed",
	"command timed out",
	"calibration not done",
}

func bitErrors(field uint32, names []string, kind string) error {
	var err error
	for i, n := range names {
		if field&(1<<i) != 0 {
			err = multierr.Append(err, fmt.Errorf("%s: %s", kind, n))
		}
	}
	return err
}

// Err decodes both error fields. Every condition flagged is reported.
func (r *Response) Err() error {
	if r.GeneralError() == 0 && r.CommandError() == 0 {
		return nil
	}
	err := multierr.Combine(
		bitErrors(r.GeneralError(), generalErrors, "general error"),
		bitErrors(r.CommandError(), commandErrors, "command response error"),
	)
	return fmt.Errorf("status %08x (general %#x, command %#x): %v: %w",
		r.Status, r.GeneralError(), r.CommandError(), err, ErrProtocol)
}

// Transport moves one transaction over a particular wire encoding.
type Transport interface {
	// Do posts req and returns the response with nData data words.
	Do(req *Request, nData int) (*Response, error)
}
