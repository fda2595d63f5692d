// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox

import (
	"fmt"
	"time"

	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/poll"
)

// IOSSM mailbox registers
const (
	IOSSM_CMD_PARAM_0         uintptr = 0x438
	IOSSM_CMD_REQ             uintptr = 0x43c
	IOSSM_CMD_RESPONSE_DATA_0 uintptr = 0x458
	IOSSM_CMD_RESPONSE_STATUS uintptr = 0x45c
)

// Parameter and response data registers count down from the first one.
func iossmParam(i int) uintptr {
	return IOSSM_CMD_PARAM_0 - uintptr(4*i)
}

func iossmData(i int) uintptr {
	return IOSSM_CMD_RESPONSE_DATA_0 - uintptr(4*i)
}

const DefaultTimeout = 120 * time.Second

// IOSSM is the register mapped mailbox.
type IOSSM struct {
	mem     mmio.Bus
	Base    uintptr
	poller  *poll.Poller
	Timeout time.Duration
}

func NewIOSSM(mem mmio.Bus, base uintptr, p *poll.Poller) *IOSSM {
	return &IOSSM{mem: mem, Base: base, poller: p, Timeout: DefaultTimeout}
}

func (m *IOSSM) String() string {
	return fmt.Sprintf("IOSSM @ %#x", m.Base)
}

func (m *IOSSM) read(r uintptr) uint32 {
	return m.mem.MustRead32(m.Base + r)
}

func (m *IOSSM) write(r uintptr, v uint32) {
	m.mem.MustWrite32(m.Base+r, v)
}

func (m *IOSSM) Do(req *Request, nData int) (*Response, error) {
	if nData > NumData {
		return nil, fmt.Errorf("%v: %d response words requested: %w", m, nData, ErrInvalidArgument)
	}
	if err := m.poller.WaitBit32(m.mem, m.Base+IOSSM_CMD_REQ, 0xffffffff, false, m.Timeout,
		fmt.Sprintf("%v: idle before %v", m, req)); err != nil {
		return nil, err
	}

	for i, p := range req.Params {
		if p != 0 {
			m.write(iossmParam(i), p)
		}
	}
	m.write(IOSSM_CMD_REQ, req.Word())

	werr := m.poller.WaitBit32(m.mem, m.Base+IOSSM_CMD_RESPONSE_STATUS, STATUS_RESPONSE_READY, true, m.Timeout,
		fmt.Sprintf("%v: response to %v", m, req))
	resp := &Response{Status: m.read(IOSSM_CMD_RESPONSE_STATUS)}
	if werr != nil {
		log.Errorf("%v: no response to %v, status %08x (general %#x, command %#x)",
			m, req, resp.Status, resp.GeneralError(), resp.CommandError())
		return nil, werr
	}
	err := resp.Err()
	if err == nil {
		for i := 0; i < nData; i++ {
			resp.Data[i] = m.read(iossmData(i))
		}
	} else {
		log.Errorf("%v: %v failed: %v", m, req, err)
	}

	mmio.ClrBits32(m.mem, m.Base+IOSSM_CMD_RESPONSE_STATUS, STATUS_RESPONSE_READY)
	if err != nil {
		return nil, fmt.Errorf("%v: %v: %w", m, req, err)
	}
	return resp, nil
}
