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

// UIB sequencer mailbox registers. The mailbox is a narrow FIFO, a
// transaction is streamed in and out one word at a time.
const (
	UIB_MB_WR_ADDR uintptr = 0x500
	UIB_MB_WR_DATA uintptr = 0x504
	UIB_MB_WR_CTRL uintptr = 0x508
	UIB_MB_RD_ADDR uintptr = 0x510
	UIB_MB_RD_DATA uintptr = 0x514
	UIB_MB_RD_CTRL uintptr = 0x518

	UIB_MB_ADDR_VALID uint32 = 1 << 31
	UIB_MB_CTRL_VALID uint32 = 1 << 0
	UIB_MB_CTRL_EOB   uint32 = 1 << 1
)

// UIB is the byte-stream mailbox.
type UIB struct {
	mem     mmio.Bus
	Base    uintptr
	poller  *poll.Poller
	Timeout time.Duration
	// Handshake bounds each word of the stream.
	Handshake time.Duration
}

func NewUIB(mem mmio.Bus, base uintptr, p *poll.Poller) *UIB {
	return &UIB{
		mem:       mem,
		Base:      base,
		poller:    p,
		Timeout:   DefaultTimeout,
		Handshake: 200 * time.Millisecond,
	}
}

func (m *UIB) String() string {
	return fmt.Sprintf("UIB @ %#x", m.Base)
}

func (m *UIB) read(r uintptr) uint32 {
	return m.mem.MustRead32(m.Base + r)
}

func (m *UIB) write(r uintptr, v uint32) {
	m.mem.MustWrite32(m.Base+r, v)
}

func (m *UIB) wait(r uintptr, mask uint32, set bool, timeout time.Duration, what string) error {
	return m.poller.WaitBit32(m.mem, m.Base+r, mask, set, timeout, fmt.Sprintf("%v: %s", m, what))
}

// Frame is the request as streamed: request word, a mask of the parameters
// present, then those parameters.
func Frame(req *Request) []uint32 {
	f := []uint32{req.Word(), 0}
	for i, p := range req.Params {
		if p != 0 {
			f[1] |= 1 << i
			f = append(f, p)
		}
	}
	return f
}

func (m *UIB) send(req *Request) error {
	f := Frame(req)
	m.write(UIB_MB_WR_ADDR, UIB_MB_ADDR_VALID|uint32(req.InstanceID))
	for i, w := range f {
		if err := m.wait(UIB_MB_WR_CTRL, UIB_MB_CTRL_VALID, false, m.Handshake, "write FIFO space"); err != nil {
			return err
		}
		m.write(UIB_MB_WR_DATA, w)
		ctrl := UIB_MB_CTRL_VALID
		if i == len(f)-1 {
			ctrl |= UIB_MB_CTRL_EOB
		}
		m.write(UIB_MB_WR_CTRL, ctrl)
	}
	return nil
}

func (m *UIB) receive(req *Request) ([]uint32, error) {
	m.write(UIB_MB_RD_ADDR, UIB_MB_ADDR_VALID|uint32(req.InstanceID))
	var words []uint32
	timeout := m.Timeout
	for {
		if err := m.wait(UIB_MB_RD_CTRL, UIB_MB_CTRL_VALID, true, timeout,
			fmt.Sprintf("response to %v", req)); err != nil {
			return nil, err
		}
		// Only the first word waits on the command itself.
		timeout = m.Handshake
		if len(words) == 1+NumData {
			return nil, fmt.Errorf("%v: response to %v longer than %d words: %w", m, req, 1+NumData, ErrProtocol)
		}
		ctrl := m.read(UIB_MB_RD_CTRL)
		words = append(words, m.read(UIB_MB_RD_DATA))
		// Valid is write-one-to-clear, it acknowledges the word.
		m.write(UIB_MB_RD_CTRL, UIB_MB_CTRL_VALID)
		if ctrl&UIB_MB_CTRL_EOB != 0 {
			return words, nil
		}
	}
}

func (m *UIB) Do(req *Request, nData int) (*Response, error) {
	if nData > NumData {
		return nil, fmt.Errorf("%v: %d response words requested: %w", m, nData, ErrInvalidArgument)
	}
	if err := m.wait(UIB_MB_WR_ADDR, UIB_MB_ADDR_VALID, false, m.Timeout,
		fmt.Sprintf("idle before %v", req)); err != nil {
		return nil, err
	}
	if err := m.send(req); err != nil {
		return nil, err
	}
	words, err := m.receive(req)
	if err != nil {
		return nil, err
	}
	resp := &Response{Status: words[0]}
	if !resp.Ready() {
		return nil, fmt.Errorf("%v: %v: status %08x without response ready: %w", m, req, resp.Status, ErrProtocol)
	}
	if err := resp.Err(); err != nil {
		log.Errorf("%v: %v failed: %v", m, req, err)
		return nil, fmt.Errorf("%v: %v: %w", m, req, err)
	}
	if len(words)-1 < nData {
		return nil, fmt.Errorf("%v: %v: %d data words, want %d: %w", m, req, len(words)-1, nData, ErrProtocol)
	}
	copy(resp.Data[:], words[1:1+nData])
	return resp, nil
}
