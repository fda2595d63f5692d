// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mailboxtest simulates the sequencer side of both mailbox wire
// encodings on top of an mmiotest register file.
package mailboxtest

import (
	"github.com/u-root/u-ddr/pkg/hardware/mmio/mmiotest"
	"github.com/u-root/u-ddr/pkg/mailbox"
)

// Handler answers one request. Returning nil leaves the request unanswered.
type Handler func(req *mailbox.Request) *mailbox.Response

// Ready returns a successful response carrying short data and data words.
func Ready(short uint16, data ...uint32) *mailbox.Response {
	r := &mailbox.Response{Status: uint32(short)<<16 | mailbox.STATUS_RESPONSE_READY}
	copy(r.Data[:], data)
	return r
}

// Decode splits a composite request word.
func Decode(w uint32) mailbox.Request {
	return mailbox.Request{
		IPType:     uint8(w >> 29),
		InstanceID: uint8(w>>24) & 0x1f,
		CmdType:    mailbox.CmdType(w >> 16),
		Opcode:     uint16(w),
	}
}

// Sequencer is the common part of both simulations.
type Sequencer struct {
	Mem     *mmiotest.Mem
	Base    uintptr
	Handler Handler
	// Requests holds every request seen, in order.
	Requests []mailbox.Request
}

func (s *Sequencer) handle(req mailbox.Request) *mailbox.Response {
	s.Requests = append(s.Requests, req)
	if s.Handler == nil {
		return nil
	}
	return s.Handler(&req)
}

// IOSSM answers requests posted to the register mapped mailbox.
type IOSSM struct {
	Sequencer
}

func AttachIOSSM(m *mmiotest.Mem, base uintptr, h Handler) *IOSSM {
	s := &IOSSM{Sequencer{Mem: m, Base: base, Handler: h}}
	m.OnWrite(base+mailbox.IOSSM_CMD_REQ, func(m *mmiotest.Mem, a uintptr, v uint32) {
		req := Decode(v)
		for i := range req.Params {
			req.Params[i] = m.Peek32(base + mailbox.IOSSM_CMD_PARAM_0 - uintptr(4*i))
		}
		resp := s.handle(req)
		if resp == nil {
			return
		}
		for i, d := range resp.Data {
			m.Poke32(base+mailbox.IOSSM_CMD_RESPONSE_DATA_0-uintptr(4*i), d)
		}
		m.Poke32(base+mailbox.IOSSM_CMD_RESPONSE_STATUS, resp.Status)
		m.Poke32(base+mailbox.IOSSM_CMD_REQ, 0)
	})
	return s
}

// UIB answers requests streamed through the UIB mailbox FIFO.
type UIB struct {
	Sequencer
	// Trailer is streamed after each response, before end of burst.
	Trailer []uint32
	frame   []uint32
	out     []uint32
}

func AttachUIB(m *mmiotest.Mem, base uintptr, h Handler) *UIB {
	s := &UIB{Sequencer: Sequencer{Mem: m, Base: base, Handler: h}}
	m.OnWrite(base+mailbox.UIB_MB_WR_CTRL, func(m *mmiotest.Mem, a uintptr, v uint32) {
		if v&mailbox.UIB_MB_CTRL_VALID == 0 {
			return
		}
		s.frame = append(s.frame, m.Peek32(base+mailbox.UIB_MB_WR_DATA))
		m.Poke32(a, 0)
		if v&mailbox.UIB_MB_CTRL_EOB != 0 {
			s.request()
		}
	})
	m.OnWrite(base+mailbox.UIB_MB_RD_ADDR, func(m *mmiotest.Mem, a uintptr, v uint32) {
		s.present()
	})
	m.OnWrite(base+mailbox.UIB_MB_RD_CTRL, func(m *mmiotest.Mem, a uintptr, v uint32) {
		if v&mailbox.UIB_MB_CTRL_VALID == 0 {
			return
		}
		if len(s.out) > 0 {
			s.out = s.out[1:]
		}
		s.present()
	})
	return s
}

func (s *UIB) request() {
	f := s.frame
	s.frame = nil
	req := Decode(f[0])
	p := f[2:]
	for i := range req.Params {
		if f[1]&(1<<i) != 0 && len(p) > 0 {
			req.Params[i] = p[0]
			p = p[1:]
		}
	}
	resp := s.handle(req)
	if resp == nil {
		return
	}
	s.out = append([]uint32{resp.Status}, resp.Data[:]...)
	s.out = append(s.out, s.Trailer...)
}

func (s *UIB) present() {
	m := s.Mem
	if len(s.out) == 0 {
		m.Poke32(s.Base+mailbox.UIB_MB_RD_CTRL, 0)
		m.Poke32(s.Base+mailbox.UIB_MB_RD_ADDR, 0)
		m.Poke32(s.Base+mailbox.UIB_MB_WR_ADDR, 0)
		return
	}
	ctrl := mailbox.UIB_MB_CTRL_VALID
	if len(s.out) == 1 {
		ctrl |= mailbox.UIB_MB_CTRL_EOB
	}
	m.Poke32(s.Base+mailbox.UIB_MB_RD_DATA, s.out[0])
	m.Poke32(s.Base+mailbox.UIB_MB_RD_CTRL, ctrl)
}
