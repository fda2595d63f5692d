// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmhodges/clock"
	"github.com/u-root/u-ddr/pkg/hardware/mmio/mmiotest"
	"github.com/u-root/u-ddr/pkg/mailbox"
	"github.com/u-root/u-ddr/pkg/mailbox/mailboxtest"
	"github.com/u-root/u-ddr/pkg/poll"
)

const base uintptr = 0x18400000

func poller() *poll.Poller {
	return poll.New(clock.NewFake(), time.Millisecond)
}

func newIOSSM(h mailboxtest.Handler) (*mmiotest.Mem, *mailbox.IOSSM, *mailboxtest.IOSSM) {
	m := mmiotest.New()
	m.Record = true
	s := mailboxtest.AttachIOSSM(m, base, h)
	t := mailbox.NewIOSSM(m, base, poller())
	t.Timeout = 100 * time.Millisecond
	return m, t, s
}

func newUIB(h mailboxtest.Handler) (*mmiotest.Mem, *mailbox.UIB, *mailboxtest.UIB) {
	m := mmiotest.New()
	m.Record = true
	s := mailboxtest.AttachUIB(m, base, h)
	t := mailbox.NewUIB(m, base, poller())
	t.Timeout = 100 * time.Millisecond
	return m, t, s
}

func TestRequestWord(t *testing.T) {
	for _, tt := range []struct {
		req  mailbox.Request
		want uint32
	}{
		{mailbox.Request{CmdType: mailbox.CMD_GET_SYS_INFO, Opcode: mailbox.GET_MEM_INTF_INFO}, 0x00010001},
		{mailbox.Request{IPType: 1, InstanceID: 3, CmdType: mailbox.CMD_TRIG_CONTROLLER_OP, Opcode: mailbox.BIST_MEM_INIT_START}, 0x23040303},
		{mailbox.Request{IPType: 7, InstanceID: 0x1f, CmdType: 0xff, Opcode: 0xffff}, 0xffffffff},
	} {
		if got := tt.req.Word(); got != tt.want {
			t.Errorf("%v.Word() = %08x, want %08x", &tt.req, got, tt.want)
		}
		if d := mailboxtest.Decode(tt.want); d.Word() != tt.want {
			t.Errorf("Decode(%08x) round trips to %08x", tt.want, d.Word())
		}
	}
}

func TestIOSSMIdleBeforePost(t *testing.T) {
	m, mb, s := newIOSSM(func(*mailbox.Request) *mailbox.Response { return mailboxtest.Ready(0) })
	m.Poke32(base+mailbox.IOSSM_CMD_REQ, 0x00010001)

	_, err := mb.Do(&mailbox.Request{CmdType: mailbox.CMD_GET_MEM_INFO, Opcode: 2, Params: [7]uint32{1}}, 0)
	if !errors.Is(err, poll.ErrTimeout) {
		t.Fatalf("Do() = %v, want timeout", err)
	}
	if w := m.Writes(); len(w) != 0 {
		t.Errorf("busy channel written: %v", w)
	}
	if len(s.Requests) != 0 {
		t.Errorf("sequencer saw %d requests", len(s.Requests))
	}
}

func TestIOSSMSkipsZeroParams(t *testing.T) {
	m, mb, s := newIOSSM(func(*mailbox.Request) *mailbox.Response { return mailboxtest.Ready(0) })
	req := &mailbox.Request{IPType: 1, CmdType: mailbox.CMD_TRIG_CONTROLLER_OP, Opcode: mailbox.BIST_MEM_INIT_START,
		Params: [7]uint32{0x1e, 0, 0x3, 0, 0, 0, 0x9}}
	if _, err := mb.Do(req, 0); err != nil {
		t.Fatal(err)
	}
	var addrs []uintptr
	for _, w := range m.Writes() {
		addrs = append(addrs, w.Address-base)
	}
	want := []uintptr{0x438, 0x430, 0x420, mailbox.IOSSM_CMD_REQ, mailbox.IOSSM_CMD_RESPONSE_STATUS}
	if diff := cmp.Diff(want, addrs); diff != "" {
		t.Errorf("write offsets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(req.Params, s.Requests[0].Params); diff != "" {
		t.Errorf("params seen by the sequencer (-want +got):\n%s", diff)
	}
}

func TestIOSSMResponse(t *testing.T) {
	m, mb, _ := newIOSSM(func(*mailbox.Request) *mailbox.Response {
		return mailboxtest.Ready(0x2, 0x11, 0x22, 0x33)
	})
	r, err := mb.Do(&mailbox.Request{CmdType: mailbox.CMD_GET_SYS_INFO, Opcode: mailbox.GET_MEM_INTF_INFO}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if r.ShortData() != 2 || r.Data != [3]uint32{0x11, 0x22, 0} {
		t.Errorf("response %+v", r)
	}
	if m.Peek32(base+mailbox.IOSSM_CMD_RESPONSE_STATUS)&mailbox.STATUS_RESPONSE_READY != 0 {
		t.Errorf("response ready not cleared")
	}
}

func TestIOSSMProtocolError(t *testing.T) {
	m, mb, _ := newIOSSM(func(*mailbox.Request) *mailbox.Response {
		// General error bits 0 and 1, command error bit 0.
		return &mailbox.Response{Status: 0x3<<1 | 0x1<<5 | mailbox.STATUS_RESPONSE_READY}
	})
	_, err := mb.Do(&mailbox.Request{CmdType: mailbox.CMD_TRIG_MEM_CAL_OP, Opcode: mailbox.TRIG_MEM_CAL}, 0)
	if !errors.Is(err, mailbox.ErrProtocol) {
		t.Fatalf("Do() = %v, want ErrProtocol", err)
	}
	for _, s := range []string{"command not supported", "invalid parameter", "command failed"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error %q does not mention %q", err, s)
		}
	}
	if m.Peek32(base+mailbox.IOSSM_CMD_RESPONSE_STATUS)&mailbox.STATUS_RESPONSE_READY != 0 {
		t.Errorf("response ready not cleared after an error")
	}
}

func TestIOSSMNoResponse(t *testing.T) {
	_, mb, _ := newIOSSM(nil)
	_, err := mb.Do(&mailbox.Request{CmdType: mailbox.CMD_NOP}, 0)
	if !errors.Is(err, poll.ErrTimeout) {
		t.Errorf("Do() = %v, want timeout", err)
	}
}

func TestUIBTransaction(t *testing.T) {
	m, mb, s := newUIB(func(*mailbox.Request) *mailbox.Response {
		return mailboxtest.Ready(0x1, 0xabc)
	})
	req := &mailbox.Request{IPType: 2, InstanceID: 1, CmdType: mailbox.CMD_GET_MEM_INFO, Opcode: mailbox.GET_MEM_WIDTH_INFO,
		Params: [7]uint32{0, 0x5}}
	r, err := mb.Do(req, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r.Data[0] != 0xabc || r.ShortData() != 1 {
		t.Errorf("response %+v", r)
	}
	if diff := cmp.Diff([]uint32{req.Word(), 0x2, 0x5}, m.WritesTo(base+mailbox.UIB_MB_WR_DATA)); diff != "" {
		t.Errorf("streamed frame (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(req.Params, s.Requests[0].Params); diff != "" {
		t.Errorf("params seen by the sequencer (-want +got):\n%s", diff)
	}
	// Channel is reusable.
	if _, err := mb.Do(req, 0); err != nil {
		t.Errorf("second Do() = %v", err)
	}
}

func TestUIBIdleBeforePost(t *testing.T) {
	m, mb, _ := newUIB(func(*mailbox.Request) *mailbox.Response { return mailboxtest.Ready(0) })
	m.Poke32(base+mailbox.UIB_MB_WR_ADDR, mailbox.UIB_MB_ADDR_VALID)
	if _, err := mb.Do(&mailbox.Request{CmdType: mailbox.CMD_NOP}, 0); !errors.Is(err, poll.ErrTimeout) {
		t.Fatalf("Do() = %v, want timeout", err)
	}
	if w := m.Writes(); len(w) != 0 {
		t.Errorf("busy channel written: %v", w)
	}
}

func TestUIBProtocolError(t *testing.T) {
	_, mb, _ := newUIB(func(*mailbox.Request) *mailbox.Response {
		return &mailbox.Response{Status: 0x8<<1 | mailbox.STATUS_RESPONSE_READY}
	})
	_, err := mb.Do(&mailbox.Request{CmdType: mailbox.CMD_TRIG_MEM_CAL_OP, Opcode: mailbox.TRIG_MEM_CAL}, 0)
	if !errors.Is(err, mailbox.ErrProtocol) || !strings.Contains(err.Error(), "internal error") {
		t.Errorf("Do() = %v, want internal error", err)
	}
}

func TestUIBResponseTooLong(t *testing.T) {
	_, mb, s := newUIB(func(*mailbox.Request) *mailbox.Response {
		return mailboxtest.Ready(0x1, 0xabc)
	})
	s.Trailer = []uint32{0xdead}
	_, err := mb.Do(&mailbox.Request{CmdType: mailbox.CMD_GET_MEM_INFO, Opcode: mailbox.GET_MEM_WIDTH_INFO}, 1)
	if !errors.Is(err, mailbox.ErrProtocol) {
		t.Errorf("Do() = %v, want %v", err, mailbox.ErrProtocol)
	}
}

func TestTooManyDataWords(t *testing.T) {
	_, mb, _ := newIOSSM(nil)
	if _, err := mb.Do(&mailbox.Request{}, 4); !errors.Is(err, mailbox.ErrInvalidArgument) {
		t.Errorf("Do(4 words) = %v", err)
	}
}
