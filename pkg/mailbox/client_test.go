// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/u-root/u-ddr/pkg/hardware/mmio/mmiotest"
	"github.com/u-root/u-ddr/pkg/mailbox"
	"github.com/u-root/u-ddr/pkg/mailbox/mailboxtest"
)

// memory answers like a sequencer with two 4 GiB inline ECC interfaces.
func memory(req *mailbox.Request) *mailbox.Response {
	switch {
	case req.CmdType == mailbox.CMD_GET_SYS_INFO && req.Opcode == mailbox.GET_MEM_INTF_INFO:
		return mailboxtest.Ready(2, 1<<29|0<<24, 1<<29|1<<24)
	case req.CmdType == mailbox.CMD_GET_MEM_INFO && req.Opcode == mailbox.GET_MEM_TECHNOLOGY:
		return mailboxtest.Ready(uint16(mailbox.TECH_LPDDR5))
	case req.CmdType == mailbox.CMD_GET_MEM_INFO && req.Opcode == mailbox.GET_MEM_WIDTH_INFO:
		return mailboxtest.Ready(0, 4096)
	case req.CmdType == mailbox.CMD_TRIG_CONTROLLER_OP && req.Opcode == mailbox.ECC_ENABLE_STATUS:
		return mailboxtest.Ready(0x5)
	case req.CmdType == mailbox.CMD_GET_MEM_CAL_INFO && req.Opcode == mailbox.GET_MEM_CAL_STATUS:
		return mailboxtest.Ready(0x1)
	}
	return mailboxtest.Ready(0)
}

type sequencer interface {
	requests() []mailbox.Request
}

type iossmSeq struct{ *mailboxtest.IOSSM }

func (s iossmSeq) requests() []mailbox.Request { return s.Requests }

type uibSeq struct{ *mailboxtest.UIB }

func (s uibSeq) requests() []mailbox.Request { return s.Requests }

func transports() map[string]func() (*mailbox.Client, sequencer) {
	return map[string]func() (*mailbox.Client, sequencer){
		"iossm": func() (*mailbox.Client, sequencer) {
			_, mb, s := newIOSSM(memory)
			return mailbox.NewClient(mb), iossmSeq{s}
		},
		"uib": func() (*mailbox.Client, sequencer) {
			_, mb, s := newUIB(memory)
			return mailbox.NewClient(mb), uibSeq{s}
		},
	}
}

func TestClientDiscovery(t *testing.T) {
	for name, open := range transports() {
		t.Run(name, func(t *testing.T) {
			c, _ := open()
			intfs, err := c.SysInfo()
			if err != nil {
				t.Fatal(err)
			}
			want := []mailbox.Interface{{IPType: 1, InstanceID: 0}, {IPType: 1, InstanceID: 1}}
			if diff := cmp.Diff(want, intfs); diff != "" {
				t.Fatalf("SysInfo() (-want +got):\n%s", diff)
			}
			tech, err := c.MemTechnology(intfs[1])
			if err != nil || tech != mailbox.TECH_LPDDR5 {
				t.Errorf("MemTechnology() = %v, %v", tech, err)
			}
			size, err := c.MemCapacity(intfs[1])
			if err != nil || size != 4<<30 {
				t.Errorf("MemCapacity() = %#x, %v", size, err)
			}
			ecc, err := c.ECCStatus(intfs[0])
			if err != nil || ecc != (mailbox.ECCStatus{Enabled: true, Inline: true}) {
				t.Errorf("ECCStatus() = %+v, %v", ecc, err)
			}
			ok, err := c.MemCalStatus(intfs[0])
			if err != nil || !ok {
				t.Errorf("MemCalStatus() = %v, %v", ok, err)
			}
		})
	}
}

func TestClientAddressesInterface(t *testing.T) {
	for name, open := range transports() {
		t.Run(name, func(t *testing.T) {
			c, s := open()
			if err := c.TrigMemCal(mailbox.Interface{IPType: 1, InstanceID: 1}); err != nil {
				t.Fatal(err)
			}
			r := s.requests()[0]
			if r.IPType != 1 || r.InstanceID != 1 || r.CmdType != mailbox.CMD_TRIG_MEM_CAL_OP || r.Opcode != mailbox.TRIG_MEM_CAL {
				t.Errorf("request %v", &r)
			}
		})
	}
}

func TestBISTMemInit(t *testing.T) {
	for name, open := range transports() {
		t.Run(name, func(t *testing.T) {
			c, s := open()
			intf := mailbox.Interface{IPType: 1}
			if err := c.BISTMemInitFull(intf); err != nil {
				t.Fatal(err)
			}
			if err := c.BISTMemInitByAddr(intf, 0x8_8000_0000, 1<<30); err != nil {
				t.Fatal(err)
			}
			r := s.requests()
			if diff := cmp.Diff([7]uint32{mailbox.BIST_FULL_RANGE}, r[0].Params); diff != "" {
				t.Errorf("full range params (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([7]uint32{30, 0x8000_0000, 0x8}, r[1].Params); diff != "" {
				t.Errorf("by address params (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBISTMemInitByAddrRejectsSize(t *testing.T) {
	for _, size := range []uint64{0, 3, 0x3000_0000, 1<<30 + 1} {
		// Any bus access fails the test.
		c := mailbox.NewClient(mailbox.NewIOSSM(mmiotest.NewScript(t), base, poller()))
		err := c.BISTMemInitByAddr(mailbox.Interface{IPType: 1}, 0x8000_0000, size)
		if !errors.Is(err, mailbox.ErrInvalidArgument) {
			t.Errorf("BISTMemInitByAddr(size %#x) = %v, want ErrInvalidArgument", size, err)
		}
	}
}

func TestECCErrors(t *testing.T) {
	m := mmiotest.New()
	l := &mailbox.IOSSMLayout
	m.Poke32(base+l.ECCStatus, 0xabc00003)
	entries := []uint32{
		1<<29 | 0<<24 | 5<<18 | 2<<14 | 0x3f, 0x12345678,
		1<<29 | 1<<24 | 1<<18 | 0<<14 | 0x00, 0x00001000,
		2<<29 | 3<<24 | 0<<18 | 8<<14 | 0x01, 0xfffffff0,
		// Beyond the counter, ignored.
		1<<29 | 0<<24 | 0<<18 | 3<<14, 0,
	}
	for i, w := range entries {
		m.Poke32(base+l.ECCEntries+uintptr(4*i), w)
	}

	errs := mailbox.ReadECCErrors(m, base, l)
	want := []mailbox.ECCErrInfo{
		{IPType: 1, InstanceID: 0, SourceID: 5, Type: mailbox.DOUBLE_BIT_ERROR, Addr: 0x3f_12345678},
		{IPType: 1, InstanceID: 1, SourceID: 1, Type: mailbox.SINGLE_BIT_ERROR, Addr: 0x1000},
		{IPType: 2, InstanceID: 3, SourceID: 0, Type: mailbox.READ_LINK_DOUBLE_BIT_ERROR, Addr: 0x1_fffffff0},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Errorf("ReadECCErrors() (-want +got):\n%s", diff)
	}
	if !mailbox.AnyDoubleBit(errs) || mailbox.AnyDoubleBit(errs[1:2]) {
		t.Errorf("AnyDoubleBit misclassified %v", errs)
	}
}

func TestECCErrorsUnsupported(t *testing.T) {
	if errs := mailbox.ReadECCErrors(mmiotest.NewScript(t), base, &mailbox.UIBLayout); errs != nil {
		t.Errorf("ReadECCErrors() = %v on a sequencer without an ECC FIFO", errs)
	}
}

func TestIsDoubleBit(t *testing.T) {
	for typ, want := range map[mailbox.ECCErrType]bool{
		mailbox.SINGLE_BIT_ERROR:               false,
		mailbox.MULTIPLE_SINGLE_BIT_ERRORS:     false,
		mailbox.DOUBLE_BIT_ERROR:               true,
		mailbox.MULTIPLE_DOUBLE_BIT_ERRORS:     true,
		mailbox.SINGLE_BIT_ERROR_SCRUBBING:     false,
		mailbox.WRITE_LINK_SINGLE_BIT_ERROR:    false,
		mailbox.WRITE_LINK_DOUBLE_BIT_ERROR:    true,
		mailbox.READ_LINK_SINGLE_BIT_ERROR:     false,
		mailbox.READ_LINK_DOUBLE_BIT_ERROR:     true,
		mailbox.READ_MODIFY_WRITE_DOUBLE_ERROR: true,
	} {
		if got := typ.IsDoubleBit(); got != want {
			t.Errorf("%v.IsDoubleBit() = %v, want %v", typ, got, want)
		}
	}
}
