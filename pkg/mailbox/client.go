// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox

import (
	"fmt"
	"math/bits"
)

// Client issues sequencer commands independently of the wire encoding.
type Client struct {
	T Transport
}

func NewClient(t Transport) *Client {
	return &Client{T: t}
}

// Interface identifies one memory interface behind a sequencer.
type Interface struct {
	IPType     uint8
	InstanceID uint8
}

func (i Interface) String() string {
	return fmt.Sprintf("interface %d/%d", i.IPType, i.InstanceID)
}

func (c *Client) do(intf Interface, cmd CmdType, op uint16, nData int, params ...uint32) (*Response, error) {
	req := &Request{IPType: intf.IPType, InstanceID: intf.InstanceID, CmdType: cmd, Opcode: op}
	copy(req.Params[:], params)
	return c.T.Do(req, nData)
}

// SysInfo lists the memory interfaces the sequencer drives.
func (c *Client) SysInfo() ([]Interface, error) {
	r, err := c.do(Interface{}, CMD_GET_SYS_INFO, GET_MEM_INTF_INFO, 2)
	if err != nil {
		return nil, err
	}
	n := int(r.ShortData() & 0x3)
	if n > 2 {
		return nil, fmt.Errorf("%d memory interfaces reported: %w", n, ErrProtocol)
	}
	var intfs []Interface
	for i := 0; i < n; i++ {
		d := r.Data[i]
		intf := Interface{IPType: uint8(d>>29) & 0x7, InstanceID: uint8(d>>24) & 0x1f}
		if intf.IPType == IP_TYPE_NONE {
			continue
		}
		intfs = append(intfs, intf)
	}
	return intfs, nil
}

type Technology uint8

const (
	TECH_DDR4       Technology = 0
	TECH_DDR5       Technology = 1
	TECH_DDR5_RDIMM Technology = 2
	TECH_LPDDR4     Technology = 3
	TECH_LPDDR5     Technology = 4
	TECH_QDRIV      Technology = 5
	TECH_HBM        Technology = 6
)

var techNames = map[Technology]string{
	TECH_DDR4:       "DDR4",
	TECH_DDR5:       "DDR5",
	TECH_DDR5_RDIMM: "DDR5 RDIMM",
	TECH_LPDDR4:     "LPDDR4",
	TECH_LPDDR5:     "LPDDR5",
	TECH_QDRIV:      "QDR-IV",
	TECH_HBM:        "HBM",
}

func (t Technology) String() string {
	if s, ok := techNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Technology(%d)", uint8(t))
}

func (c *Client) MemTechnology(intf Interface) (Technology, error) {
	r, err := c.do(intf, CMD_GET_MEM_INFO, GET_MEM_TECHNOLOGY, 0)
	if err != nil {
		return 0, err
	}
	return Technology(r.ShortData() & 0x7), nil
}

// MemCapacity returns the interface capacity in bytes.
func (c *Client) MemCapacity(intf Interface) (uint64, error) {
	r, err := c.do(intf, CMD_GET_MEM_INFO, GET_MEM_WIDTH_INFO, 1)
	if err != nil {
		return 0, err
	}
	return uint64(r.Data[0]) << 20, nil
}

type ECCStatus struct {
	Enabled bool
	// Inline ECC keeps check bits in the data address space.
	Inline bool
}

func (c *Client) ECCStatus(intf Interface) (ECCStatus, error) {
	r, err := c.do(intf, CMD_TRIG_CONTROLLER_OP, ECC_ENABLE_STATUS, 0)
	if err != nil {
		return ECCStatus{}, err
	}
	d := r.ShortData()
	return ECCStatus{Enabled: d&0x3 != 0, Inline: d&0x4 != 0}, nil
}

func (c *Client) TrigMemCal(intf Interface) error {
	_, err := c.do(intf, CMD_TRIG_MEM_CAL_OP, TRIG_MEM_CAL, 0)
	return err
}

// MemCalStatus asks the sequencer for the calibration result.
func (c *Client) MemCalStatus(intf Interface) (bool, error) {
	r, err := c.do(intf, CMD_GET_MEM_CAL_INFO, GET_MEM_CAL_STATUS, 0)
	if err != nil {
		return false, err
	}
	d := r.ShortData()
	return d&0x1 != 0 && d&0x2 == 0, nil
}

// BIST_FULL_RANGE as the first parameter initializes the whole interface.
const BIST_FULL_RANGE uint32 = 0x40

// BISTMemInitFull starts BIST over the whole interface.
func (c *Client) BISTMemInitFull(intf Interface) error {
	_, err := c.do(intf, CMD_TRIG_CONTROLLER_OP, BIST_MEM_INIT_START, 0, BIST_FULL_RANGE)
	return err
}

// BISTMemInitByAddr starts BIST over one region. The size is sent as its
// base 2 logarithm, so it must be a power of two. addr is 38 bits.
func (c *Client) BISTMemInitByAddr(intf Interface, addr, size uint64) error {
	if size == 0 || size&(size-1) != 0 {
		return fmt.Errorf("BIST size %#x is not a power of two: %w", size, ErrInvalidArgument)
	}
	if addr >= 1<<38 {
		return fmt.Errorf("BIST address %#x beyond 38 bits: %w", addr, ErrInvalidArgument)
	}
	log2 := uint32(bits.TrailingZeros64(size))
	_, err := c.do(intf, CMD_TRIG_CONTROLLER_OP, BIST_MEM_INIT_START, 0,
		log2, uint32(addr), uint32(addr>>32)&0x3f)
	return err
}

func (c *Client) ECCInterruptAck(intf Interface) error {
	_, err := c.do(intf, CMD_TRIG_CONTROLLER_OP, ECC_INTERRUPT_ACK, 0)
	return err
}
