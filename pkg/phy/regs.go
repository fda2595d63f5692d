// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

// PHY registers are 16 bits wide and numbered in PHY address units. On the
// APB bus each lives at base + (reg << 1).
const (
	APBONLY0              uint32 = 0xd0000
	UCTSHADOWREGS         uint32 = 0xd0004
	DCTWRITEPROT          uint32 = 0xd0031
	UCTWRITEONLYSHADOW    uint32 = 0xd0032
	UCTDATWRITEONLYSHADOW uint32 = 0xd0034
	MICRORESET            uint32 = 0xd0099

	IMEM uint32 = 0x50000
	DMEM uint32 = 0x54000
)

const (
	// Cleared, the CPU owns the PHY CSRs and memories. Set, they belong to
	// the PHY microcontroller.
	MICROCONTMUXSEL uint16 = 1 << 0

	// Clear while a message is waiting for the CPU.
	UCT_WRITE_PROT_SHADOW uint16 = 1 << 0

	MICRORESET_STALL uint16 = 1 << 0
	MICRORESET_RESET uint16 = 1 << 3
)

// Major messages from the training firmware
const (
	MSG_END_OF_INIT      uint32 = 0x00
	MSG_FINE_WR_LVL      uint32 = 0x01
	MSG_READ_EN_TRAINING uint32 = 0x02
	MSG_READ_DELAY_CTR   uint32 = 0x03
	MSG_WRITE_DELAY_CTR  uint32 = 0x04
	MSG_2D_READ_DELAY    uint32 = 0x05
	MSG_2D_WRITE_DELAY   uint32 = 0x06
	MSG_COMPLETED        uint32 = 0x07
	MSG_STREAMING        uint32 = 0x08
	MSG_MAX_RD_LATENCY   uint32 = 0x09
	MSG_MAX_RD_DQS_SKEW  uint32 = 0x0a
	MSG_FAILED           uint32 = 0xff
)

// Training results in the DMEM message block, one word per byte lane with
// the value in the low byte.
const (
	DMEM_CDD_RR       uint32 = 0x30
	DMEM_CDD_WW       uint32 = 0x40
	DMEM_CDD_WR       uint32 = 0x50
	DMEM_CDD_RW       uint32 = 0x60
	DMEM_TX_DQS_DELAY uint32 = 0x70
)

var majorMessages = map[uint32]string{
	MSG_END_OF_INIT:      "end of initialization",
	MSG_FINE_WR_LVL:      "end of fine write leveling",
	MSG_READ_EN_TRAINING: "end of read enable training",
	MSG_READ_DELAY_CTR:   "end of read delay center optimization",
	MSG_WRITE_DELAY_CTR:  "end of write delay center optimization",
	MSG_2D_READ_DELAY:    "end of 2D read delay/voltage center optimization",
	MSG_2D_WRITE_DELAY:   "end of 2D write delay/voltage center optimization",
	MSG_COMPLETED:        "training has run successfully",
	MSG_STREAMING:        "start streaming message mode",
	MSG_MAX_RD_LATENCY:   "end of max read latency training",
	MSG_MAX_RD_DQS_SKEW:  "end of read dq deskew training",
	MSG_FAILED:           "training has failed",
}
