// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox

// Recalibration is how a failed calibration is retried.
type Recalibration int

const (
	// RecalByCommand sends TRIG_MEM_CAL through the mailbox.
	RecalByCommand Recalibration = iota
	// RecalByResetRequest requests a sequencer reset with calibration.
	RecalByResetRequest
)

// StatusLayout places the status bits a sequencer exposes outside the
// mailbox, relative to its base.
type StatusLayout struct {
	CalStatus  uintptr
	CalSuccess uint32
	CalFail    uint32

	// BIST done, per memory interface index.
	BISTDone     []uintptr
	BISTDoneMask []uint32

	// ECC error status and FIFO, zero when the sequencer has none.
	ECCStatus  uintptr
	ECCEntries uintptr

	Recal Recalibration
	// Reset request register, for RecalByResetRequest.
	ResetRequest uintptr
}

// IOSSM sequencer status
var IOSSMLayout = StatusLayout{
	CalStatus:    0x400,
	CalSuccess:   1 << 0,
	CalFail:      1 << 1,
	BISTDone:     []uintptr{0x260, 0x2e0},
	BISTDoneMask: []uint32{1 << 0, 1 << 0},
	ECCStatus:    0x300,
	ECCEntries:   0x310,
	Recal:        RecalByCommand,
}

// UIB sequencer status
var UIBLayout = StatusLayout{
	CalStatus:    0x000,
	CalSuccess:   1 << 1,
	CalFail:      1 << 2,
	BISTDone:     []uintptr{0x008, 0x008},
	BISTDoneMask: []uint32{1 << 0, 1 << 1},
	Recal:        RecalByResetRequest,
	ResetRequest: 0x004,
}

// UIB reset request register
const (
	UIB_RESET_TYPE_MASK uint32 = 0x3
	UIB_RESET_WITH_CAL  uint32 = 0x2
	UIB_RESET_REQUEST   uint32 = 1 << 31
)

func (l *StatusLayout) HasECC() bool {
	return l.ECCEntries != 0
}
