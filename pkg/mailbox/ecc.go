// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/hardware/mmio"
)

type ECCErrType uint8

const (
	SINGLE_BIT_ERROR               ECCErrType = 0
	MULTIPLE_SINGLE_BIT_ERRORS     ECCErrType = 1
	DOUBLE_BIT_ERROR               ECCErrType = 2
	MULTIPLE_DOUBLE_BIT_ERRORS     ECCErrType = 3
	SINGLE_BIT_ERROR_SCRUBBING     ECCErrType = 4
	WRITE_LINK_SINGLE_BIT_ERROR    ECCErrType = 5
	WRITE_LINK_DOUBLE_BIT_ERROR    ECCErrType = 6
	READ_LINK_SINGLE_BIT_ERROR     ECCErrType = 7
	READ_LINK_DOUBLE_BIT_ERROR     ECCErrType = 8
	READ_MODIFY_WRITE_DOUBLE_ERROR ECCErrType = 9
)

var eccErrNames = map[ECCErrType]string{
	SINGLE_BIT_ERROR:               "single-bit error",
	MULTIPLE_SINGLE_BIT_ERRORS:     "multiple single-bit errors",
	DOUBLE_BIT_ERROR:               "double-bit error",
	MULTIPLE_DOUBLE_BIT_ERRORS:     "multiple double-bit errors",
	SINGLE_BIT_ERROR_SCRUBBING:     "single-bit error while scrubbing",
	WRITE_LINK_SINGLE_BIT_ERROR:    "write link single-bit error",
	WRITE_LINK_DOUBLE_BIT_ERROR:    "write link double-bit error",
	READ_LINK_SINGLE_BIT_ERROR:     "read link single-bit error",
	READ_LINK_DOUBLE_BIT_ERROR:     "read link double-bit error",
	READ_MODIFY_WRITE_DOUBLE_ERROR: "read-modify-write double-bit error",
}

func (t ECCErrType) String() string {
	if s, ok := eccErrNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ECCErrType(%d)", uint8(t))
}

// IsDoubleBit reports whether the error is uncorrectable.
func (t ECCErrType) IsDoubleBit() bool {
	switch t {
	case DOUBLE_BIT_ERROR, MULTIPLE_DOUBLE_BIT_ERRORS,
		WRITE_LINK_DOUBLE_BIT_ERROR, READ_LINK_DOUBLE_BIT_ERROR,
		READ_MODIFY_WRITE_DOUBLE_ERROR:
		return true
	}
	return false
}

type ECCErrInfo struct {
	IPType     uint8
	InstanceID uint8
	SourceID   uint8
	Type       ECCErrType
	Addr       uint64
}

func (e ECCErrInfo) String() string {
	return fmt.Sprintf("%v on ip %d/%d source %d at %#010x", e.Type, e.IPType, e.InstanceID, e.SourceID, e.Addr)
}

const ECC_ERR_COUNTER_MASK uint32 = 0xffff

// Each FIFO entry is two words.
const ECC_ENTRY_SIZE uintptr = 8

// Entries beyond this are dropped by the sequencer.
const ECC_MAX_ENTRIES = 16

func decodeECCEntry(w0, w1 uint32) ECCErrInfo {
	return ECCErrInfo{
		IPType:     uint8(w0>>29) & 0x7,
		InstanceID: uint8(w0>>24) & 0x1f,
		SourceID:   uint8(w0>>18) & 0x3f,
		Type:       ECCErrType((w0 >> 14) & 0xf),
		Addr:       uint64(w0&0x3f)<<32 | uint64(w1),
	}
}

// ReadECCErrors drains the sequencer ECC error FIFO.
func ReadECCErrors(mem mmio.Bus, base uintptr, l *StatusLayout) []ECCErrInfo {
	if !l.HasECC() {
		return nil
	}
	n := int(mem.MustRead32(base+l.ECCStatus) & ECC_ERR_COUNTER_MASK)
	if n > ECC_MAX_ENTRIES {
		log.Warnf("ECC error counter %d, only %d entries kept", n, ECC_MAX_ENTRIES)
		n = ECC_MAX_ENTRIES
	}
	errs := make([]ECCErrInfo, 0, n)
	for i := 0; i < n; i++ {
		a := base + l.ECCEntries + uintptr(i)*ECC_ENTRY_SIZE
		e := decodeECCEntry(mem.MustRead32(a), mem.MustRead32(a+4))
		log.Infof("ECC: %v", e)
		errs = append(errs, e)
	}
	return errs
}

// AnyDoubleBit reports whether any record is uncorrectable.
func AnyDoubleBit(errs []ECCErrInfo) bool {
	for _, e := range errs {
		if e.Type.IsDoubleBit() {
			return true
		}
	}
	return false
}
