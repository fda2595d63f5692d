// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handoff parses the register tables produced by the offline memory
// configuration tool and applies them to the controller and PHY.
//
// A blob is a chain of sections, all little-endian 32-bit words:
//
//	magic | base | length (bytes, header included) | offset | value | ...
//
// The chain is a controller section (DDR4 or LPDDR4 channel A), an optional
// LPDDR4 channel B section, then the PHY and PHY init engine sections.
package handoff

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
	"github.com/u-root/u-ddr/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

var ErrFormat = errors.New("malformed handoff")

type SectionKind int

const (
	DDR4 SectionKind = iota
	LPDDR4ChannelA
	LPDDR4ChannelB
	Phy
	PhyEngine
)

const (
	MAGIC_DDR4 uint32 = 0x44445234 // "DDR4"
	MAGIC_LPD0 uint32 = 0x4C504430 // "LPD0"
	MAGIC_LPD1 uint32 = 0x4C504431 // "LPD1"
	MAGIC_PHY0 uint32 = 0x50485930 // "PHY0"
	MAGIC_PIE0 uint32 = 0x50494530 // "PIE0"

	headerSize = 12
)

var kinds = map[uint32]SectionKind{
	MAGIC_DDR4: DDR4,
	MAGIC_LPD0: LPDDR4ChannelA,
	MAGIC_LPD1: LPDDR4ChannelB,
	MAGIC_PHY0: Phy,
	MAGIC_PIE0: PhyEngine,
}

func (k SectionKind) String() string {
	switch k {
	case DDR4:
		return "DDR4"
	case LPDDR4ChannelA:
		return "LPDDR4 channel A"
	case LPDDR4ChannelB:
		return "LPDDR4 channel B"
	case Phy:
		return "PHY"
	case PhyEngine:
		return "PHY init engine"
	}
	return fmt.Sprintf("SectionKind(%d)", int(k))
}

func (k SectionKind) Magic() uint32 {
	for m, kk := range kinds {
		if kk == k {
			return m
		}
	}
	return 0
}

// Wide reports whether pairs address 16-bit PHY registers.
func (k SectionKind) Wide() bool {
	return k == Phy || k == PhyEngine
}

type Pair struct {
	Offset uint32
	Value  uint32
}

type Section struct {
	Kind  SectionKind
	Base  uintptr
	Pairs []Pair
}

type Handoff struct {
	Controller  Section
	Controller2 *Section
	Phy         Section
	PhyEngine   Section
}

// IsLPDDR4 reports whether the controller section describes LPDDR4.
func (h *Handoff) IsLPDDR4() bool {
	return h.Controller.Kind == LPDDR4ChannelA
}

// Controllers returns the controller sections in programming order.
func (h *Handoff) Controllers() []Section {
	s := []Section{h.Controller}
	if h.Controller2 != nil {
		s = append(s, *h.Controller2)
	}
	return s
}

func parseSection(b []byte, off int) (Section, int, error) {
	if len(b)-off < headerSize {
		return Section{}, 0, fmt.Errorf("section at %#x: truncated header: %w", off, ErrFormat)
	}
	magic := binary.LittleEndian.Uint32(b[off:])
	kind, ok := kinds[magic]
	if !ok {
		return Section{}, 0, fmt.Errorf("section at %#x: unknown magic %08x: %w", off, magic, ErrFormat)
	}
	base := binary.LittleEndian.Uint32(b[off+4:])
	length := int(binary.LittleEndian.Uint32(b[off+8:]))
	if length < headerSize || (length-headerSize)%8 != 0 || off+length > len(b) {
		return Section{}, 0, fmt.Errorf("%v section at %#x: length %#x inconsistent with blob of %#x bytes: %w",
			kind, off, length, len(b), ErrFormat)
	}
	s := Section{Kind: kind, Base: uintptr(base)}
	for p := off + headerSize; p < off+length; p += 8 {
		s.Pairs = append(s.Pairs, Pair{
			Offset: binary.LittleEndian.Uint32(b[p:]),
			Value:  binary.LittleEndian.Uint32(b[p+4:]),
		})
	}
	return s, off + length, nil
}

func expect(s Section, off int, want ...SectionKind) error {
	for _, k := range want {
		if s.Kind == k {
			return nil
		}
	}
	return fmt.Errorf("section at %#x: got %v, want one of %v: %w", off, s.Kind, want, ErrFormat)
}

// Parse validates the whole chain before anything is applied.
func Parse(b []byte) (*Handoff, error) {
	h := &Handoff{}
	off := 0

	s, next, err := parseSection(b, off)
	if err != nil {
		return nil, err
	}
	if err := expect(s, off, DDR4, LPDDR4ChannelA); err != nil {
		return nil, err
	}
	h.Controller = s
	off = next

	s, next, err = parseSection(b, off)
	if err != nil {
		return nil, err
	}
	if s.Kind == LPDDR4ChannelB {
		if !h.IsLPDDR4() {
			return nil, fmt.Errorf("LPDDR4 channel B after %v: %w", h.Controller.Kind, ErrFormat)
		}
		h.Controller2 = &s
		off = next
		if s, next, err = parseSection(b, off); err != nil {
			return nil, err
		}
	}
	if err := expect(s, off, Phy); err != nil {
		return nil, err
	}
	h.Phy = s
	off = next

	if s, next, err = parseSection(b, off); err != nil {
		return nil, err
	}
	if err := expect(s, off, PhyEngine); err != nil {
		return nil, err
	}
	h.PhyEngine = s
	off = next

	if off != len(b) {
		return nil, fmt.Errorf("%#x trailing bytes after PHY init engine section: %w", len(b)-off, ErrFormat)
	}
	return h, nil
}

// Load reads and parses a handoff blob.
func Load(fs afero.Fs, path string) (*Handoff, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	h, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded handoff %s: %v with %d pairs, PHY %d pairs, PIE %d pairs",
		path, h.Controller.Kind, len(h.Controller.Pairs), len(h.Phy.Pairs), len(h.PhyEngine.Pairs))
	return h, nil
}

// Address is where a pair lands. PHY registers are 16 bits wide on a 32-bit
// bus, so their offsets are doubled.
func (s *Section) Address(p Pair) uintptr {
	if s.Kind.Wide() {
		return s.Base + uintptr(p.Offset)<<1
	}
	return s.Base + uintptr(p.Offset)
}

// Apply writes every pair in table order.
func Apply(b mmio.Bus, s *Section) {
	log.Debugf("Applying %d %v handoff pairs at %#x", len(s.Pairs), s.Kind, s.Base)
	for _, p := range s.Pairs {
		if s.Kind.Wide() {
			b.MustWrite16(s.Address(p), uint16(p.Value))
		} else {
			b.MustWrite32(s.Address(p), p.Value)
		}
	}
}

// Encode serializes the sections back into blob form.
func Encode(sections ...Section) []byte {
	var b []byte
	w := func(v uint32) {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	for _, s := range sections {
		w(s.Kind.Magic())
		w(uint32(s.Base))
		w(uint32(headerSize + 8*len(s.Pairs)))
		for _, p := range s.Pairs {
			w(p.Offset)
			w(p.Value)
		}
	}
	return b
}
