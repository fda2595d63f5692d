// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handoff

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/u-root/u-ddr/pkg/hardware/mmio/mmiotest"
)

var (
	ddr4 = Section{Kind: DDR4, Base: 0xf8000000, Pairs: []Pair{{0x0, 0x40040010}, {0x64, 0x00620070}}}
	lpd0 = Section{Kind: LPDDR4ChannelA, Base: 0xf8000000, Pairs: []Pair{{0x0, 0x81080020}}}
	lpd1 = Section{Kind: LPDDR4ChannelB, Base: 0xf8100000, Pairs: []Pair{{0x0, 0x81080020}}}
	phy  = Section{Kind: Phy, Base: 0xf8800000, Pairs: []Pair{{0x20100, 0x5}, {0x200b2, 0x19}}}
	pie  = Section{Kind: PhyEngine, Base: 0xf8800000, Pairs: []Pair{{0x90000, 0x10}}}
)

func TestParse(t *testing.T) {
	h, err := Parse(Encode(ddr4, phy, pie))
	if err != nil {
		t.Fatal(err)
	}
	want := &Handoff{Controller: ddr4, Phy: phy, PhyEngine: pie}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if h.IsLPDDR4() || len(h.Controllers()) != 1 {
		t.Errorf("DDR4 handoff reported as LPDDR4")
	}
}

func TestParseLPDDR4DualChannel(t *testing.T) {
	h, err := Parse(Encode(lpd0, lpd1, phy, pie))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Section{lpd0, lpd1}, h.Controllers()); diff != "" {
		t.Errorf("Controllers() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	corrupt := Encode(ddr4, phy, pie)
	binary.LittleEndian.PutUint32(corrupt[8:], 0x15)

	for _, tt := range []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"phy first", Encode(phy, pie)},
		{"missing phy", Encode(ddr4, pie)},
		{"missing pie", Encode(ddr4, phy)},
		{"channel b after ddr4", Encode(ddr4, lpd1, phy, pie)},
		{"bad magic", append([]byte{'X', 'D', 'R', '4'}, Encode(ddr4, phy, pie)[4:]...)},
		{"odd length", corrupt},
		{"truncated", Encode(ddr4, phy, pie)[:40]},
		{"trailing", append(Encode(ddr4, phy, pie), 0, 0, 0, 0)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.blob); !errors.Is(err, ErrFormat) {
				t.Errorf("Parse() = %v, want ErrFormat", err)
			}
		})
	}
}

func TestApplyRoundTrip(t *testing.T) {
	s := Section{Kind: DDR4, Base: 0xf8000000, Pairs: []Pair{
		{0x30, 0x1}, {0x320, 0x0}, {0x30, 0x20}, {0x1b0, 0x41}, {0x320, 0x1},
	}}
	m := mmiotest.New()
	m.Record = true
	Apply(m, &s)

	want := map[uint32]uint32{}
	for _, p := range s.Pairs {
		want[p.Offset] = p.Value
	}
	for off, v := range want {
		if got := m.Peek32(s.Base + uintptr(off)); got != v {
			t.Errorf("offset %#x = %#x, want %#x", off, got, v)
		}
	}
	w := m.Writes()
	if len(w) != len(s.Pairs) {
		t.Fatalf("%d writes, want %d", len(w), len(s.Pairs))
	}
	for i, p := range s.Pairs {
		if w[i].Address != s.Address(p) || w[i].Value != p.Value || w[i].Size != 32 {
			t.Errorf("write %d = %v, want %#x to %#x", i, w[i], p.Value, s.Address(p))
		}
	}
}

func TestApplyPhyDoublesOffsets(t *testing.T) {
	f := mmiotest.NewScript(t)
	f.ExpectWrite16(0xf8840200, 0x5)
	f.ExpectWrite16(0xf8840164, 0x19)
	Apply(f, &phy)
	f.Done()
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/boot/ddr_handoff.bin", Encode(ddr4, phy, pie), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := Load(fs, "/boot/ddr_handoff.bin")
	if err != nil {
		t.Fatal(err)
	}
	if h.Controller.Kind != DDR4 {
		t.Errorf("got %v", h.Controller.Kind)
	}
	if _, err := Load(fs, "/boot/missing.bin"); err == nil {
		t.Errorf("Load of a missing file succeeded")
	}
}
