// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmiotest

import (
	"testing"
)

// Script is a bus that expects an exact sequence of accesses. Reads return
// the scripted value, anything out of order fails the test.
type Script struct {
	t   testing.TB
	ops []Access
}

func NewScript(t testing.TB) *Script {
	return &Script{t: t}
}

func (s *Script) next(write bool, a uintptr, d uint32, size int) uint32 {
	s.t.Helper()
	if len(s.ops) == 0 {
		s.t.Fatalf("Unexpected %v", Access{write, a, d, size})
		return 0
	}
	o := s.ops[0]
	s.ops = s.ops[1:]
	if o.Write != write || o.Address != a || o.Size != size || (write && o.Value != d) {
		s.t.Errorf("Expected %v, got %v", o, Access{write, a, d, size})
	}
	return o.Value
}

func (s *Script) MustRead32(a uintptr) uint32 {
	return s.next(false, a, 0, 32)
}

func (s *Script) MustRead16(a uintptr) uint16 {
	return uint16(s.next(false, a, 0, 16))
}

func (s *Script) MustRead8(a uintptr) uint8 {
	return uint8(s.next(false, a, 0, 8))
}

func (s *Script) MustWrite32(a uintptr, d uint32) {
	s.next(true, a, d, 32)
}

func (s *Script) MustWrite16(a uintptr, d uint16) {
	s.next(true, a, uint32(d), 16)
}

func (s *Script) MustWrite8(a uintptr, d uint8) {
	s.next(true, a, uint32(d), 8)
}

func (s *Script) ExpectWrite32(a uintptr, d uint32) {
	s.ops = append(s.ops, Access{true, a, d, 32})
}

func (s *Script) ExpectWrite16(a uintptr, d uint16) {
	s.ops = append(s.ops, Access{true, a, uint32(d), 16})
}

func (s *Script) FakeRead32(a uintptr, d uint32) {
	s.ops = append(s.ops, Access{false, a, d, 32})
}

func (s *Script) FakeRead16(a uintptr, d uint16) {
	s.ops = append(s.ops, Access{false, a, uint32(d), 16})
}

// Done fails the test if scripted accesses were not consumed.
func (s *Script) Done() {
	s.t.Helper()
	for _, o := range s.ops {
		s.t.Errorf("Expected %v, never happened", o)
	}
}

func (s *Script) Close() {
}
