// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmiotest provides a simulated register file for exercising code
// written against mmio.Bus. Autonomous peers (sequencers, PHY firmware, the
// scrubber) are modelled with read and write hooks.
package mmiotest

import (
	"fmt"
	"sort"
)

type Access struct {
	Write   bool
	Address uintptr
	Value   uint32
	Size    int
}

func (a Access) String() string {
	t := "read"
	if a.Write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ %08x, %v bit = %08x}", t, a.Address, a.Size, a.Value)
}

// ReadHook runs before a read of the hooked address and may update the
// register file (e.g. to advance a peer state machine).
type ReadHook func(m *Mem, a uintptr)

// WriteHook runs after a write to the hooked address landed.
type WriteHook func(m *Mem, a uintptr, v uint32)

// Mem is a sparse byte-addressed register file. The zero value is not usable,
// call New.
type Mem struct {
	bytes map[uintptr]byte
	rd    map[uintptr]ReadHook
	wr    map[uintptr]WriteHook

	// AliasMask, when non-zero, is applied to every address before it is
	// looked up. It models a DRAM that is smaller than the window probed.
	AliasMask uintptr
	// Log holds every access made while Record is set.
	Log    []Access
	Record bool
}

func New() *Mem {
	return &Mem{
		bytes: make(map[uintptr]byte),
		rd:    make(map[uintptr]ReadHook),
		wr:    make(map[uintptr]WriteHook),
	}
}

func (m *Mem) OnRead(a uintptr, h ReadHook) {
	m.rd[a] = h
}

func (m *Mem) OnWrite(a uintptr, h WriteHook) {
	m.wr[a] = h
}

func (m *Mem) addr(a uintptr) uintptr {
	if m.AliasMask != 0 {
		return a & m.AliasMask
	}
	return a
}

// Peek reads without triggering hooks or logging.
func (m *Mem) Peek32(a uintptr) uint32 {
	return uint32(m.load(a, 4))
}

func (m *Mem) Peek16(a uintptr) uint16 {
	return uint16(m.load(a, 2))
}

// Poke writes without triggering hooks or logging.
func (m *Mem) Poke32(a uintptr, v uint32) {
	m.store(a, uint64(v), 4)
}

func (m *Mem) Poke16(a uintptr, v uint16) {
	m.store(a, uint64(v), 2)
}

func (m *Mem) load(a uintptr, n int) uint64 {
	a = m.addr(a)
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(m.bytes[a+uintptr(i)]) << (8 * i)
	}
	return v
}

func (m *Mem) store(a uintptr, v uint64, n int) {
	a = m.addr(a)
	for i := 0; i < n; i++ {
		m.bytes[a+uintptr(i)] = byte(v >> (8 * i))
	}
}

func (m *Mem) read(a uintptr, n int) uint64 {
	if h, ok := m.rd[a]; ok {
		h(m, a)
	}
	v := m.load(a, n)
	if m.Record {
		m.Log = append(m.Log, Access{false, a, uint32(v), n * 8})
	}
	return v
}

func (m *Mem) write(a uintptr, v uint64, n int) {
	m.store(a, v, n)
	if m.Record {
		m.Log = append(m.Log, Access{true, a, uint32(v), n * 8})
	}
	if h, ok := m.wr[a]; ok {
		h(m, a, uint32(v))
	}
}

func (m *Mem) MustRead32(a uintptr) uint32 {
	return uint32(m.read(a, 4))
}

func (m *Mem) MustRead16(a uintptr) uint16 {
	return uint16(m.read(a, 2))
}

func (m *Mem) MustRead8(a uintptr) uint8 {
	return uint8(m.read(a, 1))
}

func (m *Mem) MustWrite32(a uintptr, v uint32) {
	m.write(a, uint64(v), 4)
}

func (m *Mem) MustWrite16(a uintptr, v uint16) {
	m.write(a, uint64(v), 2)
}

func (m *Mem) MustWrite8(a uintptr, v uint8) {
	m.write(a, uint64(v), 1)
}

func (m *Mem) Close() {
}

// Writes returns the logged writes, in order.
func (m *Mem) Writes() []Access {
	var w []Access
	for _, a := range m.Log {
		if a.Write {
			w = append(w, a)
		}
	}
	return w
}

// WritesTo returns the logged write values to address a, in order.
func (m *Mem) WritesTo(a uintptr) []uint32 {
	var w []uint32
	for _, l := range m.Log {
		if l.Write && l.Address == a {
			w = append(w, l.Value)
		}
	}
	return w
}

// Dump returns the non-zero 32-bit words, sorted by address. Handy in test
// failure messages.
func (m *Mem) Dump() string {
	seen := make(map[uintptr]bool)
	var addrs []uintptr
	for a := range m.bytes {
		w := a &^ 3
		if !seen[w] {
			seen[w] = true
			addrs = append(addrs, w)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	s := ""
	for _, a := range addrs {
		if v := m.Peek32(a); v != 0 {
			s += fmt.Sprintf("%08x: %08x\n", a, v)
		}
	}
	return s
}
