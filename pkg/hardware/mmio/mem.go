// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmio is the register bus every DDR bring-up component talks to.
//
// Nothing in this module touches hardware except through a Bus. On target
// the bus is /dev/mem, in tests it is a scripted or simulated register file.
package mmio

// Bus is little-endian physical memory. Accesses are naturally aligned.
type Bus interface {
	MustRead32(uintptr) uint32
	MustRead16(uintptr) uint16
	MustRead8(uintptr) uint8
	MustWrite32(uintptr, uint32)
	MustWrite16(uintptr, uint16)
	MustWrite8(uintptr, uint8)
	Close()
}

func SetBits32(b Bus, a uintptr, m uint32) {
	b.MustWrite32(a, b.MustRead32(a)|m)
}

func ClrBits32(b Bus, a uintptr, m uint32) {
	b.MustWrite32(a, b.MustRead32(a) & ^m)
}

// ClrSetBits32 clears clr and then sets set with a single write.
func ClrSetBits32(b Bus, a uintptr, clr, set uint32) {
	b.MustWrite32(a, b.MustRead32(a) & ^clr | set)
}

func SetBits16(b Bus, a uintptr, m uint16) {
	b.MustWrite16(a, b.MustRead16(a)|m)
}

func ClrBits16(b Bus, a uintptr, m uint16) {
	b.MustWrite16(a, b.MustRead16(a) & ^m)
}

// Field is a bit field of a 32-bit register, addressed relative to a block
// base. Mask must be contiguous.
type Field struct {
	Reg  uintptr
	Mask uint32
}

func (f Field) shift() uint {
	s := uint(0)
	for f.Mask != 0 && f.Mask&(1<<s) == 0 {
		s++
	}
	return s
}

// Max is the largest value the field can hold.
func (f Field) Max() uint32 {
	return f.Mask >> f.shift()
}

// Get extracts the field from a register value.
func (f Field) Get(v uint32) uint32 {
	return (v & f.Mask) >> f.shift()
}

// Put returns v with the field replaced by x. Bits of x that do not fit are
// dropped.
func (f Field) Put(v, x uint32) uint32 {
	return v&^f.Mask | (x<<f.shift())&f.Mask
}

func (f Field) Read(b Bus, base uintptr) uint32 {
	return f.Get(b.MustRead32(base + f.Reg))
}

// Write does a read-modify-write of the field.
func (f Field) Write(b Bus, base uintptr, x uint32) {
	a := base + f.Reg
	b.MustWrite32(a, f.Put(b.MustRead32(a), x))
}
