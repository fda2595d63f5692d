// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmio

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

type devMem struct {
	mf    *os.File
	ps    uintptr
	pages map[uintptr][]byte
}

// OpenDevMem maps physical memory through path (usually /dev/mem). Pages are
// mapped on first use and kept until Close, calibration loops poll the same
// few registers millions of times.
func OpenDevMem(path string) (Bus, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", path, err)
	}
	return &devMem{mf: f, ps: uintptr(unix.Getpagesize()), pages: make(map[uintptr][]byte)}, nil
}

func (m *devMem) ptr(address uintptr) unsafe.Pointer {
	page := address & ^(m.ps - 1)
	mem, ok := m.pages[page]
	if !ok {
		var err error
		mem, err = unix.Mmap(int(m.mf.Fd()), int64(page), int(m.ps), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			panic(fmt.Sprintf("mmap %#x: %v", page, err))
		}
		m.pages[page] = mem
	}
	return unsafe.Pointer(&mem[address-page])
}

func (m *devMem) MustRead32(address uintptr) uint32 {
	return *(*uint32)(m.ptr(address))
}

func (m *devMem) MustRead16(address uintptr) uint16 {
	return *(*uint16)(m.ptr(address))
}

func (m *devMem) MustRead8(address uintptr) uint8 {
	return *(*uint8)(m.ptr(address))
}

func (m *devMem) MustWrite32(address uintptr, data uint32) {
	*(*uint32)(m.ptr(address)) = data
}

func (m *devMem) MustWrite16(address uintptr, data uint16) {
	*(*uint16)(m.ptr(address)) = data
}

func (m *devMem) MustWrite8(address uintptr, data uint8) {
	*(*uint8)(m.ptr(address)) = data
}

func (m *devMem) Close() {
	for p, mem := range m.pages {
		unix.Munmap(mem)
		delete(m.pages, p)
	}
	m.mf.Close()
}
