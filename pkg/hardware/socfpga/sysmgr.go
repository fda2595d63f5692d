// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package socfpga

var (
	sysmgrRegs = map[uintptr]string{
		0x200: "Boot Scratch Cold Register 0",
		0x204: "Boot Scratch Cold Register 1",
		0x208: "Boot Scratch Cold Register 2",
		0x20C: "Boot Scratch Cold Register 3",
		0x210: "Boot Scratch Cold Register 4",
		0x214: "Boot Scratch Cold Register 5",
		0x218: "Boot Scratch Cold Register 6",
		0x21C: "Boot Scratch Cold Register 7",
		0x220: "Boot Scratch Cold Register 8",
		0x224: "Boot Scratch Cold Register 9",
		0x258: "Boot Scratch POR Register 0",
		0x25C: "Boot Scratch POR Register 1",
	}
)

const (
	BOOT_SCRATCH_COLD0 uintptr = 0x200
	BOOT_SCRATCH_COLD3 uintptr = 0x20C
	BOOT_SCRATCH_COLD8 uintptr = 0x220
	BOOT_SCRATCH_POR0  uintptr = 0x258
	BOOT_SCRATCH_POR1  uintptr = 0x25C
)

// ReadScratch reads a boot scratch register, r is the offset in the system
// manager (e.g. BOOT_SCRATCH_COLD0).
func (s *SoC) ReadScratch(r uintptr) uint32 {
	return s.mem.MustRead32(s.sysmgr + r)
}

func (s *SoC) WriteScratch(r uintptr, v uint32) {
	s.mem.MustWrite32(s.sysmgr+r, v)
}

func (s *SoC) SetScratchBits(r uintptr, m uint32) {
	s.WriteScratch(r, s.ReadScratch(r)|m)
}

func (s *SoC) ClrScratchBits(r uintptr, m uint32) {
	s.WriteScratch(r, s.ReadScratch(r) & ^m)
}

func ScratchRegisterToFunction(r uintptr) string {
	return sysmgrRegs[r]
}
