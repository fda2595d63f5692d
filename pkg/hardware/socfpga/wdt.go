// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package socfpga

// DesignWare APB watchdog
const (
	WDT_CR   uintptr = 0x00
	WDT_TORR uintptr = 0x04
	WDT_CRR  uintptr = 0x0c

	WDT_CR_EN   uint32 = 1 << 0
	WDT_CR_RMOD uint32 = 1 << 1

	WDT_RESTART_PASSWORD uint32 = 0x76
)

// EnableWdt starts the watchdog with timeout range torr (0-15, 2^(16+torr)
// clock cycles). It resets the system on expiry.
func (s *SoC) EnableWdt(torr uint32) {
	s.mem.MustWrite32(s.wdt+WDT_TORR, torr&0xf|(torr&0xf)<<4)
	s.KickWdt()
	s.mem.MustWrite32(s.wdt+WDT_CR, WDT_CR_EN)
}

// KickWdt restarts the counter. Long hardware polls call this between
// iterations when a watchdog is running.
func (s *SoC) KickWdt() {
	s.mem.MustWrite32(s.wdt+WDT_CRR, WDT_RESTART_PASSWORD)
}

func (s *SoC) ResetCpu() {
	// Shortest timeout range, it will quickly trigger
	s.mem.MustWrite32(s.wdt+WDT_TORR, 0)
	s.mem.MustWrite32(s.wdt+WDT_CRR, WDT_RESTART_PASSWORD)
	// RMOD clear - reset the system directly on timeout
	// EN - WDT enable
	s.mem.MustWrite32(s.wdt+WDT_CR, WDT_CR_EN)
}

// DisableWdt clears the enable bit. Parts synthesized with WDT_ALWAYS_EN
// ignore this, the counter then has to be kicked instead.
func (s *SoC) DisableWdt() {
	s.mem.MustWrite32(s.wdt+WDT_CR, 0)
}
