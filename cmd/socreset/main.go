// Copyright 2018-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/u-root/u-ddr/config"
	"github.com/u-root/u-ddr/pkg/hardware/socfpga"
	"github.com/u-root/u-ddr/pkg/resetstate"
)

var (
	target = flag.String("target", "n5x", "Which SoC to inspect")
	devmem = flag.String("devmem", "/dev/mem", "Physical memory device")
	clr    = flag.Bool("clear", false, "Clear the DDR in-progress and double-bit error flags")
	reset  = flag.Bool("reset", false, "Reset the SoC through the watchdog")
)

func main() {
	flag.Parse()

	t, err := config.ForTarget(*target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a, err := socfpga.Open(*devmem)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.Close()
	a.WithBases(t.SysMgrBase, t.WdtBase)

	for _, r := range []uintptr{socfpga.BOOT_SCRATCH_COLD0, socfpga.BOOT_SCRATCH_COLD3, socfpga.BOOT_SCRATCH_POR1} {
		fmt.Printf("%-30s %08x\n", socfpga.ScratchRegisterToFunction(r)+":", a.ReadScratch(r))
	}

	tr := resetstate.New(resetstate.ScratchStore{SoC: a}, t.Reset)
	fmt.Printf("Reset type: %v\n", tr.ResetType())
	fmt.Printf("DDR init required: %v\n", tr.IsDDRInit() || tr.NeedsFullInit())
	fmt.Printf("Previous init hung: %v\n", tr.IsInitHang())
	fmt.Printf("Double-bit errors: OCRAM %v, DDR %v\n", tr.OCRAMDBE(), tr.DDRDBE())

	if *clr {
		tr.InProgress(false)
		tr.ClearDBE()
	}
	if *reset {
		a.ResetCpu()
	}
}
