// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"

	"github.com/jmhodges/clock"
	"github.com/spf13/afero"
	"github.com/u-root/u-ddr/config"
	"github.com/u-root/u-ddr/pkg/banks"
	"github.com/u-root/u-ddr/pkg/hardware/socfpga"
	"github.com/u-root/u-ddr/pkg/logger"
	"github.com/u-root/u-ddr/pkg/metric"
	"github.com/u-root/u-ddr/pkg/poll"
	"github.com/u-root/u-ddr/pkg/resetstate"
	"github.com/u-root/u-ddr/pkg/sdram"
)

var (
	target      = flag.String("target", "n5x", "Which SoC to bring up memory on")
	handoffPath = flag.String("handoff", "", "Handoff blob, empty for the target default")
	firmwareDir = flag.String("firmware", "", "PHY training firmware directory, empty for the target default")
	dtbPath     = flag.String("dtb", "", "Device tree blob declaring the memory size, empty to trust the hardware")
	devmem      = flag.String("devmem", "/dev/mem", "Physical memory device")
	metricsFile = flag.String("metrics_file", "", "Write Prometheus metrics here when done")
	logFile     = flag.String("log", "", "JSON log file, empty for console only")
	debug       = flag.Bool("debug", false, "Log every bring-up step")
	list        = flag.Bool("list", false, "List the known targets and exit")
)

var log = logger.LogContainer.GetSimpleLogger()

func writeMetrics() {
	if *metricsFile == "" {
		return
	}
	if err := metric.WriteTextfile(*metricsFile); err != nil {
		log.Warnf("Writing metrics to %s: %v", *metricsFile, err)
	}
}

func declaredSize(fs afero.Fs, path string) (uint64, error) {
	if path == "" {
		return 0, nil
	}
	f, err := fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return banks.DeclaredSize(f)
}

func main() {
	flag.Parse()
	logger.LogContainer.Configure(*logFile, *debug)
	defer logger.LogContainer.GetLogger().Sync()

	if *list {
		for _, n := range config.Targets() {
			fmt.Println(n)
		}
		return
	}

	t, err := config.ForTarget(*target)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *handoffPath != "" {
		t.HandoffPath = *handoffPath
	}
	if *firmwareDir != "" {
		t.FirmwareDir = *firmwareDir
	}
	v := config.DefaultConfig.Version
	log.Infof("sdraminit %s (%s), target %s", v.Version, v.GitHash, t.Name)

	fs := afero.NewOsFs()
	declared, err := declaredSize(fs, *dtbPath)
	if err != nil {
		log.Fatalf("%s: %v", *dtbPath, err)
	}

	soc, err := socfpga.Open(*devmem)
	if err != nil {
		log.Fatalf("Opening %s: %v", *devmem, err)
	}
	defer soc.Close()
	soc.WithBases(t.SysMgrBase, t.WdtBase)

	p := poll.New(clock.New(), t.PollInterval)
	if t.WdtTORR != 0 {
		soc.EnableWdt(t.WdtTORR)
		p.Kick = soc.KickWdt
	}

	tr := resetstate.New(resetstate.ScratchStore{SoC: soc}, t.Reset)
	log.Infof("Last reset: %v", tr.ResetType())

	s := sdram.New(soc.Mem(), t, tr, p)
	s.Fs = fs
	s.Watchdog = soc
	s.DeclaredSize = declared

	res, err := s.Init()
	writeMetrics()
	if err != nil {
		// Halting leaves the in-progress flag set for the next boot.
		log.Fatalf("%v", err)
	}
	log.Infof("DDR ready: %d MiB in %d bank(s), ECC %v, full init %v",
		res.Size>>20, len(res.Banks), res.ECC, res.FullInit)
	for _, b := range res.Banks {
		fmt.Println(b)
	}
}
