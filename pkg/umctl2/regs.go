// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package umctl2

import (
	"github.com/u-root/u-ddr/pkg/hardware/mmio"
)

// Register offsets from the controller base
const (
	MSTR       uintptr = 0x000
	STAT       uintptr = 0x004
	MRCTRL0    uintptr = 0x010
	MRCTRL1    uintptr = 0x014
	MRSTAT     uintptr = 0x018
	PWRCTL     uintptr = 0x030
	ECCCFG0    uintptr = 0x070
	ECCCFG1    uintptr = 0x074
	CRCPARCTL0 uintptr = 0x0c0
	CRCPARCTL1 uintptr = 0x0c4
	CRCPARSTAT uintptr = 0x0cc
	INIT0      uintptr = 0x0d0
	RANKCTL    uintptr = 0x0f4
	DRAMTMG2   uintptr = 0x108
	DFITMG1    uintptr = 0x194
	DFIMISC    uintptr = 0x1b0
	DFISTAT    uintptr = 0x1bc
	ADDRMAP0   uintptr = 0x200
	ADDRMAP1   uintptr = 0x204
	ADDRMAP2   uintptr = 0x208
	ADDRMAP3   uintptr = 0x20c
	ADDRMAP4   uintptr = 0x210
	ADDRMAP5   uintptr = 0x214
	ADDRMAP6   uintptr = 0x218
	ADDRMAP7   uintptr = 0x21c
	ADDRMAP8   uintptr = 0x220
	DBG1       uintptr = 0x304
	DBGCAM     uintptr = 0x308
	SWCTL      uintptr = 0x320
	SWSTAT     uintptr = 0x324
	PSTAT      uintptr = 0x3fc
	PCTRL0     uintptr = 0x490
	SBRCTL     uintptr = 0xf24
	SBRSTAT    uintptr = 0xf28
	SBRWDATA0  uintptr = 0xf2c
	SBRWDATA1  uintptr = 0xf30
	SBRSTART0  uintptr = 0xf38
	SBRSTART1  uintptr = 0xf3c
	SBRRANGE0  uintptr = 0xf40
	SBRRANGE1  uintptr = 0xf44
)

const (
	MSTR_DDR4          uint32 = 1 << 4
	MSTR_LPDDR4        uint32 = 1 << 5
	MSTR_FREQ_RATIO    uint32 = 1 << 22
	STAT_MODE_INIT     uint32 = 0
	STAT_MODE_NORMAL   uint32 = 1
	STAT_MODE_SELFREF  uint32 = 3
	MRCTRL0_MR_TYPE    uint32 = 1 << 0
	MRCTRL0_MPR_EN     uint32 = 1 << 1
	MRCTRL0_PDA_EN     uint32 = 1 << 2
	MRCTRL0_SW_INIT    uint32 = 1 << 3
	MRCTRL0_MR_WR      uint32 = 1 << 31
	MRSTAT_MR_WR_BUSY  uint32 = 1 << 0
	PWRCTL_SELFREF_EN  uint32 = 1 << 0
	PWRCTL_SELFREF_SW  uint32 = 1 << 5
	ECCCFG1_REGION_LCK uint32 = 1 << 4
	DFIMISC_COMPL_EN   uint32 = 1 << 0
	DFIMISC_INIT_START uint32 = 1 << 5
	DFISTAT_INIT_DONE  uint32 = 1 << 0
	DBG1_DIS_DQ        uint32 = 1 << 0
	DBG1_DIS_HIF       uint32 = 1 << 1
	DBGCAM_RD_Q_EMPTY  uint32 = 1 << 25
	DBGCAM_WR_Q_EMPTY  uint32 = 1 << 26
	DBGCAM_RD_PIPE_EMP uint32 = 1 << 28
	DBGCAM_WR_PIPE_EMP uint32 = 1 << 29
	SWCTL_SW_DONE      uint32 = 1 << 0
	SWSTAT_SW_DONE_ACK uint32 = 1 << 0
	PSTAT_RD_PORT_BUSY uint32 = 1 << 0
	PSTAT_WR_PORT_BUSY uint32 = 1 << 16
	PCTRL0_PORT_EN     uint32 = 1 << 0
	SBRCTL_SCRUB_EN    uint32 = 1 << 0
	SBRCTL_LOW_POWER   uint32 = 1 << 1
	SBRCTL_SCRUB_WRITE uint32 = 1 << 2
	SBRSTAT_SCRUB_BUSY uint32 = 1 << 0
	SBRSTAT_SCRUB_DONE uint32 = 1 << 1

	DBGCAM_EMPTY = DBGCAM_RD_Q_EMPTY | DBGCAM_WR_Q_EMPTY | DBGCAM_RD_PIPE_EMP | DBGCAM_WR_PIPE_EMP

	CRCPARCTL0_CLR_ALERT_ERRCNT uint32 = 1 << 2
	CRCPARCTL0_CLR_ALERT_ERR    uint32 = 1 << 1
	CRCPARCTL1_RETRY_EN         uint32 = 1 << 8
	CRCPARSTAT_ALERT_ERR_INT    uint32 = 1 << 16
	CRCPARSTAT_ALERT_FATAL_INT  uint32 = 1 << 17
	CRCPARSTAT_ALERT_NO_SW      uint32 = 1 << 19
	CRCPARSTAT_CMD_IN_ERR_WIN   uint32 = 1 << 29
)

var (
	MSTR_DATA_BUS_WIDTH      = mmio.Field{Reg: MSTR, Mask: 0x3 << 12}
	MSTR_ACTIVE_RANKS        = mmio.Field{Reg: MSTR, Mask: 0x3 << 24}
	STAT_OPERATING_MODE      = mmio.Field{Reg: STAT, Mask: 0x7}
	MRCTRL0_MR_RANK          = mmio.Field{Reg: MRCTRL0, Mask: 0x3 << 4}
	MRCTRL0_MR_ADDR          = mmio.Field{Reg: MRCTRL0, Mask: 0xf << 12}
	MRCTRL1_MR_DATA          = mmio.Field{Reg: MRCTRL1, Mask: 0x3ffff}
	ECCCFG0_ECC_MODE         = mmio.Field{Reg: ECCCFG0, Mask: 0x7}
	INIT0_SKIP_DRAM_INIT     = mmio.Field{Reg: INIT0, Mask: 0x3 << 30}
	RANKCTL_RD_GAP           = mmio.Field{Reg: RANKCTL, Mask: 0xf << 4}
	RANKCTL_WR_GAP           = mmio.Field{Reg: RANKCTL, Mask: 0xf << 8}
	RANKCTL_RD_GAP_MSB       = mmio.Field{Reg: RANKCTL, Mask: 1 << 24}
	RANKCTL_WR_GAP_MSB       = mmio.Field{Reg: RANKCTL, Mask: 1 << 26}
	DRAMTMG2_WR2RD           = mmio.Field{Reg: DRAMTMG2, Mask: 0x3f}
	DRAMTMG2_RD2WR           = mmio.Field{Reg: DRAMTMG2, Mask: 0x3f << 8}
	DFITMG1_WRDATA_DELAY     = mmio.Field{Reg: DFITMG1, Mask: 0x1f << 16}
	SBRCTL_SCRUB_INTERVAL    = mmio.Field{Reg: SBRCTL, Mask: 0x1fff << 8}
	CRCPARSTAT_ALERT_ERR_CNT = mmio.Field{Reg: CRCPARSTAT, Mask: 0xffff}
)

// ECC modes in ECCCFG0
const (
	ECC_MODE_DISABLED uint32 = 0
	ECC_MODE_SECDED   uint32 = 4
	ECC_MODE_ADVECC   uint32 = 5
)

// Skip DRAM init values in INIT0
const (
	SKIP_DRAM_INIT_NONE    uint32 = 0
	SKIP_DRAM_INIT_NORMAL  uint32 = 1
	SKIP_DRAM_INIT_SELFREF uint32 = 3
)

// Register names for trace logs.
var regNames = map[uintptr]string{
	MSTR: "MSTR", STAT: "STAT", MRCTRL0: "MRCTRL0", MRCTRL1: "MRCTRL1",
	MRSTAT: "MRSTAT", PWRCTL: "PWRCTL", ECCCFG0: "ECCCFG0", ECCCFG1: "ECCCFG1",
	CRCPARCTL0: "CRCPARCTL0", CRCPARCTL1: "CRCPARCTL1", CRCPARSTAT: "CRCPARSTAT",
	INIT0: "INIT0", RANKCTL: "RANKCTL", DRAMTMG2: "DRAMTMG2", DFITMG1: "DFITMG1",
	DFIMISC: "DFIMISC", DFISTAT: "DFISTAT", DBG1: "DBG1", DBGCAM: "DBGCAM",
	SWCTL: "SWCTL", SWSTAT: "SWSTAT", PSTAT: "PSTAT", PCTRL0: "PCTRL0",
	SBRCTL: "SBRCTL", SBRSTAT: "SBRSTAT",
}

func RegisterName(r uintptr) string {
	return regNames[r]
}
