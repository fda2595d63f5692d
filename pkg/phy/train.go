// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"fmt"

	"github.com/u-root/u-ddr/pkg/umctl2"
)

// Run starts the microcontroller on the loaded image. The order matters:
// releasing stall before reset runs the firmware from an undefined PC.
func (p *Phy) Run() {
	p.Write(MICRORESET, MICRORESET_RESET|MICRORESET_STALL)
	p.Write(MICRORESET, MICRORESET_STALL)
	p.Write(MICRORESET, 0)
}

// Stop stalls the microcontroller.
func (p *Phy) Stop() {
	p.Write(MICRORESET, MICRORESET_STALL)
}

// GetMail reads one message, 16 or 32 bits wide, and completes the
// write-protect handshake so the firmware can post the next one.
func (p *Phy) GetMail(wide bool) (uint32, error) {
	if err := p.waitBit(UCTSHADOWREGS, UCT_WRITE_PROT_SHADOW, false, p.Timeouts.Message, "message"); err != nil {
		return 0, err
	}
	msg := uint32(p.Read(UCTWRITEONLYSHADOW))
	if wide {
		msg |= uint32(p.Read(UCTDATWRITEONLYSHADOW)) << 16
	}
	p.Write(DCTWRITEPROT, 0)
	if err := p.waitBit(UCTSHADOWREGS, UCT_WRITE_PROT_SHADOW, true, p.Timeouts.Ack, "message acknowledge"); err != nil {
		return 0, err
	}
	p.Write(DCTWRITEPROT, 1)
	return msg, nil
}

func (p *Phy) stream() error {
	hdr, err := p.GetMail(true)
	if err != nil {
		return err
	}
	n := int(hdr & 0xffff)
	args := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		a, err := p.GetMail(true)
		if err != nil {
			return err
		}
		args = append(args, a)
	}
	log.Debugf("%v: stream %04x %x", p, hdr>>16, args)
	return nil
}

// Wait services the firmware mailbox until training completes or fails.
func (p *Phy) Wait() error {
	for {
		msg, err := p.GetMail(false)
		if err != nil {
			return err
		}
		switch msg {
		case MSG_STREAMING:
			if err := p.stream(); err != nil {
				return err
			}
		case MSG_COMPLETED:
			log.Debugf("%v: %s", p, majorMessages[msg])
			return nil
		case MSG_FAILED:
			log.Errorf("%v: %s", p, majorMessages[msg])
			return fmt.Errorf("%v: %w", p, ErrTrainingFailed)
		default:
			if s, ok := majorMessages[msg]; ok {
				log.Debugf("%v: %s", p, s)
			} else {
				log.Debugf("%v: unknown major message %#x", p, msg)
			}
		}
	}
}

// TrainStage runs one firmware image to completion and merges its results
// into every controller.
func (p *Phy) TrainStage(ctrls []*umctl2.Controller, fw *Firmware) error {
	if err := p.LoadImage(fw); err != nil {
		return err
	}
	log.Infof("%v: %s training", p, fw.Name)
	p.Run()
	err := p.Wait()
	p.Stop()
	if err != nil {
		return err
	}

	var r Results
	p.CSRAccess(func() {
		r = p.ReadResults()
	})
	log.Debugf("%v: %s results %+v", p, fw.Name, r)
	for _, c := range ctrls {
		if err := MergeResults(c, r); err != nil {
			return err
		}
	}
	return nil
}

// Train runs 1D then 2D training.
func (p *Phy) Train(ctrls []*umctl2.Controller, fw *FirmwareSet) error {
	if err := p.TrainStage(ctrls, &fw.OneD); err != nil {
		return err
	}
	if err := p.TrainStage(ctrls, &fw.TwoD); err != nil {
		return err
	}
	log.Infof("%v: training done", p)
	return nil
}
