// companion
// Copyright (c) 2026 The Tidecraft Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of companion.
//
// companion is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// companion is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with companion; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package companion

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/rs/zerolog"
)

// RunState is what one main-loop iteration left the device in.
type RunState uint8

// Run states
const (
	// Running means the core is processing frames normally.
	Running RunState = iota

	// Halted means a fault has latched. The caller must stop feeding the
	// core and divert to RunDiagnostic; there is no in-band recovery.
	Halted
)

// HeartbeatPeriod is the full on/off cycle of the status LED while the
// device is healthy.
const HeartbeatPeriod = 1000 * time.Millisecond

// Companion is the top-level device context: it owns the fault latch, the
// host frame channel, the emulated bus peripheral and the status LED, and
// maps host commands onto them.
//
// Thread safety: ProcessEvents and Handle must be called from a single
// goroutine (the cooperative main loop). The bus peripheral's event
// handlers are the only concurrent entry points, and they synchronize
// internally.
type Companion struct {
	lastToggle time.Time
	comm       *FrameChannel
	i2c        *I2CPeriph
	led        *LED
	log        zerolog.Logger
	faults     FaultLatch
	caps       uint32
}

// New creates a companion device core. Nothing is usable until the
// respective Attach* calls bind the host port and subsystems.
func New(opts ...Option) *Companion {
	c := &Companion{
		led: NewLED(),
		log: zerolog.Nop(),
	}
	c.comm = NewFrameChannel(&c.faults)
	c.i2c = NewI2CPeriph(&c.faults)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Faults exposes the device fault latch.
func (c *Companion) Faults() *FaultLatch {
	return &c.faults
}

// Capabilities returns the advertised capability mask.
func (c *Companion) Capabilities() uint32 {
	return c.caps
}

// AttachHostPort binds the serial link carrying host requests.
func (c *Companion) AttachHostPort(port HostPort) {
	c.comm.Attach(port)
}

// AttachLED binds the status LED pin.
func (c *Companion) AttachLED(pin Pin) {
	c.led.Attach(pin)
}

// AttachI2C brings the emulated I2C peripheral onto a bus and advertises
// the capability to the host. The capability mask is fixed after
// configuration time.
func (c *Companion) AttachI2C(port PeripheralPort, addr byte, speed uint32) {
	c.i2c.Attach(port, addr, speed)
	c.caps |= CapI2CPeriph
}

// ProcessEvents performs one cooperative main-loop iteration: heartbeat,
// fault check, frame poll, dispatch, response. It never blocks.
//
// A Halted return is terminal; the caller must not call back into the core
// other than RunDiagnostic.
func (c *Companion) ProcessEvents() RunState {
	now := time.Now()
	if now.Sub(c.lastToggle) > HeartbeatPeriod/2 {
		c.led.Toggle()
		c.lastToggle = now
	}

	if c.faults.Active() {
		c.log.Error().
			Str("source", c.faults.Source().String()).
			Uint32("value", c.faults.Value()).
			Msg("fault latched, halting")
		return Halted
	}

	if msg, ok := c.comm.Poll(); ok {
		c.Handle(msg)
		if err := c.comm.Send(msg); err != nil {
			c.log.Error().Err(err).Msg("response send failed")
		}
	}

	return Running
}

// Handle interprets one request frame and mutates it in place into the
// response. It always produces a response and never panics; malformed
// requests get a single-byte status payload per the error taxonomy.
func (c *Companion) Handle(msg *Frame) {
	c.log.Debug().
		Uint8("cmd", msg.Cmd).
		Uint8("len", msg.Len).
		Msg("request")

	switch msg.Cmd {
	case CmdGetVersion:
		msg.Len = 4
		msg.Data[0] = VersionMajor
		msg.Data[1] = VersionMinor
		msg.Data[2] = VersionPatch
		msg.Data[3] = VersionExtra

	case CmdGetCapabilities:
		msg.Len = 4
		binary.LittleEndian.PutUint32(msg.Data[:4], c.caps)

	case CmdI2CGetAddr:
		msg.Len = 1
		if c.i2c.Attached() {
			msg.Data[0] = c.i2c.Address()
		} else {
			msg.Data[0] = byte(StatusNotSupported)
		}

	case CmdI2CSetAddr:
		switch {
		case msg.Len != 1 || msg.Data[0] > 0x7f:
			msg.Data[0] = byte(StatusInvalidParam)
		case c.i2c.Attached():
			c.i2c.SetAddress(msg.Data[0])
			msg.Data[0] = byte(StatusSuccess)
		default:
			msg.Data[0] = byte(StatusNotSupported)
		}
		msg.Len = 1

	case CmdI2CGetSpeed:
		if c.i2c.Attached() {
			binary.LittleEndian.PutUint32(msg.Data[:4], c.i2c.Speed())
			msg.Len = 4
		} else {
			msg.setStatus(StatusNotSupported)
		}

	case CmdI2CSetSpeed:
		switch {
		case msg.Len != 4 || binary.LittleEndian.Uint32(msg.Data[:4]) == 0:
			msg.Data[0] = byte(StatusInvalidParam)
		case c.i2c.Attached():
			c.i2c.SetSpeed(binary.LittleEndian.Uint32(msg.Data[:4]))
			msg.Data[0] = byte(StatusSuccess)
		default:
			msg.Data[0] = byte(StatusNotSupported)
		}
		msg.Len = 1

	case CmdI2CGetSubAddrLen:
		msg.Len = 1
		if c.i2c.Attached() {
			msg.Data[0] = c.i2c.SubAddrLen()
		} else {
			msg.Data[0] = byte(StatusNotSupported)
		}

	case CmdI2CSetSubAddrLen:
		// No length check: the receive path zero-fills past Len, so an
		// empty payload reads as a skip count of zero.
		if c.i2c.Attached() {
			c.i2c.SetSubAddrLen(msg.Data[0])
			msg.Data[0] = byte(StatusSuccess)
		} else {
			msg.Data[0] = byte(StatusNotSupported)
		}
		msg.Len = 1

	case CmdI2CGetModeFlags, CmdI2CSetModeFlags:
		msg.setStatus(StatusUnimplemented)

	case CmdI2CSetReadBuffer:
		switch {
		case msg.Len < 1:
			msg.Data[0] = byte(StatusInvalidParam)
		case c.i2c.Attached():
			c.i2c.SetReadBuffer(msg.Data[:msg.Len])
			msg.Data[0] = byte(StatusSuccess)
		default:
			msg.Data[0] = byte(StatusNotSupported)
		}
		msg.Len = 1

	case CmdI2CGetWriteBuffer:
		if c.i2c.Attached() {
			msg.Len = byte(c.i2c.CopyWriteBuffer(msg.Data[:]))
		} else {
			msg.setStatus(StatusNotSupported)
		}

	default:
		msg.setStatus(StatusInvalidCmd)
	}
}

// RunDiagnostic is the one-way halt after a fault: it blinks the marked
// fault word on the status LED until ctx is done. On hardware the context
// never expires and only a physical reset ends the loop; tests pass a
// bounded context to observe the terminal state without hanging.
func (c *Companion) RunDiagnostic(ctx context.Context) {
	value := FaultMarker | c.faults.Value()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.led.BlinkValue(value, FaultBitPeriod)
		c.led.sleep(FaultWordGap)
	}
}
