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

// Package busim provides an in-memory I2C bus: a Peripheral end that
// satisfies the firmware core's PeripheralPort contract and a Controller
// end that plays the target's bus controller. It lets the full firmware
// stack run, including the asynchronous bus-event paths, with no hardware.
//
// A Controller call dispatches the corresponding bus event synchronously
// in the caller's goroutine; driving the Controller from a goroutine other
// than the main loop reproduces the interrupt-at-arbitrary-points timing
// of real bus hardware. Events are serialized, matching the one-event-at-
// a-time guarantee of a real peripheral controller.
package busim

import (
	"errors"
	"sync"
)

// ErrBadAddress is returned by Configure for addresses outside 7-bit range.
var ErrBadAddress = errors.New("busim: address out of 7-bit range")

// idleBus is what a controller clocks in when nobody drives SDA.
const idleBus = 0xff

// Peripheral is the device end of the simulated bus.
type Peripheral struct {
	mu        sync.Mutex
	addr      byte
	clock     uint32
	onReceive func(count int)
	onRequest func()
	rxFIFO    []byte // bytes of the in-flight controller write
	reply     []byte // bytes queued for the in-flight controller read
	joined    bool
}

// Controller is the target end of the simulated bus.
type Controller struct {
	p *Peripheral

	// eventMu serializes bus transactions, like the hardware does.
	eventMu sync.Mutex
}

// New creates a coupled peripheral/controller pair.
func New() (*Peripheral, *Controller) {
	p := &Peripheral{}
	return p, &Controller{p: p}
}

// Configure joins the bus at addr.
func (p *Peripheral) Configure(addr byte) error {
	if addr > 0x7f {
		return ErrBadAddress
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addr = addr
	p.joined = true
	return nil
}

// SetClock records the requested bus clock rate.
func (p *Peripheral) SetClock(hz uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = hz
	return nil
}

// OnReceive registers the controller-write handler.
func (p *Peripheral) OnReceive(handler func(count int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReceive = handler
}

// OnRequest registers the controller-read handler.
func (p *Peripheral) OnRequest(handler func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRequest = handler
}

// ReadByte consumes the next byte of the in-flight controller write,
// or the idle-bus value once the transaction is drained.
func (p *Peripheral) ReadByte() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rxFIFO) == 0 {
		return idleBus
	}
	b := p.rxFIFO[0]
	p.rxFIFO = p.rxFIFO[1:]
	return b
}

// Reply queues p's bytes for the in-flight controller read.
func (p *Peripheral) Reply(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reply = append(p.reply[:0], data...)
	return len(data), nil
}

// Addr returns the address the peripheral joined with.
func (p *Peripheral) Addr() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// Clock returns the last clock rate set.
func (p *Peripheral) Clock() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock
}

// Joined reports whether Configure has been called.
func (p *Peripheral) Joined() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.joined
}

// Write performs a controller write transaction: sub carries the register
// sub-address framing bytes, payload the data. The peripheral's receive
// handler is reported len(payload) bytes, with sub queued ahead of them,
// which is how bootloader i2c tooling frames its writes.
func (c *Controller) Write(sub, payload []byte) {
	c.ReportWrite(len(payload), append(append([]byte(nil), sub...), payload...))
}

// ReportWrite is the raw form of Write: data is queued on the wire and the
// receive handler is told count bytes arrived, whether or not that is
// true. Tests use the mismatch to drive the overflow and bogus-count
// fault paths.
func (c *Controller) ReportWrite(count int, data []byte) {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	c.p.mu.Lock()
	c.p.rxFIFO = append([]byte(nil), data...)
	handler := c.p.onReceive
	c.p.mu.Unlock()

	if handler != nil {
		handler(count)
	}

	c.p.mu.Lock()
	c.p.rxFIFO = nil
	c.p.mu.Unlock()
}

// Read performs a controller read transaction of n bytes. Bytes beyond
// what the peripheral replies with come back as the idle-bus value.
func (c *Controller) Read(n int) []byte {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	c.p.mu.Lock()
	c.p.reply = nil
	handler := c.p.onRequest
	c.p.mu.Unlock()

	if handler != nil {
		handler()
	}

	c.p.mu.Lock()
	defer c.p.mu.Unlock()

	out := make([]byte, n)
	copied := copy(out, c.p.reply)
	for i := copied; i < n; i++ {
		out[i] = idleBus
	}
	return out
}
