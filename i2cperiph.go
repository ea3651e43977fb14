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

import "sync"

// I2CBufferSize is the capacity of each exchange buffer. It tracks the
// transaction limit common to small peripheral controllers, so a larger
// buffer would not be observable on the wire anyway.
const I2CBufferSize = 32

// DefaultSubAddrLen is the number of leading bytes of an incoming bus
// write to discard. Bootloader i2c tooling prepends one register
// sub-address byte that this protocol has no use for; set it to 0 to
// capture everything.
const DefaultSubAddrLen = 1

// I2CPeriph emulates an I2C peripheral (bus follower). The main context
// configures it and exchanges buffers with it through frame commands;
// the bus controller mutates the same buffers asynchronously through the
// PeripheralPort event handlers.
//
// The two exchange buffers and their counts are the only state shared
// between contexts. Every access goes through one mutex so a bus event can
// never observe a partially updated buffer; this replaces the
// interrupt-masked critical sections a bare-metal build would use.
// Event handlers run to completion and never call the main-context API.
type I2CPeriph struct {
	faults *FaultLatch

	mu         sync.Mutex
	port       PeripheralPort
	addr       byte
	speed      uint32
	subAddrLen uint8

	rbuf   [I2CBufferSize]byte // outgoing: controller consumes on its next read
	rcount int
	wbuf   [I2CBufferSize]byte // incoming: most recent controller write
	wcount int
}

// NewI2CPeriph returns a detached peripheral reporting faults to latch.
func NewI2CPeriph(latch *FaultLatch) *I2CPeriph {
	return &I2CPeriph{faults: latch, subAddrLen: DefaultSubAddrLen}
}

// Attach binds the peripheral to a bus port and brings it onto the bus at
// addr with the given clock rate. Only one bus is supported; attaching
// twice is a configuration error severe enough to latch a fault rather
// than silently misbehave, and the first configuration stays intact.
func (p *I2CPeriph) Attach(port PeripheralPort, addr byte, speed uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		p.faults.Record(SourceI2CPeriph, FaultDoubleAttach)
		return
	}

	p.port = port
	p.addr = addr

	p.rbuf = [I2CBufferSize]byte{}
	p.rcount = 0
	p.wbuf = [I2CBufferSize]byte{}
	p.wcount = 0

	// Address must be applied before speed: reprogramming the peripheral
	// address reinitializes the controller on some targets, and setting
	// the clock first hangs at least one of them.
	p.configureLocked(addr)
	p.setSpeedLocked(speed)
}

// Attached reports whether a bus port has been bound.
func (p *I2CPeriph) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port != nil
}

// SetAddress changes the peripheral's bus address and re-registers the
// event handlers (reconfiguring the address tears the engine down on some
// controllers).
func (p *I2CPeriph) SetAddress(addr byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port != nil {
		p.addr = addr
		p.configureLocked(addr)
	}
}

// Address returns the configured bus address, or 0xFF when detached.
func (p *I2CPeriph) Address() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port == nil {
		return 0xff
	}
	return p.addr
}

// SetSpeed changes the bus clock rate. A zero rate is ignored.
func (p *I2CPeriph) SetSpeed(speed uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setSpeedLocked(speed)
}

// Speed returns the configured bus clock rate in Hz.
func (p *I2CPeriph) Speed() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// SetSubAddrLen sets how many leading bytes of each controller write are
// consumed and dropped before capture.
func (p *I2CPeriph) SetSubAddrLen(n uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subAddrLen = n
}

// SubAddrLen returns the configured sub-address skip count.
func (p *I2CPeriph) SubAddrLen() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subAddrLen
}

// SetReadBuffer fills the outgoing buffer the controller consumes on its
// next read. Data beyond the buffer capacity is truncated, not an error.
func (p *I2CPeriph) SetReadBuffer(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(data) > I2CBufferSize {
		data = data[:I2CBufferSize]
	}
	copy(p.rbuf[:], data)
	p.rcount = len(data)
}

// WriteBuffer returns a copy of the bytes most recently written by the bus
// controller.
func (p *I2CPeriph) WriteBuffer() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, p.wcount)
	copy(out, p.wbuf[:p.wcount])
	return out
}

// CopyWriteBuffer copies the captured controller write into dst and
// returns the number of bytes copied, capped at len(dst). It exists so the
// dispatcher can fill a response payload in place without allocating.
func (p *I2CPeriph) CopyWriteBuffer(dst []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.wcount
	if n > len(dst) {
		n = len(dst)
	}
	copy(dst, p.wbuf[:n])
	return n
}

// handleReceive is the bus-event handler for a controller write.
//
// count is the reported payload byte count. A negative count means the
// port driver has lost the plot; a count beyond the capture buffer means
// we are no longer in control of the bus transaction. Both latch a fault,
// but the overflow case still captures up to capacity so the bytes are
// available for post-mortem inspection.
func (p *I2CPeriph) handleReceive(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if count < 0 {
		p.faults.Record(SourceI2CPeriph, FaultNegativeWriteCount)
		return
	}
	if count > I2CBufferSize {
		p.faults.Record(SourceI2CPeriph, FaultWriteOverflow)
		count = I2CBufferSize
	}

	// Sub-address framing bytes precede the payload; consume and drop them.
	for i := 0; i < int(p.subAddrLen); i++ {
		p.port.ReadByte()
	}

	p.wcount = count
	for i := 0; i < count; i++ {
		p.wbuf[i] = p.port.ReadByte()
	}
}

// handleRequest is the bus-event handler for a controller read: it places
// the current read buffer contents onto the bus.
func (p *I2CPeriph) handleRequest() {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = p.port.Reply(p.rbuf[:p.rcount])
}

func (p *I2CPeriph) configureLocked(addr byte) {
	if err := p.port.Configure(addr); err != nil {
		p.faults.Record(SourceI2CPeriph, FaultBusConfig)
		return
	}
	p.port.OnReceive(p.handleReceive)
	p.port.OnRequest(p.handleRequest)
}

func (p *I2CPeriph) setSpeedLocked(speed uint32) {
	if speed == 0 || p.port == nil {
		return
	}
	p.speed = speed
	if err := p.port.SetClock(speed); err != nil {
		p.faults.Record(SourceI2CPeriph, FaultBusConfig)
	}
}
