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

// HostPort is the byte stream carrying framed requests from the host and
// responses back to it. Implementations must be non-blocking: Read never
// waits for more bytes than Buffered reports.
//
// This can be implemented by a serial port, a pty, or an in-memory pipe.
type HostPort interface {
	// Buffered returns the number of bytes that can be read without blocking.
	Buffered() int

	// Read fills p from the receive buffer. It must not block waiting for
	// bytes beyond what Buffered reported.
	Read(p []byte) (int, error)

	// Write sends p to the host.
	Write(p []byte) (int, error)
}

// PeripheralPort is the hardware handle for operating as a follower on a
// target bus. It is the Go rendition of an I2C peripheral controller:
// the core registers event handlers, and the port invokes them from its
// own (asynchronous) context, one event at a time.
//
// Handlers run to completion without re-entrancy and must not call back
// into the main-context API of the core.
type PeripheralPort interface {
	// Configure joins the bus as a peripheral at the given 7-bit address.
	// On some controllers this reinitializes the peripheral engine, so it
	// must be applied before SetClock.
	Configure(addr byte) error

	// SetClock sets the bus clock rate in Hz.
	SetClock(hz uint32) error

	// OnReceive registers the handler invoked after the bus controller
	// writes to us. count is the number of payload bytes in the
	// transaction; the bytes themselves (including any sub-address framing
	// ahead of them) are consumed via ReadByte.
	OnReceive(handler func(count int))

	// OnRequest registers the handler invoked when the bus controller
	// reads from us. The handler supplies data via Reply.
	OnRequest(handler func())

	// ReadByte consumes the next byte of the current controller write.
	// Reading past the end of the transaction returns 0xFF, matching the
	// idle-bus convention.
	ReadByte() byte

	// Reply queues p for the bus controller's current read.
	Reply(p []byte) (int, error)
}
