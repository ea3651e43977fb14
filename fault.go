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

import "sync/atomic"

// FaultSource identifies the subsystem that latched a fault.
type FaultSource uint8

// Fault sources
const (
	SourceFrameChannel FaultSource = 0x1
	SourceI2CPeriph    FaultSource = 0x2
)

// String returns the subsystem name for a fault source.
func (s FaultSource) String() string {
	switch s {
	case SourceFrameChannel:
		return "FrameChannel"
	case SourceI2CPeriph:
		return "I2CPeriph"
	default:
		return "Unknown"
	}
}

// FaultCode locates the failure within its source subsystem.
type FaultCode uint16

// FrameChannel fault codes
const (
	FaultHeaderShortRead FaultCode = 0x01 // Header read returned fewer bytes than buffered
	FaultLengthOverflow  FaultCode = 0x02 // Declared payload length exceeds MaxDataSize
	FaultBodyShortRead   FaultCode = 0x03 // Payload read lost bytes on the link
	FaultBadChannelState FaultCode = 0x04 // Poll on an uninitialized or corrupted channel
)

// I2CPeriph fault codes
const (
	FaultDoubleAttach       FaultCode = 0x01 // Attach called while a bus is already attached
	FaultNegativeWriteCount FaultCode = 0x02 // Bus controller reported a negative byte count
	FaultWriteOverflow      FaultCode = 0x03 // Controller write exceeds the capture buffer
	FaultBusConfig          FaultCode = 0x04 // Peripheral port rejected address or clock setup
)

// FaultMarker is OR'd into the diagnostic word so the MSBs of the blinked
// value carry a recognizable timing reference.
const FaultMarker uint32 = 0xAA000000

// FaultLatch is a process-wide, first-writer-wins record of an
// unrecoverable error. Once set it is never cleared within a power cycle;
// the main loop diverts to the diagnostic output and the core stops
// processing frames.
//
// Record may be called from the cooperative main context and from
// asynchronous bus callbacks; the compare-and-swap gives a deterministic
// earliest-fault-wins ordering regardless of which context reports first.
type FaultLatch struct {
	value atomic.Uint32
}

// Record latches the (source, code) pair if no fault has been recorded yet.
// Later calls are ignored.
func (l *FaultLatch) Record(source FaultSource, code FaultCode) {
	v := uint32(source)<<16 | uint32(code)
	l.value.CompareAndSwap(0, v)
}

// Active reports whether a fault has been latched.
func (l *FaultLatch) Active() bool {
	return l.value.Load() != 0
}

// Value returns the packed fault word, or zero if no fault is latched.
func (l *FaultLatch) Value() uint32 {
	return l.value.Load()
}

// Source extracts the subsystem from a packed fault word.
func (l *FaultLatch) Source() FaultSource {
	return FaultSource(l.value.Load() >> 16 & 0xff)
}

// Code extracts the location code from a packed fault word.
func (l *FaultLatch) Code() FaultCode {
	return FaultCode(l.value.Load() & 0xffff)
}
