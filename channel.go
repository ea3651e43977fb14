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

import "errors"

// ErrNotAttached is returned by Send before a host port has been attached.
var ErrNotAttached = errors.New("companion: no host port attached")

// ChannelState is the frame assembly state of a FrameChannel.
type ChannelState uint8

// Channel states
const (
	ChannelUninitialized ChannelState = iota
	ChannelIdle
	ChannelReadingHeader
	ChannelReadingBody
	ChannelReady
	ChannelFaulted
)

// String returns a short name for the channel state.
func (s ChannelState) String() string {
	switch s {
	case ChannelUninitialized:
		return "uninitialized"
	case ChannelIdle:
		return "idle"
	case ChannelReadingHeader:
		return "reading-header"
	case ChannelReadingBody:
		return "reading-body"
	case ChannelReady:
		return "ready"
	case ChannelFaulted:
		return "faulted"
	default:
		return "invalid"
	}
}

// FrameChannel incrementally assembles request frames from a HostPort and
// serializes responses back onto it. It owns no command semantics.
//
// Poll is non-blocking and advances the state machine by at most one state
// per call; the transport may deliver bytes in arbitrary chunk sizes across
// polls and the assembled frame is identical regardless of partitioning.
//
// Fatal protocol violations (a declared length beyond MaxDataSize, a short
// read indicating link-level data loss) latch the fault latch and drive the
// channel to ChannelFaulted, which is terminal: every later Poll returns
// nothing until an external reset.
type FrameChannel struct {
	port   HostPort
	faults *FaultLatch
	state  ChannelState
	req    Frame
	rcvd   int
	out    [HeaderSize + MaxDataSize]byte
}

// NewFrameChannel returns an unattached channel reporting faults to latch.
func NewFrameChannel(latch *FaultLatch) *FrameChannel {
	return &FrameChannel{faults: latch}
}

// Attach associates the channel with the host port. It has no effect once
// the channel has left the uninitialized state.
func (ch *FrameChannel) Attach(port HostPort) {
	if ch.state == ChannelUninitialized {
		ch.port = port
		ch.req = Frame{}
		ch.state = ChannelIdle
	}
}

// State returns the current assembly state.
func (ch *FrameChannel) State() ChannelState {
	return ch.state
}

// Poll advances frame assembly and returns a request if one has fully
// arrived. The returned frame's payload is zero-filled past its declared
// length. The frame is owned by the channel and valid until the next Poll.
func (ch *FrameChannel) Poll() (*Frame, bool) {
	switch ch.state {
	case ChannelIdle:
		ch.rcvd = 0
		if ch.port.Buffered() >= HeaderSize {
			ch.state = ChannelReadingHeader
		}

	case ChannelReadingHeader:
		var hdr [HeaderSize]byte
		n, err := ch.port.Read(hdr[:])
		if err != nil || n != HeaderSize {
			ch.fault(FaultHeaderShortRead)
			return nil, false
		}

		ch.req.Cmd = hdr[0]
		ch.req.Len = hdr[1]

		switch {
		case ch.req.Len == 0:
			ch.state = ChannelReady
		case int(ch.req.Len) <= MaxDataSize:
			ch.rcvd = 0
			ch.state = ChannelReadingBody
		default:
			// The host declared more payload than a frame can carry.
			// There is no way to resynchronize a raw length-framed
			// stream after this, so it is fatal rather than recoverable.
			ch.fault(FaultLengthOverflow)
			return nil, false
		}

	case ChannelReadingBody:
		avail := ch.port.Buffered()
		if avail > 0 {
			left := int(ch.req.Len) - ch.rcvd
			toRead := avail
			if toRead > left {
				toRead = left
			}

			n, err := ch.port.Read(ch.req.Data[ch.rcvd : ch.rcvd+toRead])
			if err != nil || n != toRead {
				ch.fault(FaultBodyShortRead)
				return nil, false
			}

			ch.rcvd += toRead
			if ch.rcvd >= int(ch.req.Len) {
				ch.state = ChannelReady
			}
		}

	case ChannelReady:
		for i := int(ch.req.Len); i < MaxDataSize; i++ {
			ch.req.Data[i] = 0
		}
		ch.state = ChannelIdle
		return &ch.req, true

	case ChannelFaulted:
		return nil, false

	default:
		// Includes polling before Attach. The caller contract requires an
		// attached port, so treat it like any other protocol corruption.
		ch.fault(FaultBadChannelState)
		return nil, false
	}

	return nil, false
}

// Send serializes the response header and payload onto the host port.
// A length beyond MaxDataSize is silently clamped; responses originate from
// the dispatcher, which never exceeds the bound.
func (ch *FrameChannel) Send(resp *Frame) error {
	if ch.port == nil {
		return ErrNotAttached
	}

	if resp.Len > MaxDataSize {
		resp.Len = MaxDataSize
	}

	ch.out[0] = resp.Cmd
	ch.out[1] = resp.Len
	copy(ch.out[HeaderSize:], resp.Data[:resp.Len])

	if _, err := ch.port.Write(ch.out[:HeaderSize+int(resp.Len)]); err != nil {
		return err
	}
	return nil
}

func (ch *FrameChannel) fault(code FaultCode) {
	ch.faults.Record(SourceFrameChannel, code)
	ch.state = ChannelFaulted
}
