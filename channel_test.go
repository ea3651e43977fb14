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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollFrame polls until a frame arrives or the iteration budget runs out.
// Assembly advances one state per poll, so even a fully buffered frame
// needs a few calls.
func pollFrame(t *testing.T, ch *FrameChannel, maxPolls int) (*Frame, bool) {
	t.Helper()
	for i := 0; i < maxPolls; i++ {
		if f, ok := ch.Poll(); ok {
			return f, true
		}
	}
	return nil, false
}

func newTestChannel() (*FrameChannel, *MockHostPort, *FaultLatch) {
	latch := &FaultLatch{}
	port := NewMockHostPort()
	ch := NewFrameChannel(latch)
	ch.Attach(port)
	return ch, port, latch
}

func encodeRequest(cmd byte, payload []byte) []byte {
	out := []byte{cmd, byte(len(payload))}
	return append(out, payload...)
}

func TestFrameChannel_RoundTrip(t *testing.T) {
	t.Parallel()

	// Every payload length, contiguous delivery.
	for length := 0; length <= MaxDataSize; length++ {
		payload := make([]byte, length)
		for i := range payload {
			payload[i] = byte(i + 1)
		}

		ch, port, latch := newTestChannel()
		port.Feed(encodeRequest(0x42, payload))

		frame, ok := pollFrame(t, ch, 8)
		require.True(t, ok, "length %d: no frame assembled", length)
		assert.Equal(t, byte(0x42), frame.Cmd)
		assert.Equal(t, byte(length), frame.Len)
		assert.Equal(t, payload, frame.Payload())
		assert.False(t, latch.Active())

		// Bytes past the declared length read back as zero.
		for i := length; i < MaxDataSize; i++ {
			assert.Zero(t, frame.Data[i], "length %d: residue at %d", length, i)
		}
	}
}

func TestFrameChannel_FragmentationInvariance(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 48)
	for i := range payload {
		payload[i] = byte(0xA0 ^ i)
	}
	wire := encodeRequest(0x10, payload)

	partitions := [][]int{
		{len(wire)},          // single delivery
		{1, len(wire) - 1},   // header split
		{2, len(wire) - 2},   // header, then body
		{2, 1, 1, 1, 45},     // trickle then burst
		{5, 5, 5, 5, 5, 25},  // even chunks
		oneByteChunks(wire),  // fully serialized
	}

	for _, chunks := range partitions {
		ch, port, latch := newTestChannel()

		var frame *Frame
		var got bool
		off := 0
		for _, n := range chunks {
			port.Feed(wire[off : off+n])
			off += n
			if frame == nil {
				if f, ok := pollFrame(t, ch, 4); ok {
					frame = f
					got = true
				}
			}
		}
		if !got {
			frame, got = pollFrame(t, ch, 8)
		}

		require.True(t, got, "partition %v: no frame", chunks)
		assert.Equal(t, byte(0x10), frame.Cmd)
		assert.Equal(t, payload, frame.Payload(), "partition %v", chunks)
		assert.False(t, latch.Active())
	}
}

func oneByteChunks(wire []byte) []int {
	chunks := make([]int, len(wire))
	for i := range chunks {
		chunks[i] = 1
	}
	return chunks
}

func TestFrameChannel_LengthBound(t *testing.T) {
	t.Parallel()

	for _, length := range []byte{65, 0x80, 0xff} {
		ch, port, latch := newTestChannel()
		port.Feed([]byte{0x01, length})

		frame, ok := pollFrame(t, ch, 8)
		assert.False(t, ok, "length %d produced a frame", length)
		assert.Nil(t, frame)

		require.True(t, latch.Active(), "length %d did not latch", length)
		assert.Equal(t, SourceFrameChannel, latch.Source())
		assert.Equal(t, FaultLengthOverflow, latch.Code())
		assert.Equal(t, ChannelFaulted, ch.State())

		// Terminal: nothing ever comes out again.
		port.Feed(encodeRequest(0x00, nil))
		_, ok = pollFrame(t, ch, 8)
		assert.False(t, ok)
	}
}

func TestFrameChannel_HeaderShortRead(t *testing.T) {
	t.Parallel()

	ch, port, latch := newTestChannel()
	port.Feed([]byte{0x01})
	port.PhantomBytes = 1 // Buffered claims 2, only 1 real byte arrives

	_, ok := pollFrame(t, ch, 4)
	assert.False(t, ok)
	require.True(t, latch.Active())
	assert.Equal(t, FaultHeaderShortRead, latch.Code())
	assert.Equal(t, ChannelFaulted, ch.State())
}

func TestFrameChannel_BodyShortRead(t *testing.T) {
	t.Parallel()

	ch, port, latch := newTestChannel()
	port.Feed([]byte{0x01, 8, 0xAA, 0xBB}) // header + 2 of 8 payload bytes

	// Header assembles cleanly.
	_, ok := pollFrame(t, ch, 2)
	require.False(t, ok)
	require.False(t, latch.Active())

	// The link now claims more bytes than it delivers.
	port.PhantomBytes = 4
	_, ok = pollFrame(t, ch, 4)
	assert.False(t, ok)
	require.True(t, latch.Active())
	assert.Equal(t, FaultBodyShortRead, latch.Code())
}

func TestFrameChannel_PollBeforeAttach(t *testing.T) {
	t.Parallel()

	latch := &FaultLatch{}
	ch := NewFrameChannel(latch)

	_, ok := ch.Poll()
	assert.False(t, ok)
	require.True(t, latch.Active())
	assert.Equal(t, FaultBadChannelState, latch.Code())
	assert.Equal(t, ChannelFaulted, ch.State())
}

func TestFrameChannel_AttachOnce(t *testing.T) {
	t.Parallel()

	ch, port, _ := newTestChannel()

	// A second attach must not reset an active channel.
	other := NewMockHostPort()
	other.Feed(encodeRequest(0x99, nil))
	ch.Attach(other)

	port.Feed(encodeRequest(0x07, []byte{1}))
	frame, ok := pollFrame(t, ch, 8)
	require.True(t, ok)
	assert.Equal(t, byte(0x07), frame.Cmd)
}

func TestFrameChannel_Send(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		frame    Frame
		wantWire []byte
	}{
		{
			name:     "empty payload",
			frame:    Frame{Cmd: 0x11, Len: 0},
			wantWire: []byte{0x11, 0x00},
		},
		{
			name: "status byte",
			frame: func() Frame {
				f := Frame{Cmd: 0x09}
				f.setStatus(StatusSuccess)
				return f
			}(),
			wantWire: []byte{0x09, 0x01, 0x00},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ch, port, _ := newTestChannel()
			f := tt.frame
			require.NoError(t, ch.Send(&f))
			assert.Equal(t, tt.wantWire, port.Written())
		})
	}
}

func TestFrameChannel_SendClampsLength(t *testing.T) {
	t.Parallel()

	ch, port, _ := newTestChannel()
	f := Frame{Cmd: 0x01, Len: 200}
	require.NoError(t, ch.Send(&f))

	wire := port.Written()
	require.Len(t, wire, HeaderSize+MaxDataSize)
	assert.Equal(t, byte(MaxDataSize), wire[1])
	assert.Equal(t, byte(MaxDataSize), f.Len)
}

func TestFrameChannel_SendUnattached(t *testing.T) {
	t.Parallel()

	ch := NewFrameChannel(&FaultLatch{})
	f := Frame{Cmd: 0x01}
	assert.ErrorIs(t, ch.Send(&f), ErrNotAttached)
}

func TestFrameChannel_BackToBackFrames(t *testing.T) {
	t.Parallel()

	ch, port, latch := newTestChannel()
	port.Feed(encodeRequest(0x01, []byte{0xAA}))
	port.Feed(encodeRequest(0x02, []byte{0xBB, 0xCC}))

	first, ok := pollFrame(t, ch, 8)
	require.True(t, ok)
	assert.Equal(t, byte(0x01), first.Cmd)
	assert.Equal(t, []byte{0xAA}, first.Payload())

	second, ok := pollFrame(t, ch, 8)
	require.True(t, ok)
	assert.Equal(t, byte(0x02), second.Cmd)
	assert.Equal(t, []byte{0xBB, 0xCC}, second.Payload())

	assert.False(t, latch.Active())
}
