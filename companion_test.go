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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidecraft/companion/busim"
)

func request(cmd byte, payload []byte) *Frame {
	f := &Frame{Cmd: cmd}
	f.SetPayload(payload)
	return f
}

// newAttachedDevice returns a device with host port and I2C peripheral
// attached, plus the simulated bus controller.
func newAttachedDevice() (*Companion, *MockHostPort, *busim.Controller) {
	dev := New()
	port := NewMockHostPort()
	dev.AttachHostPort(port)

	busPort, ctrl := busim.New()
	dev.AttachI2C(busPort, DefaultI2CAddr, DefaultI2CSpeed)
	return dev, port, ctrl
}

func TestHandle_GetVersion(t *testing.T) {
	t.Parallel()

	dev := New()
	msg := request(CmdGetVersion, nil)
	dev.Handle(msg)

	assert.Equal(t, byte(CmdGetVersion), msg.Cmd)
	require.Equal(t, byte(4), msg.Len)
	assert.Equal(t, []byte{VersionMajor, VersionMinor, VersionPatch, VersionExtra},
		msg.Payload())
}

func TestHandle_GetCapabilities(t *testing.T) {
	t.Parallel()

	t.Run("bare device", func(t *testing.T) {
		t.Parallel()
		dev := New()
		msg := request(CmdGetCapabilities, nil)
		dev.Handle(msg)

		require.Equal(t, byte(4), msg.Len)
		assert.Zero(t, binary.LittleEndian.Uint32(msg.Payload()))
	})

	t.Run("with i2c peripheral", func(t *testing.T) {
		t.Parallel()
		dev, _, _ := newAttachedDevice()
		msg := request(CmdGetCapabilities, nil)
		dev.Handle(msg)

		require.Equal(t, byte(4), msg.Len)
		assert.Equal(t, CapI2CPeriph, binary.LittleEndian.Uint32(msg.Payload()))
	})
}

// Every I2C command except the reserved mode-flag pair answers
// NOT_SUPPORTED while the peripheral is detached.
func TestHandle_I2CGating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cmd     byte
		payload []byte
	}{
		{"get addr", CmdI2CGetAddr, nil},
		{"set addr", CmdI2CSetAddr, []byte{0x30}},
		{"get speed", CmdI2CGetSpeed, nil},
		{"set speed", CmdI2CSetSpeed, []byte{0xa0, 0x86, 0x01, 0x00}},
		{"get subaddr len", CmdI2CGetSubAddrLen, nil},
		{"set subaddr len", CmdI2CSetSubAddrLen, []byte{0x00}},
		{"set read buffer", CmdI2CSetReadBuffer, []byte{0x01}},
		{"get write buffer", CmdI2CGetWriteBuffer, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dev := New() // no AttachI2C
			msg := request(tt.cmd, tt.payload)
			dev.Handle(msg)

			require.Equal(t, byte(1), msg.Len)
			assert.Equal(t, byte(StatusNotSupported), msg.Data[0])
			assert.False(t, dev.Faults().Active(),
				"recoverable results must not latch")
		})
	}
}

func TestHandle_I2CSetAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		payload    []byte
		attached   bool
		wantStatus Status
	}{
		{"valid", []byte{0x42}, true, StatusSuccess},
		{"address above 7-bit range", []byte{0x80}, true, StatusInvalidParam},
		{"address above range detached", []byte{0x80}, false, StatusInvalidParam},
		{"wrong length", []byte{0x42, 0x00}, true, StatusInvalidParam},
		{"empty payload", nil, true, StatusInvalidParam},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var dev *Companion
			if tt.attached {
				dev, _, _ = newAttachedDevice()
			} else {
				dev = New()
			}

			msg := request(CmdI2CSetAddr, tt.payload)
			dev.Handle(msg)

			require.Equal(t, byte(1), msg.Len)
			assert.Equal(t, byte(tt.wantStatus), msg.Data[0])
		})
	}
}

func TestHandle_I2CAddrRoundTrip(t *testing.T) {
	t.Parallel()

	dev, _, _ := newAttachedDevice()

	msg := request(CmdI2CSetAddr, []byte{0x42})
	dev.Handle(msg)
	require.Equal(t, byte(StatusSuccess), msg.Data[0])

	msg = request(CmdI2CGetAddr, nil)
	dev.Handle(msg)
	require.Equal(t, byte(1), msg.Len)
	assert.Equal(t, byte(0x42), msg.Data[0])
}

func TestHandle_I2CSpeed(t *testing.T) {
	t.Parallel()

	t.Run("get returns little-endian", func(t *testing.T) {
		t.Parallel()
		dev, _, _ := newAttachedDevice()
		msg := request(CmdI2CGetSpeed, nil)
		dev.Handle(msg)

		require.Equal(t, byte(4), msg.Len)
		assert.Equal(t, uint32(DefaultI2CSpeed),
			binary.LittleEndian.Uint32(msg.Payload()))
	})

	t.Run("set applies value", func(t *testing.T) {
		t.Parallel()
		dev, _, _ := newAttachedDevice()

		var speed [4]byte
		binary.LittleEndian.PutUint32(speed[:], 400000)
		msg := request(CmdI2CSetSpeed, speed[:])
		dev.Handle(msg)
		require.Equal(t, byte(StatusSuccess), msg.Data[0])

		msg = request(CmdI2CGetSpeed, nil)
		dev.Handle(msg)
		assert.Equal(t, uint32(400000), binary.LittleEndian.Uint32(msg.Payload()))
	})

	t.Run("set rejects zero and short payloads", func(t *testing.T) {
		t.Parallel()
		dev, _, _ := newAttachedDevice()

		for _, payload := range [][]byte{
			{0x00, 0x00, 0x00, 0x00}, // zero speed
			{0xa0, 0x86},             // short
			nil,                      // empty
		} {
			msg := request(CmdI2CSetSpeed, payload)
			dev.Handle(msg)
			require.Equal(t, byte(1), msg.Len)
			assert.Equal(t, byte(StatusInvalidParam), msg.Data[0])
		}
	})
}

func TestHandle_I2CSubAddrLen(t *testing.T) {
	t.Parallel()

	dev, _, _ := newAttachedDevice()

	msg := request(CmdI2CGetSubAddrLen, nil)
	dev.Handle(msg)
	require.Equal(t, byte(1), msg.Len)
	assert.Equal(t, byte(DefaultSubAddrLen), msg.Data[0])

	msg = request(CmdI2CSetSubAddrLen, []byte{3})
	dev.Handle(msg)
	assert.Equal(t, byte(StatusSuccess), msg.Data[0])

	msg = request(CmdI2CGetSubAddrLen, nil)
	dev.Handle(msg)
	assert.Equal(t, byte(3), msg.Data[0])
}

func TestHandle_ModeFlagsReserved(t *testing.T) {
	t.Parallel()

	for _, cmd := range []byte{CmdI2CGetModeFlags, CmdI2CSetModeFlags} {
		// Reserved regardless of attachment state.
		for _, attached := range []bool{true, false} {
			var dev *Companion
			if attached {
				dev, _, _ = newAttachedDevice()
			} else {
				dev = New()
			}

			msg := request(cmd, nil)
			dev.Handle(msg)
			require.Equal(t, byte(1), msg.Len)
			assert.Equal(t, byte(StatusUnimplemented), msg.Data[0])
		}
	}
}

func TestHandle_I2CBufferExchange(t *testing.T) {
	t.Parallel()

	dev, _, ctrl := newAttachedDevice()

	// Host stages a read buffer; the bus controller fetches it.
	msg := request(CmdI2CSetReadBuffer, []byte{0xca, 0xfe, 0xf0, 0x0d})
	dev.Handle(msg)
	require.Equal(t, byte(StatusSuccess), msg.Data[0])
	assert.Equal(t, []byte{0xca, 0xfe, 0xf0, 0x0d}, ctrl.Read(4))

	// Bus controller writes; host retrieves the capture.
	ctrl.Write([]byte{0x00}, []byte{0x11, 0x22, 0x33})
	msg = request(CmdI2CGetWriteBuffer, nil)
	dev.Handle(msg)
	require.Equal(t, byte(3), msg.Len)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, msg.Payload())
}

func TestHandle_SetReadBufferRejectsEmpty(t *testing.T) {
	t.Parallel()

	dev, _, _ := newAttachedDevice()
	msg := request(CmdI2CSetReadBuffer, nil)
	dev.Handle(msg)

	require.Equal(t, byte(1), msg.Len)
	assert.Equal(t, byte(StatusInvalidParam), msg.Data[0])
}

func TestHandle_GetWriteBufferEmpty(t *testing.T) {
	t.Parallel()

	dev, _, _ := newAttachedDevice()
	msg := request(CmdI2CGetWriteBuffer, nil)
	dev.Handle(msg)

	// Nothing captured yet: an empty payload, not an error byte.
	assert.Equal(t, byte(0), msg.Len)
}

func TestHandle_UnknownCommand(t *testing.T) {
	t.Parallel()

	dev, _, _ := newAttachedDevice()
	for _, cmd := range []byte{0x02, 0x07, 0x12, 0x20, CmdVendorStart, CmdVendorEnd} {
		msg := request(cmd, []byte{0x01, 0x02})
		dev.Handle(msg)

		require.Equal(t, byte(1), msg.Len, "cmd 0x%02x", cmd)
		assert.Equal(t, byte(StatusInvalidCmd), msg.Data[0], "cmd 0x%02x", cmd)
		assert.False(t, dev.Faults().Active())
	}
}

func TestProcessEvents_RequestResponse(t *testing.T) {
	t.Parallel()

	dev, port, _ := newAttachedDevice()
	port.Feed(encodeRequest(CmdGetVersion, nil))

	var wire []byte
	for i := 0; i < 16 && len(wire) == 0; i++ {
		require.Equal(t, Running, dev.ProcessEvents())
		wire = port.Written()
	}

	require.NotEmpty(t, wire, "no response on the wire")
	assert.Equal(t, byte(CmdGetVersion), wire[0])
	assert.Equal(t, byte(4), wire[1])
	assert.Equal(t, []byte{VersionMajor, VersionMinor, VersionPatch, VersionExtra},
		wire[2:6])
}

func TestProcessEvents_HaltsOnFault(t *testing.T) {
	t.Parallel()

	dev, port, _ := newAttachedDevice()
	port.Feed([]byte{0x01, 0xff}) // declared length beyond capacity

	var state RunState
	for i := 0; i < 16; i++ {
		state = dev.ProcessEvents()
		if state == Halted {
			break
		}
	}

	require.Equal(t, Halted, state)
	assert.True(t, dev.Faults().Active())

	// Halted is sticky.
	assert.Equal(t, Halted, dev.ProcessEvents())
}

func TestRunDiagnostic_BlinksFaultWord(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One word is 32 bits at two sleeps per bit, then the word gap; stop
	// the loop once the first full word has been emitted.
	var slept []time.Duration
	dev := New(WithSleep(func(d time.Duration) {
		slept = append(slept, d)
		if len(slept) >= 65 {
			cancel()
		}
	}))

	pin := &MockPin{}
	dev.AttachLED(pin)
	dev.Faults().Record(SourceFrameChannel, FaultLengthOverflow)

	dev.RunDiagnostic(ctx)

	// 32 bits, two sleeps per bit, plus the word gap.
	require.GreaterOrEqual(t, len(slept), 65)
	assert.Equal(t, FaultWordGap, slept[64])

	// MSB-first: the 0xAA marker alternates long and short pulses.
	long := FaultBitPeriod / 2
	short := FaultBitPeriod / 5
	assert.Equal(t, long, slept[0], "bit 31 of 0xAA... is 1")
	assert.Equal(t, short, slept[2], "bit 30 of 0xAA... is 0")
	assert.Equal(t, long, slept[4])
	assert.Equal(t, short, slept[6])
}
