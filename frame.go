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

// Frame size limits
const (
	// MaxDataSize is the largest payload a single frame may carry.
	MaxDataSize = 64

	// HeaderSize is the fixed request/response header: command + length.
	HeaderSize = 2
)

// Frame is one command/length/payload unit of the host-link wire protocol.
//
// Requests and responses share this structure. The payload occupies
// Data[:Len]; the channel zero-fills Data past Len on the receive path so
// handlers may index the full buffer without length checks.
type Frame struct {
	Cmd  byte
	Len  byte
	Data [MaxDataSize]byte
}

// Payload returns the declared payload bytes of the frame.
func (f *Frame) Payload() []byte {
	n := int(f.Len)
	if n > MaxDataSize {
		n = MaxDataSize
	}
	return f.Data[:n]
}

// SetPayload copies p into the frame and sets Len, truncating to capacity.
func (f *Frame) SetPayload(p []byte) {
	n := copy(f.Data[:], p)
	f.Len = byte(n)
}

// setStatus turns the frame into a one-byte status response.
func (f *Frame) setStatus(s Status) {
	f.Len = 1
	f.Data[0] = byte(s)
}
