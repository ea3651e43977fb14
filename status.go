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

// Status is the single-byte result code carried in a response payload.
//
// These are recoverable, command-level results. They never affect channel
// state or the fault latch; the host is free to keep issuing commands.
type Status byte

// Response status codes
const (
	StatusSuccess       Status = 0x00 // Operation completed without error
	StatusUnimplemented Status = 0xfb // Functionality stubbed, but not implemented
	StatusUninitialized Status = 0xfc // Attempt to use uninitialized functionality
	StatusInvalidParam  Status = 0xfd // Invalid parameter in request
	StatusNotSupported  Status = 0xfe // Not supported in this firmware or mode
	StatusInvalidCmd    Status = 0xff // Invalid command identifier
)

// String returns the wire-protocol name of the status code.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusUnimplemented:
		return "UNIMPLEMENTED"
	case StatusUninitialized:
		return "UNINITIALIZED"
	case StatusInvalidParam:
		return "INVALID_PARAM"
	case StatusNotSupported:
		return "NOT_SUPPORTED"
	case StatusInvalidCmd:
		return "INVALID_CMD"
	default:
		return "UNKNOWN"
	}
}

// Command identifiers understood by the dispatcher.
const (
	CmdGetVersion      = 0x00
	CmdGetCapabilities = 0x01

	// 0x02 - 0x07 reserved for future device-level settings

	CmdI2CGetAddr        = 0x08
	CmdI2CSetAddr        = 0x09
	CmdI2CGetSpeed       = 0x0a
	CmdI2CSetSpeed       = 0x0b
	CmdI2CGetSubAddrLen  = 0x0c
	CmdI2CSetSubAddrLen  = 0x0d
	CmdI2CGetModeFlags   = 0x0e // Reserved, responds UNIMPLEMENTED
	CmdI2CSetModeFlags   = 0x0f // Reserved, responds UNIMPLEMENTED
	CmdI2CSetReadBuffer  = 0x10
	CmdI2CGetWriteBuffer = 0x11

	// 0x20 - 0x2f reserved for SPI peripheral device operation

	// 0x80 - 0xff will never be allocated upstream; downstream forks may
	// claim that range for their own extensions.
	CmdVendorStart = 0x80
	CmdVendorEnd   = 0xff
)

// Capability bits advertised via CmdGetCapabilities.
const (
	CapI2CPeriph uint32 = 1 << 0
	CapSPIPeriph uint32 = 1 << 1 // Reserved
)

// Defaults shared across target platforms, so host tooling can assume a
// consistent out-of-box configuration.
const (
	DefaultBaudRate = 115200
	DefaultI2CAddr  = 0x78 // A reserved I2C address, unlikely to collide
	DefaultI2CSpeed = 100000
)
