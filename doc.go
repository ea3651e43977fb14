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

/*
Package companion implements the firmware core of a bus-bridging companion
device for bootloader security assessment. The host drives the device over
a framed serial link; the device acts as an I2C peripheral on the target's
bus, exposing exchange buffers the target's bootloader can read and write.

The core is three cooperating pieces plus a shared fault latch:

  - FrameChannel: an incremental, non-blocking parser/serializer for the
    host-link wire protocol ([cmd][len][payload], len <= 64)
  - Companion: the dispatcher mapping command identifiers onto the device
    subsystems, always yielding a response frame
  - I2CPeriph: the emulated bus peripheral, whose exchange buffers are
    mutated both from the main loop and from asynchronous bus events
  - FaultLatch: a first-writer-wins record of unrecoverable errors

Usage follows the attach-then-loop shape of the firmware it models:

	dev := companion.New()
	dev.AttachHostPort(port)     // e.g. link/uart
	dev.AttachI2C(busPort, companion.DefaultI2CAddr, companion.DefaultI2CSpeed)

	for dev.ProcessEvents() == companion.Running {
	    // cooperative loop; poll pacing is the caller's choice
	}
	dev.RunDiagnostic(ctx) // blink the fault code until reset

Error Handling:

Command-level problems (bad parameters, unattached subsystem, unknown
command) are recoverable and reported as a single status byte in the
response payload. Protocol- and bus-level violations are fatal: they latch
the fault latch, the frame channel parks in its terminal state, and
ProcessEvents returns Halted. Recovery requires an external reset.

Concurrency:

The main loop is single-threaded and nothing in it blocks. The only
concurrent entry points are the bus-event handlers registered on a
PeripheralPort, which synchronize against the main context internally and
never call back into it.
*/
package companion
