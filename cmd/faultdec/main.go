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

// faultdec decodes a companion fault word, read off the blinking LED, back
// into its source subsystem and location code.
//
//	$ faultdec 0xAA010002
//	source: FrameChannel (0x01)
//	code:   length overflow (0x0002)
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidecraft/companion"
)

var channelCodes = map[companion.FaultCode]string{
	companion.FaultHeaderShortRead: "header short read",
	companion.FaultLengthOverflow:  "length overflow",
	companion.FaultBodyShortRead:   "body short read",
	companion.FaultBadChannelState: "bad channel state",
}

var periphCodes = map[companion.FaultCode]string{
	companion.FaultDoubleAttach:       "double attach",
	companion.FaultNegativeWriteCount: "negative write count",
	companion.FaultWriteOverflow:      "write buffer overflow",
	companion.FaultBusConfig:          "bus configuration failed",
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: faultdec <fault word, e.g. 0xAA010002>")
		os.Exit(2)
	}

	arg := strings.TrimPrefix(strings.ToLower(os.Args[1]), "0x")
	word, err := strconv.ParseUint(arg, 16, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot parse %q: %v\n", os.Args[1], err)
		os.Exit(2)
	}

	value := uint32(word)
	if value&0xff000000 == companion.FaultMarker {
		value &^= 0xff000000
	}
	if value == 0 {
		fmt.Println("no fault recorded")
		return
	}

	source := companion.FaultSource(value >> 16 & 0xff)
	code := companion.FaultCode(value & 0xffff)

	fmt.Printf("source: %s (0x%02x)\n", source, uint8(source))
	fmt.Printf("code:   %s (0x%04x)\n", codeName(source, code), uint16(code))
}

func codeName(source companion.FaultSource, code companion.FaultCode) string {
	var name string
	switch source {
	case companion.SourceFrameChannel:
		name = channelCodes[code]
	case companion.SourceI2CPeriph:
		name = periphCodes[code]
	}
	if name == "" {
		name = "unknown"
	}
	return name
}
