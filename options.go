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
	"time"

	"github.com/rs/zerolog"
)

// Option is a functional option for configuring a Companion.
type Option func(*Companion)

// WithLogger attaches a structured logger to the core. The default is a
// no-op logger, which is what bare-metal style deployments want.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Companion) {
		c.log = log
	}
}

// WithSleep replaces the delay function used by the LED driver and the
// diagnostic loop. Tests substitute a recording stub so blink schedules
// can be asserted without real time passing.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Companion) {
		c.led.sleep = sleep
	}
}
