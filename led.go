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

import "time"

// Pin is a single digital output, typically a status LED.
type Pin interface {
	Set(on bool)
}

// Fault signal timing. One pulse per bit, MSB first: a 1-bit is a long
// pulse at 50% duty cycle, a 0-bit a short pulse at 20% duty cycle, over a
// fixed bit period. Only the duty cycle carries information, so the signal
// survives imprecise timing on both ends.
const (
	FaultBitPeriod = 50 * time.Millisecond
	FaultWordGap   = 250 * time.Millisecond
	faultHighDuty  = 50
	faultLowDuty   = 20
)

// Pulse is one on/off cycle of the diagnostic output.
type Pulse struct {
	On  time.Duration
	Off time.Duration
}

// FaultPulses encodes a 32-bit diagnostic word as its pulse schedule,
// MSB first. It is pure so tests can verify the encoding without timing.
func FaultPulses(value uint32, period time.Duration) []Pulse {
	pulses := make([]Pulse, 0, 32)
	for i := 0; i < 32; i++ {
		duty := time.Duration(faultLowDuty)
		if value&(1<<31) != 0 {
			duty = faultHighDuty
		}
		on := period * duty / 100
		pulses = append(pulses, Pulse{On: on, Off: period - on})
		value <<= 1
	}
	return pulses
}

// LED drives a status pin. The zero value is unusable until Attach is
// called; all methods are no-ops while detached, so boards without a
// status LED simply skip the attach.
type LED struct {
	pin      Pin
	sleep    func(time.Duration)
	attached bool
	state    bool
}

// NewLED returns a detached LED.
func NewLED() *LED {
	return &LED{sleep: time.Sleep}
}

// Attach binds the LED to a pin and turns it on.
func (l *LED) Attach(pin Pin) {
	l.pin = pin
	l.attached = true
	l.On()
}

// On drives the pin to its active state.
func (l *LED) On() {
	if !l.attached {
		return
	}
	l.state = true
	l.pin.Set(true)
}

// Off drives the pin to its inactive state.
func (l *LED) Off() {
	if !l.attached {
		return
	}
	l.state = false
	l.pin.Set(false)
}

// Toggle inverts the pin state.
func (l *LED) Toggle() {
	if l.state {
		l.Off()
	} else {
		l.On()
	}
}

// Blink performs n on/off cycles with the given durations.
func (l *LED) Blink(onDur, offDur time.Duration, n int) {
	if !l.attached {
		return
	}
	for i := 0; i < n; i++ {
		l.On()
		l.sleep(onDur)
		l.Off()
		l.sleep(offDur)
	}
}

// BlinkValue emits a 32-bit value on the LED as timed fault pulses.
func (l *LED) BlinkValue(value uint32, period time.Duration) {
	if !l.attached {
		return
	}
	for _, p := range FaultPulses(value, period) {
		l.On()
		l.sleep(p.On)
		l.Off()
		l.sleep(p.Off)
	}
}
