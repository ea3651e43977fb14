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

// Package probe drives the target side of the bus: it is an I2C controller
// client for exercising a real companion device from a Linux host, used to
// verify the peripheral emulation end to end before pointing an actual
// bootloader at it.
package probe

import (
	"fmt"

	"github.com/tidecraft/companion"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultClock matches the companion's default bus speed.
const DefaultClock = 100 * physic.KiloHertz

// Client is an I2C controller handle onto one companion device.
type Client struct {
	bus     i2c.Bus
	dev     *i2c.Dev
	closer  func() error
	busName string
}

// Open initializes the periph host, opens the named I2C bus (empty string
// selects the first available) and returns a client addressing the
// companion's default peripheral address unless addr overrides it.
func Open(busName string, addr uint16) (*Client, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	c := NewClient(bus, addr)
	c.closer = bus.Close
	c.busName = busName
	return c, nil
}

// NewClient wraps an already-open bus. Tests inject a fake bus here.
func NewClient(bus i2c.Bus, addr uint16) *Client {
	if addr == 0 {
		addr = companion.DefaultI2CAddr
	}
	return &Client{
		bus: bus,
		dev: &i2c.Dev{Addr: addr, Bus: bus},
	}
}

// SetClock changes the bus clock rate.
func (c *Client) SetClock(f physic.Frequency) error {
	if err := c.bus.SetSpeed(f); err != nil {
		return fmt.Errorf("failed to set I2C bus speed: %w", err)
	}
	return nil
}

// WriteRegister performs the write shape bootloader i2c tooling emits: one
// register sub-address byte followed by the payload. The companion's
// sub-address skip discards the leading byte and captures the payload.
func (c *Client) WriteRegister(sub byte, payload []byte) error {
	if len(payload) > companion.I2CBufferSize {
		return fmt.Errorf("payload %d exceeds device buffer %d",
			len(payload), companion.I2CBufferSize)
	}

	w := make([]byte, 0, 1+len(payload))
	w = append(w, sub)
	w = append(w, payload...)
	if err := c.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("I2C write to %s failed: %w", c.busName, err)
	}
	return nil
}

// ReadBuffer reads n bytes of the companion's staged read buffer.
func (c *Client) ReadBuffer(n int) ([]byte, error) {
	if n > companion.I2CBufferSize {
		n = companion.I2CBufferSize
	}

	r := make([]byte, n)
	if err := c.dev.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("I2C read from %s failed: %w", c.busName, err)
	}
	return r, nil
}

// Close releases the bus if this client opened it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	if err := c.closer(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}
