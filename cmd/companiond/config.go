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

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/tidecraft/companion"
)

// Config is the companiond TOML configuration.
type Config struct {
	Serial SerialConfig `toml:"serial"`
	I2C    I2CConfig    `toml:"i2c"`
	LED    LEDConfig    `toml:"led"`
	Log    LogConfig    `toml:"log"`
}

// SerialConfig selects the host-link port.
type SerialConfig struct {
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`
}

// I2CConfig sets the emulated peripheral's initial bus parameters.
type I2CConfig struct {
	Address int `toml:"address"`
	Speed   int `toml:"speed"`
}

// LEDConfig names the status LED pin; empty disables it.
type LEDConfig struct {
	Pin string `toml:"pin"`
}

// LogConfig sets the console log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig mirrors the defaults the firmware ships with, so a bare
// companiond behaves like a freshly flashed board.
func DefaultConfig() Config {
	return Config{
		Serial: SerialConfig{
			Device: "/dev/ttyACM0",
			Baud:   companion.DefaultBaudRate,
		},
		I2C: I2CConfig{
			Address: companion.DefaultI2CAddr,
			Speed:   companion.DefaultI2CSpeed,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig overlays the TOML file at path onto the defaults. An empty
// path returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the firmware core would fault on later.
func (c Config) Validate() error {
	if c.Serial.Device == "" {
		return fmt.Errorf("serial.device must be set")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.I2C.Address < 0 || c.I2C.Address > 0x7f {
		return fmt.Errorf("i2c.address 0x%02x out of 7-bit range", c.I2C.Address)
	}
	if c.I2C.Speed <= 0 {
		return fmt.Errorf("i2c.speed must be positive, got %d", c.I2C.Speed)
	}
	return nil
}
