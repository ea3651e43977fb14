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

// companiond runs the companion firmware core on a POSIX host: the host
// link is a real serial port (or pty) and the target bus is the in-memory
// simulator, which makes it a development target for host tooling that
// does not have a board plugged in. An optional GPIO pin carries the
// heartbeat and fault blinks, matching board behavior.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidecraft/companion"
	"github.com/tidecraft/companion/busim"
	"github.com/tidecraft/companion/internal/logging"
	"github.com/tidecraft/companion/link/uart"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// pollInterval paces the cooperative main loop. Real firmware spins; a
// daemon sharing a CPU should not.
const pollInterval = time.Millisecond

// gpioPin adapts a periph GPIO output to the core's Pin contract.
type gpioPin struct {
	pin gpio.PinIO
}

func (p gpioPin) Set(on bool) {
	_ = p.pin.Out(gpio.Level(on))
}

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	device := flag.String("device", "", "serial device override")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	log := logging.New("companiond", cfg.Log.Level)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("companiond failed")
	}
}

func run(cfg Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	port, err := uart.Open(cfg.Serial.Device, cfg.Serial.Baud)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := port.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("serial close failed")
		}
	}()

	dev := companion.New(companion.WithLogger(log))
	dev.AttachHostPort(port)

	if cfg.LED.Pin != "" {
		pin, err := openLED(cfg.LED.Pin)
		if err != nil {
			return err
		}
		dev.AttachLED(pin)
	}

	periphPort, _ := busim.New()
	dev.AttachI2C(periphPort, byte(cfg.I2C.Address), uint32(cfg.I2C.Speed))

	log.Info().
		Str("device", cfg.Serial.Device).
		Int("baud", cfg.Serial.Baud).
		Int("i2c_addr", cfg.I2C.Address).
		Msg("companion core running")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case <-ticker.C:
		}

		if dev.ProcessEvents() == companion.Halted {
			log.Error().
				Uint32("fault", companion.FaultMarker|dev.Faults().Value()).
				Msg("fault latched, entering diagnostic loop")
			dev.RunDiagnostic(ctx)
			return fmt.Errorf("halted on fault 0x%08x",
				companion.FaultMarker|dev.Faults().Value())
		}
	}
}

// openLED resolves a named GPIO through periph and returns it as a Pin.
func openLED(name string) (companion.Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return gpioPin{pin: pin}, nil
}
