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

// Package uart adapts a serial port into the non-blocking HostPort the
// firmware core polls. The OS port blocks on read, so a background
// goroutine drains it into a buffer that the main loop inspects with
// Buffered, preserving the firmware's poll-don't-block discipline.
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("uart: port closed")

// Port is a HostPort backed by a serial device.
type Port struct {
	rwc    io.ReadWriteCloser
	done   chan struct{}
	mu     sync.Mutex
	rx     []byte
	rdErr  error
	closed bool
}

// Open opens the serial device at the given baud rate, 8N1.
func Open(device string, baud int) (*Port, error) {
	mode := &serial.Mode{BaudRate: baud}
	sp, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	return NewPort(sp), nil
}

// NewPort wraps any read/write/closer (a pty, a socket, a test double)
// and starts the reader goroutine.
func NewPort(rwc io.ReadWriteCloser) *Port {
	p := &Port{
		rwc:  rwc,
		done: make(chan struct{}),
	}
	go p.pump()
	return p
}

// pump moves bytes from the blocking OS read into the poll buffer until
// the port errors or closes.
func (p *Port) pump() {
	defer close(p.done)
	chunk := make([]byte, 256)
	for {
		n, err := p.rwc.Read(chunk)

		p.mu.Lock()
		if n > 0 {
			p.rx = append(p.rx, chunk[:n]...)
		}
		if err != nil {
			if !p.closed {
				p.rdErr = err
			}
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

// Buffered returns the number of received bytes waiting to be read.
func (p *Port) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rx)
}

// Read copies buffered bytes into b without blocking.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	if n == 0 && p.rdErr != nil {
		return 0, p.rdErr
	}
	return n, nil
}

// Write sends b to the host.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	n, err := p.rwc.Write(b)
	if err != nil {
		return n, fmt.Errorf("serial write failed: %w", err)
	}
	return n, nil
}

// Close shuts the underlying port and waits for the reader to exit.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.rwc.Close()
	<-p.done
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}
