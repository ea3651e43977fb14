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
	"bytes"
	"sync"
)

// MockHostPort is an in-memory HostPort for tests and host-side protocol
// development. Bytes queued with Feed become readable by the core; bytes
// the core writes accumulate and are retrieved with Written.
//
// PhantomBytes inflates Buffered without backing data, which makes the
// link appear to lose bytes mid-frame; it exists to exercise the
// short-read fault paths.
type MockHostPort struct {
	mu           sync.Mutex
	rx           bytes.Buffer
	tx           bytes.Buffer
	PhantomBytes int
}

// NewMockHostPort returns an empty mock port.
func NewMockHostPort() *MockHostPort {
	return &MockHostPort{}
}

// Feed queues p for the core to read.
func (m *MockHostPort) Feed(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx.Write(p)
}

// Written returns everything the core has sent and clears the buffer.
func (m *MockHostPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]byte(nil), m.tx.Bytes()...)
	m.tx.Reset()
	return out
}

// Buffered returns the apparent number of readable bytes.
func (m *MockHostPort) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rx.Len() + m.PhantomBytes
}

// Read fills p with queued bytes. Phantom bytes are never delivered, so a
// nonzero PhantomBytes produces short reads.
func (m *MockHostPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.rx.Read(p)
	if err != nil {
		// An empty buffer reads as zero bytes, not an error; the channel
		// treats the count mismatch itself as the failure signal.
		return n, nil
	}
	return n, nil
}

// Write records bytes sent by the core.
func (m *MockHostPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx.Write(p)
}

// MockPin records every level transition driven onto it.
type MockPin struct {
	mu     sync.Mutex
	Levels []bool
}

// Set appends the driven level.
func (p *MockPin) Set(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Levels = append(p.Levels, on)
}

// History returns a copy of the recorded levels.
func (p *MockPin) History() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.Levels...)
}
