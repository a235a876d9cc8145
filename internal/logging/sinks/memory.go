package sinks

import (
	"sync"

	"skyoffice-presence/server/internal/logging"
)

// Memory records every event it receives. Tests use it to assert on what
// a component published without depending on console output.
type Memory struct {
	mu     sync.Mutex
	events []logging.Event
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Write implements logging.Sink.
func (m *Memory) Write(e logging.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of every event recorded so far.
func (m *Memory) Events() []logging.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]logging.Event, len(m.events))
	copy(out, m.events)
	return out
}
