// Package sinks provides logging.Sink implementations: a console sink
// for production use and a memory sink for tests.
package sinks

import (
	"fmt"
	"io"
	"log"

	"skyoffice-presence/server/internal/logging"
)

// Console writes one line per event to the given writer.
type Console struct {
	logger *log.Logger
}

// NewConsole returns a Console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{logger: log.New(w, "", log.LstdFlags)}
}

// Write implements logging.Sink.
func (c *Console) Write(e logging.Event) error {
	if c == nil || c.logger == nil {
		return nil
	}
	extra := ""
	if len(e.Extra) > 0 {
		extra = fmt.Sprintf(" extra=%v", e.Extra)
	}
	c.logger.Printf("[%s] %s room=%s ns=%s agent=%s %s%s",
		e.Category, e.Severity, e.RoomID, e.Namespace, e.AgentID, e.Message, extra)
	return nil
}
