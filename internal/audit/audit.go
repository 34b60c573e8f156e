// Package audit is a write-only side channel for granting events. The sink
// is append-only and must never propagate a failure into its caller.
package audit

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Sink interface {
	Record(event string, payload map[string]any)
}

// Log writes each event as one structured line.
type Log struct {
	logger zerolog.Logger
}

func NewLog(w io.Writer) *Log {
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(w).With().Timestamp().Str("component", "audit").Logger()
	return &Log{logger: logger}
}

func (l *Log) Record(event string, payload map[string]any) {
	defer func() {
		// a broken sink must not take the grant down with it
		_ = recover()
	}()
	l.logger.Info().Fields(payload).Str("event", event).Msg("audit")
}
