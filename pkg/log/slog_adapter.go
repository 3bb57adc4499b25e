package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see events in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Errors are logged at Warn level,
// everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}
	if event.FD != nil {
		attrs = append(attrs, slog.Int("fd", int(*event.FD)))
	}

	level := slog.LevelDebug

	switch {
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Attempt != nil:
		attrs = append(attrs,
			slog.Int("attempt", event.Attempt.Index),
			slog.String("address", event.Attempt.Address),
			slog.String("family", event.Attempt.Family),
			slog.String("outcome", event.Attempt.Outcome.String()),
		)
		if event.Attempt.Error != "" {
			attrs = append(attrs, slog.String("attempt_error", event.Attempt.Error))
		}
		if event.Attempt.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", event.Attempt.Duration))
		}
	case event.Data != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("size", event.Data.Size),
			slog.Int("chunks", event.Data.Chunks),
		)
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "lteconn", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
