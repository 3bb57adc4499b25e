package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logOne(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	if buf.Len() == 0 {
		t.Fatal("no output produced")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterLogsAttemptEvent(t *testing.T) {
	entry := logOne(t, Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-1",
		Layer:        LayerStream,
		Category:     CategoryAttempt,
		Attempt: &AttemptEvent{
			Index:   2,
			Address: "192.0.2.1:443",
			Family:  "IPv4",
			Outcome: AttemptFailed,
			Error:   "refused",
		},
	})

	if entry["level"] != "DEBUG" {
		t.Errorf("level = %v, want DEBUG", entry["level"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", entry["attempt"])
	}
	if entry["outcome"] != "FAILED" {
		t.Errorf("outcome = %v, want FAILED", entry["outcome"])
	}
	if entry["attempt_error"] != "refused" {
		t.Errorf("attempt_error = %v, want refused", entry["attempt_error"])
	}
}

func TestSlogAdapterLogsDataEvent(t *testing.T) {
	fd := int32(7)
	entry := logOne(t, Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-1",
		Direction:    DirectionOut,
		Layer:        LayerStream,
		Category:     CategoryData,
		FD:           &fd,
		Data:         &DataEvent{Size: 2048, Chunks: 2},
	})

	if entry["direction"] != "OUT" {
		t.Errorf("direction = %v, want OUT", entry["direction"])
	}
	if entry["size"] != float64(2048) {
		t.Errorf("size = %v, want 2048", entry["size"])
	}
	if entry["fd"] != float64(7) {
		t.Errorf("fd = %v, want 7", entry["fd"])
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	entry := logOne(t, Event{
		Timestamp: time.Now(),
		Layer:     LayerLink,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityLink,
			OldState: "INACTIVE",
			NewState: "ACTIVATING",
			Reason:   "acquire",
		},
	})

	if entry["entity"] != "LINK" {
		t.Errorf("entity = %v, want LINK", entry["entity"])
	}
	if entry["new_state"] != "ACTIVATING" {
		t.Errorf("new_state = %v, want ACTIVATING", entry["new_state"])
	}
	if entry["reason"] != "acquire" {
		t.Errorf("reason = %v, want acquire", entry["reason"])
	}
	if _, ok := entry["conn_id"]; ok {
		t.Error("conn_id should be omitted for link events")
	}
}

func TestSlogAdapterLogsErrorAtWarn(t *testing.T) {
	code := 111
	entry := logOne(t, Event{
		Timestamp: time.Now(),
		Layer:     LayerSocket,
		Category:  CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerSocket,
			Message: "connection refused",
			Code:    &code,
			Context: "connect",
		},
	})

	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["error_code"] != float64(111) {
		t.Errorf("error_code = %v, want 111", entry["error_code"])
	}
}
