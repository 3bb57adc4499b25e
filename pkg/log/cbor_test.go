package log

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

func TestEncodeDecodeAttemptEvent(t *testing.T) {
	fd := int32(5)
	event := Event{
		Timestamp:    time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC),
		ConnectionID: "conn-1",
		Layer:        LayerStream,
		Category:     CategoryAttempt,
		RemoteAddr:   "192.0.2.1:443",
		FD:           &fd,
		Attempt: &AttemptEvent{
			Index:    1,
			Address:  "192.0.2.1:443",
			Family:   "IPv4",
			Outcome:  AttemptFailed,
			Error:    "connection refused",
			Duration: 150 * time.Millisecond,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v (nanosecond precision lost?)", decoded.Timestamp, event.Timestamp)
	}
	if decoded.FD == nil || *decoded.FD != 5 {
		t.Errorf("FD = %v, want 5", decoded.FD)
	}
	if decoded.Attempt == nil {
		t.Fatal("Attempt is nil")
	}
	if *decoded.Attempt != *event.Attempt {
		t.Errorf("Attempt = %+v, want %+v", *decoded.Attempt, *event.Attempt)
	}
	if decoded.Data != nil || decoded.StateChange != nil || decoded.Error != nil {
		t.Error("unexpected payloads set after decode")
	}
}

func TestEncodeOmitsEmptyOptionalFields(t *testing.T) {
	minimal, err := EncodeEvent(Event{Timestamp: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	withAddr, err := EncodeEvent(Event{Timestamp: time.Unix(0, 0).UTC(), RemoteAddr: "192.0.2.1:443"})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	if len(withAddr) <= len(minimal) {
		t.Errorf("expected RemoteAddr to grow encoding: minimal=%d withAddr=%d", len(minimal), len(withAddr))
	}
}

func TestEncoderDecoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	for _, id := range []string{"a", "b"} {
		if err := enc.Encode(Event{Timestamp: time.Now(), ConnectionID: id}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	var got []string
	for {
		var e Event
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		got = append(got, e.ConnectionID)
	}

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("decoded IDs = %v, want [a b]", got)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error decoding garbage")
	}
}
