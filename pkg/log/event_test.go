package log

import (
	"bytes"
	"testing"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DirectionIn", DirectionIn.String(), "IN"},
		{"DirectionOut", DirectionOut.String(), "OUT"},
		{"DirectionUnknown", Direction(9).String(), "UNKNOWN"},
		{"LayerLink", LayerLink.String(), "LINK"},
		{"LayerStream", LayerStream.String(), "STREAM"},
		{"CategoryAttempt", CategoryAttempt.String(), "ATTEMPT"},
		{"CategoryUnknown", Category(9).String(), "UNKNOWN"},
		{"EntitySocket", StateEntitySocket.String(), "SOCKET"},
		{"OutcomeFailed", AttemptFailed.String(), "FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("String() = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNewDataEvent(t *testing.T) {
	t.Run("Small", func(t *testing.T) {
		data := []byte{1, 2, 3}
		ev := NewDataEvent(data, 1)

		if ev.Size != 3 || ev.Chunks != 1 || ev.Truncated {
			t.Errorf("got %+v", ev)
		}
		data[0] = 9
		if ev.Data[0] != 1 {
			t.Error("DataEvent must copy the payload")
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xAB}, MaxDataCapture+10)
		ev := NewDataEvent(data, 2)

		if ev.Size != MaxDataCapture+10 {
			t.Errorf("Size = %d, want %d", ev.Size, MaxDataCapture+10)
		}
		if len(ev.Data) != MaxDataCapture {
			t.Errorf("len(Data) = %d, want %d", len(ev.Data), MaxDataCapture)
		}
		if !ev.Truncated {
			t.Error("Truncated = false, want true")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		ev := NewDataEvent(nil, 0)
		if ev.Data != nil || ev.Size != 0 {
			t.Errorf("got %+v", ev)
		}
	})
}
