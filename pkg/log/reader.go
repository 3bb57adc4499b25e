package log

import (
	"errors"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events read back from a log. Zero fields match everything.
type Filter struct {
	ConnectionID string
	RemoteAddr   string

	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// ErrorsOnly keeps only events that carry error data, including failed
	// connection attempts.
	ErrorsOnly bool
}

// Match reports whether event passes every criterion of f.
func (f Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID,
		f.RemoteAddr != "" && event.RemoteAddr != f.RemoteAddr,
		f.Direction != nil && event.Direction != *f.Direction,
		f.Layer != nil && event.Layer != *f.Layer,
		f.Category != nil && event.Category != *f.Category,
		f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	if f.ErrorsOnly {
		failedAttempt := event.Attempt != nil && event.Attempt.Outcome == AttemptFailed
		return event.Error != nil || failedAttempt
	}
	return true
}

// Reader decodes events one at a time from a log written by FileLogger.
type Reader struct {
	src    io.Reader
	closer io.Closer
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens the log file at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens the log file at path and yields only events
// matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader reads events from src. Close does not close src.
func NewStreamReader(src io.Reader, filter Filter) *Reader {
	return &Reader{src: src, dec: NewDecoder(src), filter: filter}
}

// Next returns the next matching event, or io.EOF at the end of the log.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// All iterates the remaining matching events. Iteration stops after the
// first decode error, which is yielded with a zero Event.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the log file, if the Reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
