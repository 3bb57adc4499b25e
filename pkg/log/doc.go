// Package log provides structured event capture for lteconn.
//
// This package defines the Logger interface and Event types for recording
// what the connection stack does at each layer: physical link state changes,
// socket lifecycle, connection attempts, and stream data transfers. It is
// separate from operational logging (slog) - event capture gives a
// machine-readable trace that can be replayed after a field failure.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	dialer.Logger = log.NewSlogAdapter(slog.Default())
//
//	// On the device: append to a binary file
//	dialer.Logger, _ = log.NewFileLogger("/data/lteconn.clog")
//
//	// Both
//	dialer.Logger = log.NewMultiLogger(console, file)
//
// # Event Types
//
// Events are captured at three layers:
//   - Link: physical link activation and deactivation (StateChangeEvent)
//   - Socket: socket creation, connect, split and release (StateChangeEvent)
//   - Stream: connection attempts (AttemptEvent) and chunked I/O (DataEvent)
//
// Errors at any layer have a dedicated ErrorEventData payload.
//
// # File Format
//
// Log files are a concatenation of CBOR-encoded events (integer map keys),
// conventionally with a .clog extension. NewRotatingFileLogger caps the file
// size and keeps one previous generation as "<path>.1".
//
// # Reading Logs
//
// NewReader and NewFilteredReader are the supported way to consume a .clog
// file; NewStreamReader does the same for any io.Reader. A Filter narrows
// the events by connection, peer address, layer, category, direction, time
// window or errors only:
//
//	r, err := log.NewFilteredReader("/data/lteconn.clog", log.Filter{ErrorsOnly: true})
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	for ev, err := range r.All() {
//		if err != nil {
//			return err
//		}
//		fmt.Println(ev.Timestamp, ev.Category, ev.RemoteAddr)
//	}
package log
