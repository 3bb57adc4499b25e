package log

import "time"

// Event represents a log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the stream (UUID). Empty for link events.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates data flow for data events.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port), when known.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// FD is the socket descriptor, when known.
	FD *int32 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"`
	Attempt     *AttemptEvent     `cbor:"11,keyasint,omitempty"`
	Data        *DataEvent        `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionNone is used by events that carry no data.
	DirectionNone Direction = 0
	// DirectionIn indicates received data.
	DirectionIn Direction = 1
	// DirectionOut indicates written data.
	DirectionOut Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "NONE"
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which part of the stack captured the event.
type Layer uint8

const (
	// LayerLink is the physical link (radio attachment).
	LayerLink Layer = 0
	// LayerSocket is the transport capability.
	LayerSocket Layer = 1
	// LayerStream is the secure stream and its halves.
	LayerStream Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerLink:
		return "LINK"
	case LayerSocket:
		return "SOCKET"
	case LayerStream:
		return "STREAM"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategoryAttempt indicates a connection attempt to one candidate.
	CategoryAttempt Category = 1
	// CategoryData indicates a data transfer.
	CategoryData Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryAttempt:
		return "ATTEMPT"
	case CategoryData:
		return "DATA"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures link, socket and stream lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink indicates a physical link state change.
	StateEntityLink StateEntity = 0
	// StateEntitySocket indicates a socket state change.
	StateEntitySocket StateEntity = 1
	// StateEntityStream indicates a stream state change.
	StateEntityStream StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntitySocket:
		return "SOCKET"
	case StateEntityStream:
		return "STREAM"
	default:
		return "UNKNOWN"
	}
}

// AttemptEvent captures one candidate address attempt during connect.
type AttemptEvent struct {
	// Index is the candidate position, starting at 0.
	Index int `cbor:"1,keyasint"`

	// Address is the candidate address (IP:port).
	Address string `cbor:"2,keyasint"`

	// Family is the address family name ("IPv4" / "IPv6").
	Family string `cbor:"3,keyasint"`

	// Outcome of the attempt.
	Outcome AttemptOutcome `cbor:"4,keyasint"`

	// Error message for failed attempts.
	Error string `cbor:"5,keyasint,omitempty"`

	// Duration of the attempt. Stored as nanoseconds.
	Duration time.Duration `cbor:"6,keyasint,omitempty"`
}

// AttemptOutcome is the result of a connection attempt.
type AttemptOutcome uint8

const (
	// AttemptStarted is logged before the handshake begins.
	AttemptStarted AttemptOutcome = 0
	// AttemptSucceeded indicates the handshake completed.
	AttemptSucceeded AttemptOutcome = 1
	// AttemptFailed indicates the handshake failed.
	AttemptFailed AttemptOutcome = 2
)

// String returns the outcome name.
func (o AttemptOutcome) String() string {
	switch o {
	case AttemptStarted:
		return "STARTED"
	case AttemptSucceeded:
		return "SUCCEEDED"
	case AttemptFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// DataEvent captures a logical transfer on a stream.
type DataEvent struct {
	// Size is the number of bytes transferred.
	Size int `cbor:"1,keyasint"`

	// Chunks is the number of raw transport calls it took.
	Chunks int `cbor:"2,keyasint,omitempty"`

	// Data is the transferred bytes (may be truncated for large transfers).
	Data []byte `cbor:"3,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// MaxDataCapture is the number of payload bytes kept in a DataEvent.
const MaxDataCapture = 256

// NewDataEvent builds a DataEvent for data, truncating the captured bytes
// to MaxDataCapture.
func NewDataEvent(data []byte, chunks int) *DataEvent {
	ev := &DataEvent{Size: len(data), Chunks: chunks}
	if len(data) > MaxDataCapture {
		ev.Data = append([]byte(nil), data[:MaxDataCapture]...)
		ev.Truncated = true
	} else if len(data) > 0 {
		ev.Data = append([]byte(nil), data...)
	}
	return ev
}
