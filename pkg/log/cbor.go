package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Events are encoded with integer map keys, canonical ordering and
// nanosecond RFC 3339 timestamps so a log can be diffed byte for byte.
var (
	encMode = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
		MaxMapPairs: 64,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("BUG: log CBOR encoder options: %v", err))
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("BUG: log CBOR decoder options: %v", err))
	}
	return m
}

// EncodeEvent returns the CBOR encoding of event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes one event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := decMode.Unmarshal(data, &event)
	return event, err
}

// NewEncoder returns an encoder writing a stream of events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder reading a stream of events from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
