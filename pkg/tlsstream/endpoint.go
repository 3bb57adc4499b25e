package tlsstream

import (
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/lteconn/lteconn-go/pkg/log"
)

// endpoint is the identity shared by a stream and every half derived from it.
type endpoint struct {
	id     uuid.UUID
	remote netip.AddrPort
	fd     int32

	// logger is nil when event logging is disabled.
	logger log.Logger
}

func (e *endpoint) event(category log.Category) log.Event {
	fd := e.fd
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: e.id.String(),
		Layer:        log.LayerStream,
		Category:     category,
		RemoteAddr:   e.remote.String(),
		FD:           &fd,
	}
}

func (e *endpoint) logData(dir log.Direction, data []byte, chunks int) {
	if e.logger == nil {
		return
	}
	ev := e.event(log.CategoryData)
	ev.Direction = dir
	ev.Data = log.NewDataEvent(data, chunks)
	e.logger.Log(ev)
}

func (e *endpoint) logState(state, reason string) {
	if e.logger == nil {
		return
	}
	ev := e.event(log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntityStream,
		NewState: state,
		Reason:   reason,
	}
	e.logger.Log(ev)
}

func (e *endpoint) logError(op string, err error) {
	if e.logger == nil {
		return
	}
	ev := e.event(log.CategoryError)
	ev.Error = &log.ErrorEventData{
		Layer:   log.LayerStream,
		Message: err.Error(),
		Context: op,
	}
	e.logger.Log(ev)
}
