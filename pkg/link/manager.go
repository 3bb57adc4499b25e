package link

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lteconn/lteconn-go/pkg/log"
)

// State represents the physical link state.
type State uint8

const (
	// StateInactive indicates the radio is off.
	StateInactive State = iota

	// StateActivating indicates activation or attachment is in progress.
	StateActivating

	// StateActive indicates the link is attached and usable.
	StateActive

	// StateDeactivating indicates the radio is being powered down.
	StateDeactivating
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateActivating:
		return "ACTIVATING"
	case StateActive:
		return "ACTIVE"
	case StateDeactivating:
		return "DEACTIVATING"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Manager.
type Config struct {
	// Radio is the link to drive. Defaults to AlwaysOn.
	Radio Radio

	// Backoff tunes attachment polling.
	Backoff BackoffConfig

	// AttachTimeout bounds the wait for attachment. Zero means the wait is
	// bounded only by the Acquire context.
	AttachTimeout time.Duration

	// Logger receives link state events. Nil disables event logging.
	Logger log.Logger
}

// Manager reference-counts users of the physical link.
// Activation and deactivation are serialized; the radio is never driven
// concurrently.
type Manager struct {
	mu sync.Mutex

	radio         Radio
	backoffConfig BackoffConfig
	attachTimeout time.Duration
	logger        log.Logger

	state  State
	refs   int
	closed bool

	onStateChange func(oldState, newState State)
}

// NewManager creates a link manager. The link starts inactive.
func NewManager(cfg Config) *Manager {
	if cfg.Radio == nil {
		cfg.Radio = AlwaysOn{}
	}
	return &Manager{
		radio:         cfg.Radio,
		backoffConfig: cfg.Backoff,
		attachTimeout: cfg.AttachTimeout,
		logger:        log.OrNoop(cfg.Logger),
		state:         StateInactive,
	}
}

// State returns the current link state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Refs returns the number of outstanding handles.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// OnStateChange sets a callback invoked on every state transition.
// The callback runs with the manager locked and must not call back into it.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// Acquire takes a reference on the link, activating it first if no other
// reference exists. It returns once the link is attached.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	if m.refs == 0 {
		if err := m.activate(ctx); err != nil {
			return nil, err
		}
	}
	m.refs++

	return &Handle{m: m}, nil
}

// Close deactivates the link regardless of outstanding handles and rejects
// further Acquire calls. Releasing a handle after Close is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.refs == 0 {
		return nil
	}
	m.refs = 0
	return m.deactivate(context.Background(), "manager closed")
}

// activate must be called with m.mu held.
func (m *Manager) activate(ctx context.Context) error {
	m.setState(StateActivating, "acquire")

	if err := m.radio.Activate(ctx); err != nil {
		m.abortActivation(err)
		return &Error{Op: "activate", Err: err}
	}

	if err := m.waitAttached(ctx); err != nil {
		m.abortActivation(err)
		return &Error{Op: "attach", Err: err}
	}

	m.setState(StateActive, "attached")
	return nil
}

// waitAttached polls the radio until it reports attachment.
func (m *Manager) waitAttached(ctx context.Context) error {
	if m.attachTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.attachTimeout)
		defer cancel()
	}

	backoff := NewBackoff(m.backoffConfig)
	for {
		attached, err := m.radio.Attached(ctx)
		if err != nil {
			return err
		}
		if attached {
			return nil
		}

		timer := time.NewTimer(backoff.Next())
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// abortActivation powers the radio back down after a failed activation.
func (m *Manager) abortActivation(cause error) {
	m.logError("activate", cause)
	// A failing power-down is only logged.
	if err := m.radio.Deactivate(context.Background()); err != nil {
		m.logError("deactivate", err)
	}
	m.setState(StateInactive, cause.Error())
}

// release drops one reference. Must not be called with m.mu held.
func (m *Manager) release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.refs == 0 {
		return nil
	}

	m.refs--
	if m.refs > 0 {
		return nil
	}
	return m.deactivate(ctx, "last handle released")
}

// deactivate must be called with m.mu held.
func (m *Manager) deactivate(ctx context.Context, reason string) error {
	m.setState(StateDeactivating, reason)
	err := m.radio.Deactivate(ctx)
	if err != nil {
		m.logError("deactivate", err)
		m.setState(StateInactive, err.Error())
		return &Error{Op: "deactivate", Err: err}
	}
	m.setState(StateInactive, reason)
	return nil
}

// setState must be called with m.mu held.
func (m *Manager) setState(newState State, reason string) {
	oldState := m.state
	if oldState == newState {
		return
	}
	m.state = newState

	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerLink,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})

	if m.onStateChange != nil {
		m.onStateChange(oldState, newState)
	}
}

func (m *Manager) logError(op string, err error) {
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerLink,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerLink,
			Message: err.Error(),
			Context: op,
		},
	})
}

// Handle is one reference on an active link.
type Handle struct {
	m        *Manager
	released atomic.Bool
}

// Deactivate releases this reference. The radio is deactivated when the
// last reference is released. Deactivate may be called once; later calls
// return ErrAlreadyReleased.
func (h *Handle) Deactivate(ctx context.Context) error {
	if !h.released.CompareAndSwap(false, true) {
		return ErrAlreadyReleased
	}
	return h.m.release(ctx)
}

// Released reports whether Deactivate has been called.
func (h *Handle) Released() bool {
	return h.released.Load()
}
