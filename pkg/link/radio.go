package link

import "context"

// Radio is the lower-layer connectivity the Manager drives.
// Implementations talk to the modem; calls are never concurrent.
type Radio interface {
	// Activate powers up the link and starts network attachment.
	Activate(ctx context.Context) error

	// Attached reports whether the link can carry traffic.
	Attached(ctx context.Context) (bool, error)

	// Deactivate detaches and powers down the link.
	Deactivate(ctx context.Context) error
}

// AlwaysOn is a Radio for hosts whose connectivity is not managed by this
// process (Ethernet, Wi-Fi, a development machine). It is always attached.
type AlwaysOn struct{}

// Activate does nothing.
func (AlwaysOn) Activate(context.Context) error { return nil }

// Attached always reports true.
func (AlwaysOn) Attached(context.Context) (bool, error) { return true, nil }

// Deactivate does nothing.
func (AlwaysOn) Deactivate(context.Context) error { return nil }

var _ Radio = AlwaysOn{}
