package tlsstream

import (
	"fmt"
	"strings"
)

// PeerVerification selects how the peer's certificate is checked. The zero
// value is PeerVerificationEnabled.
type PeerVerification uint8

const (
	// PeerVerificationEnabled requires a valid chain and matching name.
	PeerVerificationEnabled PeerVerification = iota
	// PeerVerificationOptional verifies when possible but accepts failures.
	PeerVerificationOptional
	// PeerVerificationDisabled skips verification.
	PeerVerificationDisabled
)

// Integer returns the level passed to the transport: 2, 1 or 0.
func (v PeerVerification) Integer() uint32 {
	switch v {
	case PeerVerificationOptional:
		return 1
	case PeerVerificationDisabled:
		return 0
	default:
		return 2
	}
}

// String returns the policy name.
func (v PeerVerification) String() string {
	switch v {
	case PeerVerificationEnabled:
		return "enabled"
	case PeerVerificationOptional:
		return "optional"
	case PeerVerificationDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("PeerVerification(%d)", uint8(v))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v PeerVerification) MarshalText() ([]byte, error) {
	if v > PeerVerificationDisabled {
		return nil, fmt.Errorf("invalid peer verification %d", uint8(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the policy
// names as well as the transport levels "2", "1" and "0".
func (v *PeerVerification) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "enabled", "required", "2":
		*v = PeerVerificationEnabled
	case "optional", "1":
		*v = PeerVerificationOptional
	case "disabled", "none", "0":
		*v = PeerVerificationDisabled
	default:
		return fmt.Errorf("invalid peer verification %q", text)
	}
	return nil
}
