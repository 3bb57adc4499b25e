package link

import (
	"math/rand/v2"
	"time"
)

// Attachment polling defaults.
const (
	DefaultPollInitial    = 100 * time.Millisecond
	DefaultPollMax        = 5 * time.Second
	DefaultPollMultiplier = 2.0
)

// BackoffConfig tunes the delay between attachment polls. Zero durations
// and a multiplier of 1 or less select the defaults. Jitter is used as
// given; zero disables it.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`

	// Jitter adds up to Jitter*delay of random extra wait to each delay.
	Jitter float64 `yaml:"jitter"`
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = DefaultPollInitial
	}
	if c.Max <= 0 {
		c.Max = DefaultPollMax
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier <= 1 {
		c.Multiplier = DefaultPollMultiplier
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// Backoff yields the delays between attachment polls, growing from
// Initial to Max. It is not safe for concurrent use; the Manager only
// drives it with its lock held.
type Backoff struct {
	cfg   BackoffConfig
	base  time.Duration
	polls int
}

// NewBackoff returns a schedule for cfg.
func NewBackoff(cfg BackoffConfig) *Backoff {
	cfg = cfg.withDefaults()
	return &Backoff{cfg: cfg, base: cfg.Initial}
}

// Next returns the delay before the next poll and advances the schedule.
func (b *Backoff) Next() time.Duration {
	delay := b.base
	if b.cfg.Jitter > 0 {
		delay += time.Duration(float64(delay) * b.cfg.Jitter * rand.Float64())
	}

	b.polls++
	b.base = min(time.Duration(float64(b.base)*b.cfg.Multiplier), b.cfg.Max)
	return delay
}

// Base returns the next delay without jitter.
func (b *Backoff) Base() time.Duration {
	return b.base
}

// Polls returns how many delays were handed out since the last Reset.
func (b *Backoff) Polls() int {
	return b.polls
}

// Reset restarts the schedule at Initial.
func (b *Backoff) Reset() {
	b.base = b.cfg.Initial
	b.polls = 0
}
