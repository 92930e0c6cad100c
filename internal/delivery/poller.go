package delivery

import (
	"context"
	"math/rand"
	"time"
)

const (
	PollingInitialInterval   = 2 * time.Second
	PollingMaxBackoff        = 30 * time.Second
	PollingBackoffMultiplier = 1.5
	PollingJitterFactor      = 0.3
)

// State is the outcome of one check.
type State struct {
	// Done ends the wait.
	Done bool
	// Fingerprint summarises what was observed. When it differs from the
	// previous check the interval is reset.
	Fingerprint string
}

// CheckFunc observes the awaited resource once. An error ends the wait.
type CheckFunc func(ctx context.Context) (State, error)

// Poller runs a CheckFunc with adaptive backoff.
type Poller struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a Poller starting at initial, or at
// PollingInitialInterval when initial is not positive.
func NewPoller(initial time.Duration) *Poller {
	if initial <= 0 {
		initial = PollingInitialInterval
	}
	maxInterval := PollingMaxBackoff
	if initial > maxInterval {
		maxInterval = initial
	}
	return &Poller{
		Initial:    initial,
		Max:        maxInterval,
		Multiplier: PollingBackoffMultiplier,
		Jitter:     PollingJitterFactor,
	}
}

// Run calls check until it reports Done, returns an error or ctx ends. It
// returns the number of checks made.
func (p *Poller) Run(ctx context.Context, check CheckFunc) (int, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	interval := p.Initial
	var last string
	for checks := 1; ; checks++ {
		state, err := check(ctx)
		if err != nil {
			return checks, err
		}
		if state.Done {
			return checks, nil
		}

		if checks > 1 && state.Fingerprint == last {
			interval = p.next(interval)
		} else {
			interval = p.Initial
		}
		last = state.Fingerprint

		if err := sleep(ctx, p.withJitter(interval)); err != nil {
			return checks, err
		}
	}
}

func (p *Poller) next(interval time.Duration) time.Duration {
	n := time.Duration(float64(interval) * p.Multiplier)
	if n > p.Max {
		n = p.Max
	}
	return n
}

func (p *Poller) withJitter(interval time.Duration) time.Duration {
	return interval + time.Duration(rand.Float64()*p.Jitter*float64(interval))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
