// Package delay parses delay path segments and suspends a request for a
// number of seconds without holding anything but a timer.
package delay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"
)

// MaxSeconds is the largest delay whose duration fits in a time.Duration.
const MaxSeconds = uint64(math.MaxInt64 / int64(time.Second))

// Sentinel kinds for delay errors.
var (
	ErrInvalid    = errors.New("delay must be a non-negative base-10 integer")
	ErrOutOfRange = errors.New("delay out of range")
	ErrSaturated  = errors.New("too many pending delays")
)

// Parse converts a path segment into a number of seconds. Signs, spaces and
// empty segments are rejected. Values too large to represent as a
// time.Duration are reported rather than clamped.
func Parse(segment string) (uint64, error) {
	if segment == "" {
		return 0, ErrInvalid
	}
	for i := 0; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return 0, ErrInvalid
		}
	}
	n, err := strconv.ParseUint(segment, 10, 64)
	if err != nil {
		// Only range errors remain once every byte is a digit.
		return 0, fmt.Errorf("%w: %s seconds", ErrOutOfRange, segment)
	}
	if n > MaxSeconds {
		return 0, fmt.Errorf("%w: %d seconds exceeds %d", ErrOutOfRange, n, MaxSeconds)
	}
	return n, nil
}

// Option configures a Sleeper.
type Option func(*Sleeper)

// WithMaxSeconds rejects delays above limit. Zero disables the cap.
func WithMaxSeconds(limit uint64) Option {
	return func(s *Sleeper) {
		s.maxSeconds = limit
	}
}

// WithMaxPending bounds how many requests may be suspended at once.
// Zero leaves it unbounded.
func WithMaxPending(n int64) Option {
	return func(s *Sleeper) {
		if n > 0 {
			s.pending = semaphore.NewWeighted(n)
		}
	}
}

// WithTimer swaps the timer source; tests use it to avoid real waits.
func WithTimer(newTimer func(time.Duration) Timer) Option {
	return func(s *Sleeper) {
		if newTimer != nil {
			s.newTimer = newTimer
		}
	}
}

// WithObserver registers o for suspension lifecycle events.
func WithObserver(o Observer) Option {
	return func(s *Sleeper) {
		if o != nil {
			s.observer = o
		}
	}
}

// Observer receives lifecycle events for suspended requests.
type Observer interface {
	Started(seconds uint64)
	Completed()
	Abandoned()
	Rejected()
}

type nopObserver struct{}

func (nopObserver) Started(uint64) {}
func (nopObserver) Completed()     {}
func (nopObserver) Abandoned()     {}
func (nopObserver) Rejected()      {}

// Timer is the subset of *time.Timer used by Sleeper.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// Sleeper suspends callers for a delay. It is safe for concurrent use and
// holds no per-request state beyond the optional admission semaphore.
type Sleeper struct {
	maxSeconds uint64
	pending    *semaphore.Weighted
	newTimer   func(time.Duration) Timer
	observer   Observer
}

// NewSleeper builds a Sleeper.
func NewSleeper(opts ...Option) *Sleeper {
	s := &Sleeper{
		newTimer: func(d time.Duration) Timer { return realTimer{t: time.NewTimer(d)} },
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check validates seconds against the configured cap.
func (s *Sleeper) Check(seconds uint64) error {
	if s.maxSeconds > 0 && seconds > s.maxSeconds {
		return fmt.Errorf("%w: %d seconds exceeds configured maximum of %d", ErrOutOfRange, seconds, s.maxSeconds)
	}
	return nil
}

// Sleep blocks for seconds or until ctx is done, whichever comes first.
// It returns ctx.Err() when abandoned and ErrSaturated when the pending
// limit is reached. Zero returns at once and is never refused. The timer is released on every path.
func (s *Sleeper) Sleep(ctx context.Context, seconds uint64) error {
	if err := s.Check(seconds); err != nil {
		return err
	}
	// A zero delay never suspends, so it does not count against the limit.
	if seconds == 0 {
		s.observer.Started(0)
		if err := ctx.Err(); err != nil {
			s.observer.Abandoned()
			return err
		}
		s.observer.Completed()
		return nil
	}
	if s.pending != nil {
		if !s.pending.TryAcquire(1) {
			s.observer.Rejected()
			return ErrSaturated
		}
		defer s.pending.Release(1)
	}

	s.observer.Started(seconds)

	t := s.newTimer(time.Duration(seconds) * time.Second)
	defer t.Stop()

	select {
	case <-t.C():
		s.observer.Completed()
		return nil
	case <-ctx.Done():
		s.observer.Abandoned()
		return ctx.Err()
	}
}
