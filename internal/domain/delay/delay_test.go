package delay_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/okian/mirrorback/internal/domain/delay"
	. "github.com/smartystreets/goconvey/convey"
)

// manualTimer fires only when told to.
type manualTimer struct {
	ch      chan time.Time
	d       time.Duration
	stopped bool
	mu      sync.Mutex
}

func (m *manualTimer) C() <-chan time.Time { return m.ch }
func (m *manualTimer) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return true
}

type timerFactory struct {
	mu     sync.Mutex
	timers []*manualTimer
	made   chan *manualTimer
}

func newTimerFactory() *timerFactory {
	return &timerFactory{made: make(chan *manualTimer, 16)}
}

func (f *timerFactory) New(d time.Duration) delay.Timer {
	t := &manualTimer{ch: make(chan time.Time, 1), d: d}
	f.mu.Lock()
	f.timers = append(f.timers, t)
	f.mu.Unlock()
	f.made <- t
	return t
}

type countingObserver struct {
	mu     sync.Mutex
	counts [4]int // started, completed, abandoned, rejected
}

func (c *countingObserver) add(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[i]++
}

func (c *countingObserver) Started(uint64) { c.add(0) }
func (c *countingObserver) Completed()     { c.add(1) }
func (c *countingObserver) Abandoned()     { c.add(2) }
func (c *countingObserver) Rejected()      { c.add(3) }

func (c *countingObserver) snapshot() [4]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

func TestParse(t *testing.T) {
	Convey("Given delay path segments", t, func() {
		Convey("Then plain digits should parse", func() {
			for seg, want := range map[string]uint64{"0": 0, "5": 5, "007": 7, "3600": 3600} {
				got, err := delay.Parse(seg)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Then anything else should be invalid", func() {
			for _, seg := range []string{"", "abc", "-1", "+1", "1.5", " 1", "1e3", "٣"} {
				_, err := delay.Parse(seg)
				So(errors.Is(err, delay.ErrInvalid), ShouldBeTrue)
			}
		})

		Convey("Then values that overflow a duration should be out of range", func() {
			_, err := delay.Parse(strconv.FormatUint(delay.MaxSeconds+1, 10))
			So(err, ShouldWrap, delay.ErrOutOfRange)

			_, err = delay.Parse("99999999999999999999999")
			So(err, ShouldWrap, delay.ErrOutOfRange)

			got, err := delay.Parse(strconv.FormatUint(delay.MaxSeconds, 10))
			So(err, ShouldBeNil)
			So(got, ShouldEqual, delay.MaxSeconds)
		})
	})
}

func TestSleeper(t *testing.T) {
	Convey("Given a sleeper with a manual timer", t, func() {
		factory := newTimerFactory()
		obs := &countingObserver{}
		s := delay.NewSleeper(delay.WithTimer(factory.New), delay.WithObserver(obs))
		ctx := context.Background()

		Convey("When sleeping for zero seconds", func() {
			err := s.Sleep(ctx, 0)

			Convey("Then it should return at once without a timer", func() {
				So(err, ShouldBeNil)
				So(len(factory.timers), ShouldEqual, 0)
				So(obs.snapshot(), ShouldResemble, [4]int{1, 1, 0, 0})
			})
		})

		Convey("When the timer fires", func() {
			done := make(chan error, 1)
			go func() { done <- s.Sleep(ctx, 3) }()
			timer := <-factory.made
			So(timer.d, ShouldEqual, 3*time.Second)
			timer.ch <- time.Now()

			Convey("Then Sleep should return nil and stop the timer", func() {
				So(<-done, ShouldBeNil)
				So(obs.snapshot(), ShouldResemble, [4]int{1, 1, 0, 0})
				timer.mu.Lock()
				defer timer.mu.Unlock()
				So(timer.stopped, ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled mid-sleep", func() {
			cctx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- s.Sleep(cctx, 60) }()
			timer := <-factory.made
			cancel()

			Convey("Then Sleep should be abandoned with the context error", func() {
				So(<-done, ShouldEqual, context.Canceled)
				So(obs.snapshot(), ShouldResemble, [4]int{1, 0, 1, 0})
				timer.mu.Lock()
				defer timer.mu.Unlock()
				So(timer.stopped, ShouldBeTrue)
			})
		})
	})

	Convey("Given a sleeper with a cap", t, func() {
		s := delay.NewSleeper(delay.WithMaxSeconds(10))

		Convey("Then delays above the cap should be refused", func() {
			err := s.Sleep(context.Background(), 11)
			So(err, ShouldWrap, delay.ErrOutOfRange)
			So(err.Error(), ShouldContainSubstring, "configured maximum of 10")
		})

		Convey("Then delays at the cap should pass the check", func() {
			So(s.Check(10), ShouldBeNil)
		})
	})

	Convey("Given a sleeper that allows one pending delay", t, func() {
		factory := newTimerFactory()
		obs := &countingObserver{}
		s := delay.NewSleeper(delay.WithMaxPending(1), delay.WithTimer(factory.New), delay.WithObserver(obs))
		ctx := context.Background()

		done := make(chan error, 1)
		go func() { done <- s.Sleep(ctx, 5) }()
		first := <-factory.made

		Convey("When a second delay arrives while the first is suspended", func() {
			err := s.Sleep(ctx, 5)

			Convey("Then it should be rejected as saturated", func() {
				So(err, ShouldEqual, delay.ErrSaturated)
				So(obs.snapshot()[3], ShouldEqual, 1)
			})
		})

		Convey("When a zero delay arrives while the first is suspended", func() {
			err := s.Sleep(ctx, 0)

			Convey("Then it should still be accepted", func() {
				So(err, ShouldBeNil)
				So(obs.snapshot()[3], ShouldEqual, 0)
			})
		})

		Convey("When the first delay finishes", func() {
			first.ch <- time.Now()
			So(<-done, ShouldBeNil)

			Convey("Then the slot should be free again", func() {
				again := make(chan error, 1)
				go func() { again <- s.Sleep(ctx, 5) }()
				second := <-factory.made
				second.ch <- time.Now()
				So(<-again, ShouldBeNil)
			})
		})

		Reset(func() {
			select {
			case first.ch <- time.Now():
			default:
			}
		})
	})
}

func TestSleeperRealTimer(t *testing.T) {
	Convey("Given a sleeper with the real clock", t, func() {
		s := delay.NewSleeper()

		Convey("When sleeping one second", func() {
			start := time.Now()
			err := s.Sleep(context.Background(), 1)
			elapsed := time.Since(start)

			Convey("Then at least one second should have passed", func() {
				So(err, ShouldBeNil)
				So(elapsed >= time.Second, ShouldBeTrue)
				So(elapsed < 2*time.Second, ShouldBeTrue)
			})
		})
	})
}
