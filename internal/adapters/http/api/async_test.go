package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/mirrorback/internal/adapters/http/api"
	"github.com/okian/mirrorback/internal/domain/delay"
	. "github.com/smartystreets/goconvey/convey"
)

// signalObserver reports abandoned delays on a channel.
type signalObserver struct {
	abandoned chan struct{}
}

func (o *signalObserver) Started(uint64) {}
func (o *signalObserver) Completed()     {}
func (o *signalObserver) Abandoned()     { o.abandoned <- struct{}{} }
func (o *signalObserver) Rejected()      {}

func TestAsyncHandlerConcurrency(t *testing.T) {
	Convey("Given a running fixture server", t, func() {
		srv := httptest.NewServer(newTestHandler())
		defer srv.Close()

		Convey("When /async/2 and /health are requested together", func() {
			var (
				wg         sync.WaitGroup
				asyncTook  time.Duration
				asyncBody  map[string]any
				asyncErr   error
				healthTook time.Duration
				healthErr  error
			)
			start := time.Now()

			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := http.Get(srv.URL + "/async/2")
				if err != nil {
					asyncErr = err
					return
				}
				defer resp.Body.Close()
				asyncErr = json.NewDecoder(resp.Body).Decode(&asyncBody)
				asyncTook = time.Since(start)
			}()

			// Give the delayed request a head start so it is suspended first.
			time.Sleep(100 * time.Millisecond)
			resp, err := http.Get(srv.URL + "/health")
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}
			healthErr = err
			healthTook = time.Since(start)
			wg.Wait()

			Convey("Then /health should not wait behind the delay", func() {
				So(healthErr, ShouldBeNil)
				So(healthTook < time.Second, ShouldBeTrue)
			})

			Convey("And /async/2 should take at least two seconds", func() {
				So(asyncErr, ShouldBeNil)
				So(asyncTook >= 2*time.Second, ShouldBeTrue)
				So(asyncTook < 3*time.Second, ShouldBeTrue)
				So(asyncBody["message"], ShouldEqual, "Completed after 2 seconds")
				So(asyncBody["async"], ShouldEqual, true)
			})
		})
	})
}

func TestAsyncHandlerCancellation(t *testing.T) {
	Convey("Given a fixture server that reports abandoned delays", t, func() {
		obs := &signalObserver{abandoned: make(chan struct{}, 1)}
		sleeper := delay.NewSleeper(delay.WithObserver(obs))
		srv := httptest.NewServer(newTestHandler(api.WithSleeper(sleeper)))
		defer srv.Close()

		Convey("When the client gives up on a long delay", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/async/60", nil)
			_, err := http.DefaultClient.Do(req)

			Convey("Then the server should abandon the wait promptly", func() {
				So(err, ShouldNotBeNil)
				select {
				case <-obs.abandoned:
					So(true, ShouldBeTrue)
				case <-time.After(5 * time.Second):
					So("delay was not abandoned", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestAsyncHandlerBackpressure(t *testing.T) {
	Convey("Given a fixture server allowing one pending delay", t, func() {
		sleeper := delay.NewSleeper(delay.WithMaxPending(1))
		srv := httptest.NewServer(newTestHandler(api.WithSleeper(sleeper)))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/async/30", nil)
			if resp, err := http.DefaultClient.Do(req); err == nil {
				_ = resp.Body.Close()
			}
		}()
		time.Sleep(200 * time.Millisecond)

		Convey("When a second delayed request arrives", func() {
			resp, err := http.Get(srv.URL + "/async/1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should be rejected with 429", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			})
		})

		Convey("When a zero delay is requested", func() {
			resp, err := http.Get(srv.URL + "/async/0")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should still complete", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When an undelayed route is requested", func() {
			resp, err := http.Get(srv.URL + "/health")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should be unaffected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
