package probe_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/okian/mirrorback/internal/adapters/http/api"
	"github.com/okian/mirrorback/internal/probe"
	"github.com/okian/mirrorback/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func nopLogger() logger.Logger {
	return logger.New(zap.NewNop())
}

func TestRunAgainstFixture(t *testing.T) {
	Convey("Given a running fixture backend", t, func() {
		srv := httptest.NewServer(api.NewServer(api.WithLogger(nopLogger())).Handler(context.Background()))
		defer srv.Close()

		core, logs := observer.New(zapcore.InfoLevel)
		cfg := &probe.Config{
			BaseURL:      srv.URL,
			Timeout:      5 * time.Second,
			DelaySeconds: 1,
			Slack:        time.Second,
			Verbose:      true,
		}

		Convey("When the probe runs", func() {
			report, err := probe.Run(context.Background(), cfg, logger.New(zap.New(core)))

			Convey("Then every check should pass", func() {
				So(err, ShouldBeNil)
				So(report.Failed(), ShouldBeEmpty)
				So(len(report.Results), ShouldEqual, 10)
				So(report.Duration >= time.Second, ShouldBeTrue)
				So(logs.FilterMessage("check passed").Len(), ShouldEqual, 10)
				So(logs.FilterMessage("check failed").Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestRunAgainstBrokenBackend(t *testing.T) {
	Convey("Given a backend that answers every request with a server error", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		Convey("When the probe runs", func() {
			report, err := probe.Run(context.Background(), &probe.Config{
				BaseURL:      srv.URL,
				Timeout:      time.Second,
				DelaySeconds: 1,
			}, nopLogger())

			Convey("Then it should fail every check", func() {
				So(err, ShouldWrap, probe.ErrChecksFailed)
				So(len(report.Failed()), ShouldEqual, len(report.Results))
				So(report.Failed()[0].Detail, ShouldContainSubstring, "server error")
			})
		})
	})
}

func TestRunDetectsWrongRoot(t *testing.T) {
	Convey("Given a backend whose root payload differs", t, func() {
		fixture := api.NewServer(api.WithLogger(nopLogger())).Handler(context.Background())
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "hi"})
				return
			}
			fixture.ServeHTTP(w, r)
		}))
		defer srv.Close()

		Convey("When the probe runs", func() {
			report, err := probe.Run(context.Background(), &probe.Config{
				BaseURL:      srv.URL,
				DelaySeconds: 1,
			}, nopLogger())

			Convey("Then only the root check should fail", func() {
				So(err, ShouldWrap, probe.ErrChecksFailed)
				failed := report.Failed()
				So(len(failed), ShouldEqual, 1)
				So(failed[0].Name, ShouldEqual, "root")
			})
		})
	})
}

func TestRunInvalidConfig(t *testing.T) {
	Convey("Given invalid probe configurations", t, func() {
		ctx := context.Background()

		Convey("Then a nil config should be rejected", func() {
			_, err := probe.Run(ctx, nil, nopLogger())
			So(err, ShouldWrap, probe.ErrInvalidConfig)
		})

		Convey("Then a base url without scheme should be rejected", func() {
			_, err := probe.Run(ctx, &probe.Config{BaseURL: "localhost:8001"}, nopLogger())
			So(err, ShouldWrap, probe.ErrInvalidConfig)
		})
	})
}

func TestRunCancelled(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When the probe runs", func() {
			report, err := probe.Run(ctx, &probe.Config{BaseURL: "http://127.0.0.1:1"}, nopLogger())

			Convey("Then it should stop before running any check", func() {
				So(err, ShouldWrap, context.Canceled)
				So(report.Results, ShouldBeEmpty)
			})
		})
	})
}
