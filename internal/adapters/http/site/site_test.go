package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a mux with the landing page registered", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("When requesting /", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then it should serve the admin index", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, `href="/metrics"`)
				So(w.Body.String(), ShouldContainSubstring, `href="/openapi.yaml"`)
			})
		})

		Convey("When requesting a path below /", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/some-asset", nil))

			Convey("Then it should not be claimed", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSiteEmbed(t *testing.T) {
	Convey("Given the embedded site", t, func() {
		h := NewRootHandler()

		Convey("Then the index page should load", func() {
			So(h.err, ShouldBeNil)
			So(len(h.page), ShouldBeGreaterThan, 0)
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		Convey("Then registering should panic", func() {
			So(func() { Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
