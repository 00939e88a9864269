package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClientHost(t *testing.T) {
	Convey("Given peer addresses", t, func() {
		So(clientHost("10.1.2.3:5555"), ShouldEqual, "10.1.2.3")
		So(clientHost("[::1]:80"), ShouldEqual, "::1")
		So(clientHost(""), ShouldEqual, "")
		So(clientHost("no-port"), ShouldEqual, "")
	})
}

func TestRequestURL(t *testing.T) {
	Convey("Given a request without a Host", t, func() {
		req := httptest.NewRequest(http.MethodGet, "/info?a=b", nil)
		req.Host = ""
		addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8001}
		req = req.WithContext(context.WithValue(req.Context(), http.LocalAddrContextKey, addr))

		Convey("Then the local listener address should stand in", func() {
			So(requestURL(req), ShouldEqual, "http://127.0.0.1:8001/info?a=b")
		})
	})

	Convey("Given a request with an escaped path", t, func() {
		req := httptest.NewRequest(http.MethodGet, "/info/a%2Fb?q", nil)

		Convey("Then the original escaping should be kept", func() {
			So(requestURL(req), ShouldEqual, "http://example.com/info/a%2Fb?q")
		})
	})
}

func TestFlattenHeaders(t *testing.T) {
	Convey("Given a request with mixed-case and repeated headers", t, func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Add("Accept", "text/html")
		req.Header.Add("Accept", "application/json")
		req.Header["x-raw-lower"] = []string{"kept"}

		got := flattenHeaders(req)

		Convey("Then names should be lower-cased and values joined in order", func() {
			So(got["accept"], ShouldEqual, "text/html, application/json")
			So(got["x-raw-lower"], ShouldEqual, "kept")
			So(got["host"], ShouldEqual, "example.com")
		})
	})
}

func TestFlattenHeadersFraming(t *testing.T) {
	Convey("Given a request whose framing headers were parsed out", t, func() {
		req := httptest.NewRequest(http.MethodPost, "/echo", nil)
		req.TransferEncoding = []string{"chunked"}
		req.Trailer = http.Header{"X-Trace": nil, "X-Sum": nil}

		got := flattenHeaders(req)

		Convey("Then transfer-encoding and trailer should be reported", func() {
			So(got["transfer-encoding"], ShouldEqual, "chunked")
			So(got["trailer"], ShouldEqual, "X-Sum, X-Trace")
		})
	})
}

func TestLastValues(t *testing.T) {
	Convey("Given repeated and malformed query pairs", t, func() {
		req := httptest.NewRequest(http.MethodGet, "/info?x=1&x=2&bad=%zz&empty=", nil)

		got := lastValues(req)

		Convey("Then the last value should win and bad pairs be skipped", func() {
			So(got, ShouldResemble, map[string]string{"x": "2", "empty": ""})
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("unexpected end of input")
		err := WrapKind("api.echo", ErrMalformedBody, cause)

		Convey("Then both the kind and the cause should be matchable", func() {
			So(errors.Is(err, ErrMalformedBody), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "malformed body: unexpected end of input")
		})

		Convey("Then a bare kind should print the kind only", func() {
			So(NewKind("api.dispatch", ErrRouteNotFound).Error(), ShouldEqual, "route not found")
		})
	})
}

func TestErrorClassification(t *testing.T) {
	Convey("Given status codes", t, func() {
		So(getErrorType(404), ShouldEqual, "not_found")
		So(getErrorType(422), ShouldEqual, "client_error")
		So(getErrorType(429), ShouldEqual, "rate_limit")
		So(getErrorType(503), ShouldEqual, "server_error")
		So(getErrorSeverity(413), ShouldEqual, "medium")
		So(getErrorSeverity(200), ShouldEqual, "low")
	})
}
