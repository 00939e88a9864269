package api

import (
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// flattenHeaders maps lower-cased header names to their values. Repeated
// headers are joined with ", " in arrival order, so every value survives and
// the last one is always present. Host is reported as "host", and the
// transfer-encoding and trailer declarations are restored for chunked bodies.
func flattenHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		key := strings.ToLower(name)
		if prev, ok := out[key]; ok {
			values = append([]string{prev}, values...)
		}
		out[key] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		out["host"] = r.Host
	}
	// net/http lifts these out of r.Header while parsing the framing.
	if len(r.TransferEncoding) > 0 {
		if _, ok := out["transfer-encoding"]; !ok {
			out["transfer-encoding"] = strings.Join(r.TransferEncoding, ", ")
		}
	}
	if len(r.Trailer) > 0 {
		if _, ok := out["trailer"]; !ok {
			names := make([]string, 0, len(r.Trailer))
			for name := range r.Trailer {
				names = append(names, name)
			}
			sort.Strings(names)
			out["trailer"] = strings.Join(names, ", ")
		}
	}
	return out
}

// lastValues returns the query parameters with the last value winning for
// repeated keys. Malformed pairs are skipped like url.ParseQuery does.
func lastValues(r *http.Request) map[string]string {
	q, _ := url.ParseQuery(r.URL.RawQuery)
	out := make(map[string]string, len(q))
	for k, v := range q {
		out[k] = v[len(v)-1]
	}
	return out
}

// clientHost returns the host part of a peer address, or "" when the
// transport did not provide a usable one.
func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return ""
	}
	return host
}

// requestURL rebuilds the URL as the client addressed it.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
			host = addr.String()
		}
	}
	u := url.URL{
		Scheme:     scheme,
		Host:       host,
		Path:       r.URL.Path,
		RawPath:    r.URL.RawPath,
		RawQuery:   r.URL.RawQuery,
		ForceQuery: r.URL.ForceQuery,
	}
	return u.String()
}
