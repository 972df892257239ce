package httpmiddleware

import (
	"net"
	"net/http"
	"strings"
)

// LoopbackOrigin is the sentinel origin used when no address can be derived
// from the request.
const LoopbackOrigin = "127.0.0.1"

// ClientOrigin derives the caller's network origin address from a request:
// the first X-Forwarded-For entry when present, otherwise the direct peer
// address, otherwise the loopback sentinel. It is a correlation key, not a
// security boundary — the forwarded header is client-controlled.
func ClientOrigin(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if i := strings.IndexByte(xff, ','); i >= 0 {
			first = xff[:i]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}

	return LoopbackOrigin
}
