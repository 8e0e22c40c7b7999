package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from r.RemoteAddr. Proxy headers are
// ignored so rate limit keys cannot be spoofed.
func RealClientIP(r *http.Request) string {
	return remoteHost(r.RemoteAddr)
}

// BehindProxy returns the right-most X-Forwarded-For entry when the direct
// peer is a loopback or private address, and RealClientIP otherwise. Use it
// only when the server sits behind a reverse proxy that appends the header.
func BehindProxy(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	ip := net.ParseIP(peer)
	if ip == nil || !(ip.IsLoopback() || ip.IsPrivate()) {
		return peer
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer
	}
	parts := strings.Split(xff, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if net.ParseIP(last) == nil {
		return peer
	}
	return last
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.TrimSpace(addr)
	}
	return strings.TrimSpace(host)
}
