// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/dbotia/lab5/internal/platform/constants"
)

// # Client Address

type clientIPKey struct{}

// TrustedProxies holds the networks allowed to report the client address
// through X-Forwarded-For or X-Real-IP. The zero value trusts nobody.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// ParseTrustedProxies reads a comma-separated list of IP addresses and CIDR
// ranges, e.g. "10.0.0.0/8, 192.0.2.7".
func ParseTrustedProxies(list string) (TrustedProxies, error) {
	var proxies TrustedProxies

	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return TrustedProxies{}, fmt.Errorf("trusted_proxy_invalid %q: %w", entry, err)
			}
			proxies.prefixes = append(proxies.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return TrustedProxies{}, fmt.Errorf("trusted_proxy_invalid %q: %w", entry, err)
		}
		addr = addr.Unmap()
		proxies.prefixes = append(proxies.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return proxies, nil
}

func (proxies TrustedProxies) trusts(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range proxies.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

/*
Resolve returns the address of the client behind request.

Forwarding headers are read only when the connection comes from a trusted
proxy. X-Forwarded-For is walked from the right and the first hop that is not
itself a trusted proxy wins; a malformed hop stops the walk at the peer.

Returns:
  - string: The client IP, never a header value from an untrusted peer
*/
func (proxies TrustedProxies) Resolve(request *http.Request) string {
	peer := peerIP(request)
	if !proxies.trusts(peer) {
		return peer
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				return peer
			}
			if !proxies.trusts(hop) {
				return hop
			}
		}
		return strings.TrimSpace(hops[0])
	}

	if realIP := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); realIP != "" {
		if _, err := netip.ParseAddr(realIP); err == nil {
			return realIP
		}
	}

	return peer
}

// ClientIP resolves the caller address once per request so that logging and
// rate limiting agree on it. Install it before [StructuredLogger].
func ClientIP(proxies TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := context.WithValue(request.Context(), clientIPKey{}, proxies.Resolve(request))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RealIP returns the address resolved by [ClientIP], or the connection peer
// when ClientIP is not installed. Headers are never read here.
func RealIP(request *http.Request) string {
	if ip, ok := request.Context().Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return peerIP(request)
}

func peerIP(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
