// Package server picks the address of the Lumos command server a node talks
// to.
package server

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	c "github.com/solexious/LUMOS-Code/config"
)

// LookupTimeout bounds a single hostname resolution.
const LookupTimeout = 5 * time.Second

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Address is the outcome of Resolve.
type Address struct {
	IP      c.IPv4
	FromDNS bool
}

func (a Address) String() string {
	return a.IP.String()
}

// Resolve returns the command server address. With TryDNS set the hostname
// is resolved first and the first IPv4 answer wins; otherwise, or when the
// lookup fails, the configured IP is used.
func Resolve(ctx context.Context, conf c.ServerConfig, r Resolver) Address {
	fallback := Address{IP: conf.IP}
	if !conf.TryDNS || conf.Name == "" || r == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	hosts, err := r.LookupHost(ctx, conf.Name)
	if err != nil {
		slog.Warn("Command server lookup failed, using fallback address",
			"server", conf.Name, "fallback", conf.IP.String(), "error", err)
		return fallback
	}
	for _, h := range hosts {
		addr, err := netip.ParseAddr(h)
		if err != nil {
			continue
		}
		addr = addr.Unmap()
		if addr.Is4() {
			slog.Debug("Command server resolved", "server", conf.Name, "address", addr.String())
			return Address{IP: c.IPv4(addr.As4()), FromDNS: true}
		}
	}
	slog.Warn("Command server has no IPv4 address, using fallback address",
		"server", conf.Name, "answers", hosts, "fallback", conf.IP.String())
	return fallback
}
