// Package netprobe answers one question: is the network reachable right
// now. Probes are never cached; connectivity can flap within seconds, so
// every execution re-checks immediately before dispatching.
package netprobe

import (
	"context"
	"net"
	"time"
)

// Prober reports current network reachability.
type Prober interface {
	IsOnline(ctx context.Context) bool
}

// DialProber checks reachability with a single TCP dial against a
// well-known, highly available host.
type DialProber struct {
	addr    string
	timeout time.Duration
}

func NewDialProber(addr string, timeout time.Duration) *DialProber {
	if addr == "" {
		addr = "8.8.8.8:53"
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DialProber{addr: addr, timeout: timeout}
}

func (p *DialProber) IsOnline(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Static is a fixed-answer prober for tests and offline development.
type Static bool

func (s Static) IsOnline(context.Context) bool { return bool(s) }
