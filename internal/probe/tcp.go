package probe

import (
	"context"
	"net"
	"time"
)

const defaultTCPPort = "443"

// TCPProber checks reachability by completing a TCP handshake.
type TCPProber struct {
	dialer *net.Dialer
}

// NewTCPProber returns a TCP-dial based prober.
func NewTCPProber() *TCPProber {
	return &TCPProber{dialer: &net.Dialer{}}
}

// Probe dials the host once and reports success plus elapsed time. Hosts
// without an explicit port are dialed on 443.
func (p *TCPProber) Probe(ctx context.Context, host string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return failure(timeout, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(probeCtx, "tcp", tcpAddress(host))
	if err != nil {
		return failure(timeout, err)
	}
	_ = conn.Close()

	return Result{Elapsed: time.Since(start), Success: true}
}

func tcpAddress(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultTCPPort)
}
