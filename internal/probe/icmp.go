package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const echoData = "netmon"

// ICMPProber sends ICMP echo requests using raw sockets. Raw sockets
// usually require elevated privileges; wrap with FallbackProber to degrade
// to another prober on permission errors.
type ICMPProber struct {
	id  int
	seq uint32
}

// NewICMPProber initializes a prober with a process-scoped identifier.
func NewICMPProber() *ICMPProber {
	return &ICMPProber{id: os.Getpid() & 0xffff}
}

// Probe sends one echo request and waits for the matching reply.
func (p *ICMPProber) Probe(ctx context.Context, host string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return failure(timeout, err)
	}

	ipAddr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		return failure(timeout, err)
	}
	if ipAddr.IP == nil {
		return failure(timeout, fmt.Errorf("invalid probe host: %s", host))
	}

	network, protocol, requestType, replyType := icmpSettings(ipAddr.IP)
	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return failure(timeout, err)
	}
	defer conn.Close()

	seq := int(atomic.AddUint32(&p.seq, 1)) & 0xffff
	msg := icmp.Message{
		Type: requestType,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: []byte(echoData)},
	}
	payload, err := msg.Marshal(nil)
	if err != nil {
		return failure(timeout, err)
	}

	if err := conn.SetDeadline(effectiveDeadline(ctx, timeout)); err != nil {
		return failure(timeout, err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(payload, ipAddr); err != nil {
		return failure(timeout, err)
	}

	buf := make([]byte, 1500)
	for {
		if err := ctx.Err(); err != nil {
			return failure(timeout, err)
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return failure(timeout, fmt.Errorf("probe timeout: %w", err))
			}
			return failure(timeout, err)
		}
		if peer == nil {
			continue
		}

		reply, err := icmp.ParseMessage(protocol, buf[:n])
		if err != nil || reply.Type != replyType {
			continue
		}
		body, ok := reply.Body.(*icmp.Echo)
		if !ok || body.ID != p.id || body.Seq != seq {
			continue
		}

		return Result{Elapsed: time.Since(start), Success: true}
	}
}

func icmpSettings(ip net.IP) (network string, protocol int, requestType icmp.Type, replyType icmp.Type) {
	if ip.To4() != nil {
		return "ip4:icmp", ipv4.ICMPTypeEcho.Protocol(), ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	}
	return "ip6:ipv6-icmp", ipv6.ICMPTypeEchoRequest.Protocol(), ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
}

func effectiveDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
