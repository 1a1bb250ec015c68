package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProber issues a HEAD request against a well-known endpoint. Any
// response, regardless of status code, proves reachability.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber returns an HTTP-based prober. Redirects are not followed;
// the first response is evidence enough.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe sends one HEAD request and reports success plus elapsed time.
func (p *HTTPProber) Probe(ctx context.Context, host string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return failure(timeout, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, probeURL(host), nil)
	if err != nil {
		return failure(timeout, fmt.Errorf("build probe request: %w", err))
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return failure(timeout, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return Result{Elapsed: time.Since(start), Success: true}
}

func probeURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}
