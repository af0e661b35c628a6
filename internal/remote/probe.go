package remote

import (
	"context"
	"net/http"
	"time"
)

// Probe reports connectivity by checking that the catalog host answers at
// all. Any HTTP response counts as connected; only transport errors do not.
type Probe struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewProbe creates a probe for baseURL.
func NewProbe(baseURL string, timeout time.Duration) *Probe {
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &Probe{url: baseURL, client: &http.Client{}, timeout: timeout}
}

// Connected reports whether the catalog host is reachable.
func (p *Probe) Connected(ctx context.Context) bool {
	if p.url == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
