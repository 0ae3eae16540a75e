package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// HealthPath is appended to the backend base URL
const HealthPath = "/api/health"

// maxHealthBody caps how much of the health response is read
const maxHealthBody = 1 << 20

// UserAgent is sent with every probe request
var UserAgent = "iris/dev"

// Prober defines the interface the monitor drives
type Prober interface {
	Check(ctx context.Context) Record
}

// Probe performs HTTP health checks against a single backend
type Probe struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration

	mu   sync.RWMutex
	last Record
}

// NewProbe creates a probe for {baseURL}/api/health with the given request timeout
func NewProbe(baseURL string, timeout time.Duration) *Probe {
	return &Probe{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse // Don't follow redirects
			},
		},
		endpoint: strings.TrimRight(baseURL, "/") + HealthPath,
		timeout:  timeout,
		last:     UnknownRecord(),
	}
}

// Endpoint returns the URL the probe checks
func (p *Probe) Endpoint() string {
	return p.endpoint
}

// Close closes the HTTP client's connection pool
func (p *Probe) Close() {
	if p.client != nil {
		p.client.CloseIdleConnections()
	}
}

// Last returns the most recent record produced by Check
func (p *Probe) Last() Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last.Clone()
}

// Check performs one health check. It never fails: every error path is
// captured in the returned record, which also becomes the cached Last record.
func (p *Probe) Check(ctx context.Context) Record {
	start := time.Now()
	record := p.check(ctx)
	record.Latency = time.Since(start)
	record.CheckedAt = time.Now()

	p.mu.Lock()
	p.last = record.Clone()
	p.mu.Unlock()

	return record
}

func (p *Probe) check(ctx context.Context) Record {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return p.failure(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return p.failure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxHealthBody))
		return p.failure(fmt.Errorf("%s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHealthBody))
	if err != nil {
		return p.failure(fmt.Errorf("failed to read response body: %w", err))
	}

	if !gjson.ValidBytes(body) {
		return p.failure(errInvalidBody("body is not valid JSON"))
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return p.failure(errInvalidBody("expected a JSON object"))
	}

	return Record{
		Status: StatusHealthy,
		Backend: &BackendInfo{
			Status:    doc.Get("status").String(),
			Version:   doc.Get("version").String(),
			Timestamp: doc.Get("timestamp").String(),
		},
		Services: healthyServices(),
	}
}

type errInvalidBody string

func (e errInvalidBody) Error() string {
	return "invalid health response: " + string(e)
}

// failure normalizes any error into an unhealthy record
func (p *Probe) failure(err error) Record {
	return Record{
		Status:   StatusUnhealthy,
		Error:    p.describe(err),
		Services: failedServices(),
	}
}

func (p *Probe) describe(err error) string {
	if isTimeout(err) {
		return fmt.Sprintf("health check timeout after %s", p.timeout)
	}

	var invalid errInvalidBody
	if errors.As(err, &invalid) {
		return invalid.Error()
	}

	return fmt.Sprintf("health check failed: %v", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
