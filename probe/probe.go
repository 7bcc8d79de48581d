// Package probe waits for the browser-automation backends to report healthy
// before any suite is allowed to run.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"

	"github.com/saythanks/mobile-harness/metrics"
	"github.com/saythanks/mobile-harness/types"
)

const (
	DefaultMaxAttempts    = 30
	DefaultInterval       = 2 * time.Second
	DefaultRequestTimeout = 5 * time.Second
)

// ErrRequiredServiceUnavailable is returned when a required endpoint never
// became ready within the attempt cap.
var ErrRequiredServiceUnavailable = errors.New("required service unavailable")

// HTTPClient is the subset of *http.Client used for polling.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer is notified as each endpoint is probed.
type Observer interface {
	ProbeStarted(endpoint types.Endpoint)
	ProbeFinished(status types.ServiceStatus)
}

// Config configures a Prober. Zero values fall back to the defaults.
type Config struct {
	Log            log.Logger
	Client         HTTPClient
	Observer       Observer
	MaxAttempts    int
	Interval       time.Duration
	RequestTimeout time.Duration
	// NewTimer supplies the timer used between attempts. Tests replace it
	// to avoid real sleeps.
	NewTimer func() backoff.Timer
}

// Readiness is the outcome of probing a set of endpoints.
type Readiness struct {
	Services []types.ServiceStatus
}

// Ready reports whether every required endpoint is ready.
func (r Readiness) Ready() bool {
	for _, s := range r.Services {
		if s.Required && !s.Ready {
			return false
		}
	}
	return true
}

// Available reports whether the named endpoint became ready.
func (r Readiness) Available(name string) bool {
	for _, s := range r.Services {
		if s.Name == name {
			return s.Ready
		}
	}
	return false
}

// Prober polls endpoints with a bounded, fixed-interval retry loop.
type Prober struct {
	log            log.Logger
	client         HTTPClient
	observer       Observer
	maxAttempts    int
	interval       time.Duration
	requestTimeout time.Duration
	newTimer       func() backoff.Timer
}

// New creates a Prober.
func New(cfg Config) *Prober {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Prober{
		log:            cfg.Log,
		client:         cfg.Client,
		observer:       cfg.Observer,
		maxAttempts:    cfg.MaxAttempts,
		interval:       cfg.Interval,
		requestTimeout: cfg.RequestTimeout,
		newTimer:       cfg.NewTimer,
	}
}

// WaitForServices probes every endpoint in order. Optional endpoints that
// never become ready are recorded but do not fail the check; a required one
// makes the returned error wrap ErrRequiredServiceUnavailable.
func (p *Prober) WaitForServices(ctx context.Context, endpoints []types.Endpoint) (Readiness, error) {
	readiness := Readiness{Services: make([]types.ServiceStatus, 0, len(endpoints))}
	var missing []string

	for _, ep := range endpoints {
		status := p.WaitForEndpoint(ctx, ep)
		readiness.Services = append(readiness.Services, status)
		metrics.RecordServiceStatus(status)

		switch {
		case status.Ready:
			p.log.Info("Service ready", "service", ep.Name, "url", status.URL, "attempts", status.Attempts)
		case ep.Required:
			p.log.Error("Required service not ready", "service", ep.Name, "url", status.URL, "attempts", status.Attempts)
			missing = append(missing, ep.Name)
		default:
			p.log.Warn("Optional service not available", "service", ep.Name, "url", status.URL, "attempts", status.Attempts)
		}
	}

	if len(missing) > 0 {
		return readiness, fmt.Errorf("%w: %v", ErrRequiredServiceUnavailable, missing)
	}
	return readiness, nil
}

// WaitForEndpoint polls a single endpoint until it is healthy or the attempt
// cap is exhausted. Attempt failures are never fatal on their own.
func (p *Prober) WaitForEndpoint(ctx context.Context, ep types.Endpoint) types.ServiceStatus {
	status := types.ServiceStatus{
		Name:     ep.Name,
		URL:      ep.URL(),
		Required: ep.Required,
	}
	if p.observer != nil {
		p.observer.ProbeStarted(ep)
	}

	var b backoff.BackOff = backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), uint64(p.maxAttempts-1))
	b = backoff.WithContext(b, ctx)

	var timer backoff.Timer
	if p.newTimer != nil {
		timer = p.newTimer()
	}

	operation := func() error {
		status.Attempts++
		return p.check(ctx, ep)
	}
	notify := func(err error, next time.Duration) {
		p.log.Debug("Service not ready yet", "service", ep.Name, "attempt", status.Attempts, "retryIn", next, "err", err)
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, timer)
	status.Ready = err == nil
	if err != nil {
		p.log.Debug("Gave up waiting for service", "service", ep.Name, "attempts", status.Attempts, "err", err)
	}

	if p.observer != nil {
		p.observer.ProbeFinished(status)
	}
	return status
}

// check performs one attempt against the endpoint's health contract.
func (p *Prober) check(ctx context.Context, ep types.Endpoint) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ep.URL(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	switch ep.Check {
	case types.CheckSeleniumReady:
		return checkSeleniumReady(resp.Body)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
}

// seleniumStatus is the part of the grid's /status body we care about.
type seleniumStatus struct {
	Value struct {
		Ready   bool   `json:"ready"`
		Message string `json:"message"`
	} `json:"value"`
}

func checkSeleniumReady(body io.Reader) error {
	var status seleniumStatus
	if err := json.NewDecoder(body).Decode(&status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	if !status.Value.Ready {
		if status.Value.Message != "" {
			return fmt.Errorf("grid not ready: %s", status.Value.Message)
		}
		return errors.New("grid not ready")
	}
	return nil
}
