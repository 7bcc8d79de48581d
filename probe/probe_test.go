package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saythanks/mobile-harness/types"
)

// fakeTimer fires immediately and remembers the requested delays.
type fakeTimer struct {
	c      chan time.Time
	delays []time.Duration
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	return t.c
}

func endpointFor(t *testing.T, srv *httptest.Server, name, path string, required bool, check types.HealthCheck) types.Endpoint {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return types.Endpoint{Name: name, Host: host, Port: port, Path: path, Required: required, Check: check}
}

// unreachableEndpoint points at a port nothing listens on.
func unreachableEndpoint(t *testing.T, name string, required bool) types.Endpoint {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	return types.Endpoint{Name: name, Host: "127.0.0.1", Port: port, Path: "/status", Required: required, Check: types.CheckStatusOK}
}

func newTestProber(timers *[]*fakeTimer) *Prober {
	return New(Config{
		Log:            log.NewLogger(log.DiscardHandler()),
		RequestTimeout: time.Second,
		NewTimer: func() backoff.Timer {
			ft := newFakeTimer()
			if timers != nil {
				*timers = append(*timers, ft)
			}
			return ft
		},
	})
}

func TestWaitForEndpoint_SeleniumReadyFlag(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wd/hub/status", r.URL.Path)
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"value":{"ready":false,"message":"warming up"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"value":{"ready":true}}`))
	}))
	defer srv.Close()

	var timers []*fakeTimer
	p := newTestProber(&timers)
	ep := endpointFor(t, srv, "selenium", "/wd/hub/status", true, types.CheckSeleniumReady)

	status := p.WaitForEndpoint(context.Background(), ep)
	assert.True(t, status.Ready)
	assert.Equal(t, 3, status.Attempts)
	require.Len(t, timers, 1)
	assert.Equal(t, []time.Duration{DefaultInterval, DefaultInterval}, timers[0].delays)
}

func TestWaitForEndpoint_MalformedBodyCountsAsFailedAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	p := newTestProber(nil)
	ep := endpointFor(t, srv, "selenium", "/wd/hub/status", true, types.CheckSeleniumReady)

	status := p.WaitForEndpoint(context.Background(), ep)
	assert.False(t, status.Ready)
	assert.Equal(t, DefaultMaxAttempts, status.Attempts)
}

func TestWaitForEndpoint_StatusOKOnly(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`anything`))
	}))
	defer srv.Close()

	p := newTestProber(nil)
	ep := endpointFor(t, srv, "android", "/status", false, types.CheckStatusOK)

	status := p.WaitForEndpoint(context.Background(), ep)
	assert.True(t, status.Ready)
	assert.Equal(t, 2, status.Attempts)
}

func TestWaitForEndpoint_AttemptCap(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{
		Log:         log.NewLogger(log.DiscardHandler()),
		MaxAttempts: 4,
		NewTimer:    func() backoff.Timer { return newFakeTimer() },
	})
	ep := endpointFor(t, srv, "ios", "/status", false, types.CheckStatusOK)

	status := p.WaitForEndpoint(context.Background(), ep)
	assert.False(t, status.Ready)
	assert.Equal(t, 4, status.Attempts)
	assert.Equal(t, int32(4), calls.Load())
}

func TestWaitForServices_RequiredMissingFails(t *testing.T) {
	p := newTestProber(nil)
	endpoints := []types.Endpoint{
		unreachableEndpoint(t, "selenium", true),
	}

	readiness, err := p.WaitForServices(context.Background(), endpoints)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequiredServiceUnavailable))
	assert.Contains(t, err.Error(), "selenium")
	assert.False(t, readiness.Ready())
	require.Len(t, readiness.Services, 1)
	assert.Equal(t, DefaultMaxAttempts, readiness.Services[0].Attempts)
}

func TestWaitForServices_OptionalMissingIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":{"ready":true}}`))
	}))
	defer srv.Close()

	p := newTestProber(nil)
	endpoints := []types.Endpoint{
		endpointFor(t, srv, "selenium", "/wd/hub/status", true, types.CheckSeleniumReady),
		unreachableEndpoint(t, "android", false),
		unreachableEndpoint(t, "ios", false),
	}

	readiness, err := p.WaitForServices(context.Background(), endpoints)
	require.NoError(t, err)
	assert.True(t, readiness.Ready())
	assert.True(t, readiness.Available("selenium"))
	assert.False(t, readiness.Available("android"))
	assert.False(t, readiness.Available("ios"))
	assert.False(t, readiness.Available("unknown"))

	names := make([]string, 0, len(readiness.Services))
	for _, s := range readiness.Services {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"selenium", "android", "ios"}, names)
}

type recordingObserver struct {
	started  []string
	finished []types.ServiceStatus
}

func (o *recordingObserver) ProbeStarted(ep types.Endpoint) {
	o.started = append(o.started, ep.Name)
}

func (o *recordingObserver) ProbeFinished(status types.ServiceStatus) {
	o.finished = append(o.finished, status)
}

func TestWaitForServices_NotifiesObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	p := New(Config{
		Log:      log.NewLogger(log.DiscardHandler()),
		Observer: obs,
		NewTimer: func() backoff.Timer { return newFakeTimer() },
	})

	_, err := p.WaitForServices(context.Background(), []types.Endpoint{
		endpointFor(t, srv, "android", "/status", false, types.CheckStatusOK),
		endpointFor(t, srv, "ios", "/status", false, types.CheckStatusOK),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"android", "ios"}, obs.started)
	require.Len(t, obs.finished, 2)
	assert.True(t, obs.finished[0].Ready)
	assert.True(t, obs.finished[1].Ready)
}

func TestWaitForEndpoint_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestProber(nil)
	status := p.WaitForEndpoint(ctx, unreachableEndpoint(t, "selenium", true))
	assert.False(t, status.Ready)
	assert.LessOrEqual(t, status.Attempts, 1)
}
