// Package health serves liveness and readiness probes backed by periodic
// dependency checks.
//
// A check flips to failing only after FailureThreshold consecutive errors and
// back to passing after SuccessThreshold consecutive successes, so a single
// slow ping does not take the instance out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckFunc reports a dependency problem as a non-nil error.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Options tune check evaluation. Zero fields take defaults.
type Options struct {
	Interval         time.Duration
	FailureThreshold int
	SuccessThreshold int
	Logger           *zap.Logger
}

func (o *Options) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = 10 * time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 3
	}
	if o.SuccessThreshold <= 0 {
		o.SuccessThreshold = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type check struct {
	name    string
	kind    Kind
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	failing bool
	lastErr error
	fails   int
	passes  int
}

// observe records one result and reports whether the check changed state.
func (c *check) observe(err error, failAfter, passAfter int) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err
	if err != nil {
		c.passes = 0
		c.fails++
		if !c.failing && c.fails >= failAfter {
			c.failing = true
			return true
		}
		return false
	}
	c.fails = 0
	c.passes++
	if c.failing && c.passes >= passAfter {
		c.failing = false
		return true
	}
	return false
}

func (c *check) state() (failing bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failing, c.lastErr
}

// Health evaluates registered checks and exposes them over HTTP.
type Health struct {
	opts  Options
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Health that reports not ready until SetReady(true).
func New(opts Options) *Health {
	opts.setDefaults()
	return &Health{opts: opts}
}

// Add registers a check. Checks start out passing.
func (h *Health) Add(kind Kind, name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, &check{name: name, kind: kind, timeout: timeout, fn: fn})
}

// RunOnce evaluates every check concurrently and waits for all of them.
func (h *Health) RunOnce(ctx context.Context) {
	h.mu.RLock()
	checks := append([]*check(nil), h.checks...)
	h.mu.RUnlock()

	var g errgroup.Group
	for _, c := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			err := c.fn(cctx)
			if c.observe(err, h.opts.FailureThreshold, h.opts.SuccessThreshold) {
				if err != nil {
					h.opts.Logger.Warn("Health check failing", zap.String("check", c.name), zap.Error(err))
				} else {
					h.opts.Logger.Info("Health check recovered", zap.String("check", c.name))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Start evaluates checks immediately and then every Interval until Stop or
// ctx cancellation.
func (h *Health) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	h.mu.Lock()
	h.cancel, h.done = cancel, done
	h.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(h.opts.Interval)
		defer ticker.Stop()

		h.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts background evaluation and waits for the loop to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetReady toggles the manual readiness gate used during startup and drain.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports the readiness gate combined with readiness checks.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, c := range h.checks {
		if c.kind != kind {
			continue
		}
		failing, err := c.state()
		if !failing {
			continue
		}
		if err != nil {
			out[c.name] = err.Error()
		} else {
			out[c.name] = "failing"
		}
	}
	return out
}

// Names lists registered checks of kind in name order.
func (h *Health) Names(kind Kind) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var names []string
	for _, c := range h.checks {
		if c.kind == kind {
			names = append(names, c.name)
		}
	}
	sort.Strings(names)
	return names
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	respond(w, h.failures(Liveness))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(Readiness)
	if !h.ready.Load() {
		failures["ready"] = "not accepting traffic"
	}
	respond(w, failures)
}

func respond(w http.ResponseWriter, failures map[string]string) {
	body := response{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		body = response{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
