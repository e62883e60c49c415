// Package gateway is the single entry point the POS UI talks to. Every
// operation is dispatched to either the remote backend or the local entity
// store depending on the current mode; results and errors come back in one
// shape either way. While remote, kitchen stream events are reconciled into
// the store so whatever view reads from it stays current.
package gateway

import (
	"context"
	"sync"
	"time"

	"tableside/internal/common/logger"
	"tableside/internal/domain"
	"tableside/internal/remote"
	"tableside/internal/store"
)

// StreamOpener is the subscription side of the stream client; faked in tests.
type StreamOpener interface {
	Subscribe(ctx context.Context, onEvent func(domain.StreamEvent), onError func(error)) (func(), error)
}

type Config struct {
	ProbeTimeout      time.Duration
	FailureThreshold  int // consecutive unreachable errors before a re-probe
	StreamMaxRetries  int // reconnect attempts before forcing a re-probe
	StreamBackoffBase time.Duration
	StreamBackoffMax  time.Duration
}

func (c *Config) applyDefaults() {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.StreamMaxRetries <= 0 {
		c.StreamMaxRetries = 5
	}
	if c.StreamBackoffBase <= 0 {
		c.StreamBackoffBase = 200 * time.Millisecond
	}
	if c.StreamBackoffMax <= 0 {
		c.StreamBackoffMax = 5 * time.Second
	}
}

type Gateway struct {
	cfg    Config
	remote remote.Client
	stream StreamOpener
	store  *store.Store
	prober *Prober
	log    *logger.Logger

	mu        sync.Mutex
	mode      Mode
	failures  int
	reprobing bool

	ready chan struct{} // closed once the first probe resolves

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a gateway around its collaborators and kicks off the first probe
// asynchronously. The store is passed in, not ambient: multiple gateways
// (per-tenant) can coexist without cross-talk.
func New(cfg Config, rc remote.Client, so StreamOpener, st *store.Store, lg *logger.Logger) *Gateway {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		cfg:    cfg,
		remote: rc,
		stream: so,
		store:  st,
		prober: NewProber(rc, cfg.ProbeTimeout),
		log:    lg,
		mode:   ModeUndetermined,
		ready:  make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	g.wg.Add(1)
	go g.bootstrap()
	return g
}

func (g *Gateway) bootstrap() {
	defer g.wg.Done()
	mode := g.prober.Probe(g.ctx)
	g.setMode(mode)
	g.log.Info("mode_determined", map[string]any{"mode": string(mode)})
	close(g.ready)
	if mode == ModeRemote && g.stream != nil {
		g.wg.Add(1)
		go g.superviseStream()
	}
}

// Close stops the stream supervisor and waits for background work. Further
// operations keep serving from whatever mode was last active.
func (g *Gateway) Close() {
	g.cancel()
	g.wg.Wait()
}

func (g *Gateway) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

func (g *Gateway) setMode(m Mode) {
	g.mu.Lock()
	prev := g.mode
	g.mode = m
	g.failures = 0
	g.mu.Unlock()
	if prev == ModeRemote && m == ModeFallback {
		g.log.Info("demoted_to_fallback", nil)
	}
}

// waitReady blocks until the first probe has resolved the mode; no operation
// is serviced ahead of that. Bounded by the caller's context.
func (g *Gateway) waitReady(ctx context.Context, op string) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return domain.Wrap(domain.KindUnreachable, op, ctx.Err())
	}
}

// noteRemoteError feeds the re-probe hysteresis. Only unreachable errors
// count: a domain error proves the backend answered, so the streak resets.
func (g *Gateway) noteRemoteError(err error) {
	if !domain.IsKind(err, domain.KindUnreachable) {
		g.resetFailures()
		return
	}
	g.mu.Lock()
	g.failures++
	hit := g.failures >= g.cfg.FailureThreshold && !g.reprobing
	if hit {
		g.reprobing = true
	}
	g.mu.Unlock()
	if hit {
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.reevaluate()
		}()
	}
}

func (g *Gateway) resetFailures() {
	g.mu.Lock()
	g.failures = 0
	g.mu.Unlock()
}

// reevaluate re-runs the probe and applies the verdict. Demotion keeps the
// store contents, so consumers keep reading the last known state.
func (g *Gateway) reevaluate() {
	mode := g.prober.Probe(g.ctx)
	g.mu.Lock()
	g.reprobing = false
	g.mu.Unlock()
	g.setMode(mode)
}

func (g *Gateway) superviseStream() {
	defer g.wg.Done()
	retries := 0
	backoff := g.cfg.StreamBackoffBase

	for {
		if g.ctx.Err() != nil || g.Mode() != ModeRemote {
			return
		}

		errCh := make(chan error, 1)
		closeFn, err := g.stream.Subscribe(g.ctx, g.applyEvent, func(e error) { errCh <- e })
		if err == nil {
			retries = 0
			backoff = g.cfg.StreamBackoffBase
			select {
			case <-g.ctx.Done():
				closeFn()
				return
			case err = <-errCh:
				closeFn()
			}
		}

		retries++
		g.log.Error("stream_disconnected", err, map[string]any{"retries": retries})
		if retries >= g.cfg.StreamMaxRetries {
			g.reevaluate()
			if g.Mode() != ModeRemote {
				return
			}
			retries = 0
			backoff = g.cfg.StreamBackoffBase
		}

		select {
		case <-g.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > g.cfg.StreamBackoffMax {
			backoff = g.cfg.StreamBackoffMax
		}
	}
}

// applyEvent reconciles one stream frame into the store: full-record
// replacement, last write wins by arrival order. A delete for an absent
// order is not an error.
func (g *Gateway) applyEvent(ev domain.StreamEvent) {
	switch ev.Type {
	case domain.EventCreated, domain.EventUpdated:
		g.store.PutOrder(*ev.Order)
	case domain.EventDeleted:
		_ = g.store.DeleteOrder(ev.OrderID)
	}
}

// dispatch routes one operation per the current mode. Remote success
// cache-fills the store via fill; remote failure leaves the store untouched
// and feeds the failure counter.
func dispatch[T any](ctx context.Context, g *Gateway, op string,
	viaRemote func(context.Context) (T, error),
	viaStore func() (T, error),
	fill func(T),
) (T, error) {
	var zero T
	if err := g.waitReady(ctx, op); err != nil {
		return zero, err
	}
	if g.Mode() == ModeRemote {
		v, err := viaRemote(ctx)
		if err != nil {
			g.noteRemoteError(err)
			return zero, err
		}
		g.resetFailures()
		if fill != nil {
			fill(v)
		}
		return v, nil
	}
	return viaStore()
}
