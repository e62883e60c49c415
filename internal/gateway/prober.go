package gateway

import (
	"context"
	"sync"
	"time"

	"tableside/internal/remote"
)

// Mode is which source the gateway currently serves from.
type Mode string

const (
	ModeUndetermined Mode = "undetermined"
	ModeRemote       Mode = "remote"
	ModeFallback     Mode = "fallback"
)

// Prober decides the operation mode with one lightweight read against the
// backend. Failure is a value, not an exception: no backend simply means
// fallback mode.
type Prober struct {
	client  remote.Client
	timeout time.Duration

	mu       sync.Mutex
	inflight *probeCall
}

type probeCall struct {
	done chan struct{}
	mode Mode
}

func NewProber(client remote.Client, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Prober{client: client, timeout: timeout}
}

// Probe returns the mode the backend's reachability dictates. Concurrent
// callers share a single in-flight network request; completion is bounded by
// the prober's own timeout, never the transport default.
func (p *Prober) Probe(ctx context.Context) Mode {
	p.mu.Lock()
	call := p.inflight
	if call == nil {
		call = &probeCall{done: make(chan struct{})}
		p.inflight = call
		go p.run(ctx, call)
	}
	p.mu.Unlock()

	<-call.done
	return call.mode
}

func (p *Prober) run(ctx context.Context, call *probeCall) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.client.Ping(pctx); err != nil {
		call.mode = ModeFallback
	} else {
		call.mode = ModeRemote
	}

	p.mu.Lock()
	p.inflight = nil
	p.mu.Unlock()
	close(call.done)
}
