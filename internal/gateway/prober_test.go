package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tableside/internal/domain"
)

func TestProbeSuccessMeansRemote(t *testing.T) {
	p := NewProber(&fakeRemote{}, time.Second)
	assert.Equal(t, ModeRemote, p.Probe(context.Background()))
}

func TestProbeFailureMeansFallback(t *testing.T) {
	p := NewProber(&fakeRemote{pingFn: failPing}, time.Second)
	assert.Equal(t, ModeFallback, p.Probe(context.Background()))
}

func TestProbeIsBoundedByOwnTimeout(t *testing.T) {
	fr := &fakeRemote{pingFn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	p := NewProber(fr, 100*time.Millisecond)

	start := time.Now()
	mode := p.Probe(context.Background())
	assert.Equal(t, ModeFallback, mode)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConcurrentProbesShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	fr := &fakeRemote{pingFn: func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
	p := NewProber(fr, 5*time.Second)

	var wg sync.WaitGroup
	modes := make([]Mode, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			modes[i] = p.Probe(context.Background())
		}(i)
	}

	// give every goroutine a chance to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, m := range modes {
		assert.Equal(t, ModeRemote, m)
	}
	assert.Equal(t, 1, fr.count("ping"))
}

func TestProbeAfterCompletionRunsAgain(t *testing.T) {
	calls := 0
	fr := &fakeRemote{}
	fr.pingFn = func(context.Context) error {
		calls++
		if calls == 1 {
			return nil
		}
		return domain.E(domain.KindUnreachable, "fake.ping", "down")
	}
	p := NewProber(fr, time.Second)

	assert.Equal(t, ModeRemote, p.Probe(context.Background()))
	assert.Equal(t, ModeFallback, p.Probe(context.Background()))
}
