// Package stream maintains the long-lived kitchen push connection. The
// backend emits newline-delimited JSON frames; each good frame becomes a
// StreamEvent callback, each bad frame is logged and dropped. Retry policy
// deliberately lives with the caller so it can coordinate with operation-mode
// transitions.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tableside/internal/common/logger"
	"tableside/internal/domain"
)

// frames can carry a full order with line items; 1 MiB is far beyond any
// realistic ticket.
const maxFrameSize = 1 << 20

type Client struct {
	url   string
	token string
	http  *http.Client
	log   *logger.Logger
}

func New(streamURL, token string, lg *logger.Logger) *Client {
	return &Client{
		url:   streamURL,
		token: token,
		http: &http.Client{
			// no overall timeout: the response body stays open for
			// the lifetime of the subscription
			Transport: &http.Transport{ResponseHeaderTimeout: 10 * time.Second},
		},
		log: lg,
	}
}

type subscription struct {
	cancel context.CancelFunc

	// mu serializes callbacks against close: a callback is only ever
	// invoked with mu held and closed == false, so once close returns no
	// further onEvent/onError can fire.
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// Subscribe opens the connection and decodes frames until a transport error
// or close. onError is invoked at most once, after which the subscription is
// dead; reconnecting means calling Subscribe again. The returned close
// function is idempotent and must not be called from inside a callback.
func (c *Client) Subscribe(ctx context.Context, onEvent func(domain.StreamEvent), onError func(error)) (func(), error) {
	const op = "stream.subscribe"

	sctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(sctx, http.MethodGet, c.url, nil)
	if err != nil {
		cancel()
		return nil, domain.Wrap(domain.KindUnreachable, op, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, domain.Wrap(domain.KindUnreachable, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, domain.E(domain.KindUnauthorized, op, http.StatusText(resp.StatusCode))
		}
		return nil, domain.E(domain.KindUnreachable, op, fmt.Sprintf("stream endpoint returned %d", resp.StatusCode))
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go c.readLoop(sub, resp, onEvent, onError)
	return sub.close, nil
}

func (c *Client) readLoop(sub *subscription, resp *http.Response, onEvent func(domain.StreamEvent), onError func(error)) {
	defer close(sub.done)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := domain.DecodeStreamEvent(line)
		if err != nil {
			// a single bad frame must not end the connection
			c.log.Error("stream_frame_dropped", err, map[string]any{"frame_len": len(line)})
			continue
		}
		sub.mu.Lock()
		if sub.closed {
			sub.mu.Unlock()
			return
		}
		onEvent(ev)
		sub.mu.Unlock()
	}

	err := sc.Err()
	if err == nil {
		err = fmt.Errorf("stream closed by server")
	}

	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	onError(domain.Wrap(domain.KindUnreachable, "stream.read", err))
	sub.mu.Unlock()
}

// close tears the connection down and waits for the read loop to finish, so
// no callback can run after it returns. Safe to call any number of times,
// including after the connection already failed.
func (sub *subscription) close() {
	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
	sub.cancel()
	<-sub.done
}
