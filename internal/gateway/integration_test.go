package gateway_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/common/logger"
	"tableside/internal/domain"
	"tableside/internal/gateway"
	"tableside/internal/remote"
	"tableside/internal/server"
	"tableside/internal/store"
	"tableside/internal/stream"
)

// The full remote-mode loop against the real backend: HTTP client, NDJSON
// stream, reconciliation into the cache.
func TestGatewayAgainstLiveBackend(t *testing.T) {
	lg := logger.NewWithWriter("it", io.Discard)
	ctx := context.Background()

	repo := server.NewMemoryRepository()
	require.NoError(t, server.SeedTables(ctx, repo, 4))
	hub := server.NewHub()
	svc := server.NewService(repo, hub.Broadcast)
	ts := httptest.NewServer(server.NewHandler(svc, hub, lg, "").Router())
	defer ts.Close()

	rc := remote.NewHTTP(ts.URL, "", 2*time.Second)
	sc := stream.New(ts.URL+"/kitchen/stream", "", lg)
	st := store.New()
	g := gateway.New(gateway.Config{ProbeTimeout: time.Second}, rc, sc, st, lg)
	defer g.Close()

	require.Eventually(t, func() bool { return g.Mode() == gateway.ModeRemote }, 2*time.Second, 10*time.Millisecond)
	// wait for the kitchen stream to be attached before mutating
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	tables, err := g.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 4)

	one := 1
	o, err := g.CreateOrder(ctx, domain.CreateOrderRequest{
		Channel:     domain.ChannelDineIn,
		TableNumber: &one,
		Items:       []domain.OrderItem{{ID: "i1", Name: "Tea", Quantity: 2, Price: 20}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)

	// a status change applied directly on the backend reaches the cache
	// through the push stream
	_, err = svc.UpdateOrderStatus(ctx, o.ID, domain.OrderCompleted)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := st.GetOrder(o.ID)
		return err == nil && got.Status == domain.OrderCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// same for a backend-side delete
	require.NoError(t, svc.DeleteOrder(ctx, o.ID))
	require.Eventually(t, func() bool {
		_, err := st.GetOrder(o.ID)
		return domain.IsKind(err, domain.KindNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	orders, err := g.ListOrders(ctx, domain.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGatewayUnauthorizedPropagates(t *testing.T) {
	lg := logger.NewWithWriter("it", io.Discard)
	ctx := context.Background()

	repo := server.NewMemoryRepository()
	require.NoError(t, server.SeedTables(ctx, repo, 2))
	hub := server.NewHub()
	svc := server.NewService(repo, hub.Broadcast)
	ts := httptest.NewServer(server.NewHandler(svc, hub, lg, "expected-token").Router())
	defer ts.Close()

	rc := remote.NewHTTP(ts.URL, "wrong-token", 2*time.Second)
	st := store.New()
	g := gateway.New(gateway.Config{ProbeTimeout: time.Second}, rc, nil, st, lg)
	defer g.Close()

	// an unauthorized probe means no backend for our purposes
	require.Eventually(t, func() bool { return g.Mode() == gateway.ModeFallback }, 2*time.Second, 10*time.Millisecond)

	// fallback still works locally
	_, err := g.AddCustomer(ctx, domain.CreateCustomerRequest{Name: "Dana"})
	require.NoError(t, err)
}
