package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/common/logger"
	"tableside/internal/domain"
)

func newTestServer(t *testing.T, token string) (*httptest.Server, *Service, *Hub) {
	t.Helper()
	repo := NewMemoryRepository()
	require.NoError(t, SeedTables(context.Background(), repo, 3))
	hub := NewHub()
	svc := NewService(repo, hub.Broadcast)
	lg := logger.NewWithWriter("server-test", io.Discard)
	ts := httptest.NewServer(NewHandler(svc, hub, lg, token).Router())
	t.Cleanup(ts.Close)
	return ts, svc, hub
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	ts, _, _ := newTestServer(t, "")

	two := 2
	var created domain.Order
	code := doJSON(t, http.MethodPost, ts.URL+"/orders", domain.CreateOrderRequest{
		Channel:     domain.ChannelDineIn,
		TableNumber: &two,
		Items:       []domain.OrderItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 1200}},
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, domain.OrderPending, created.Status)
	assert.Equal(t, 1200.0, created.TotalAmount)

	// the referenced table is now occupied
	var tables []domain.Table
	code = doJSON(t, http.MethodGet, ts.URL+"/tables", nil, &tables)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, tables, 3)
	for _, tb := range tables {
		if tb.Number == 2 {
			assert.Equal(t, domain.TableOccupied, tb.Status)
			require.NotNil(t, tb.CurrentOrderID)
			assert.Equal(t, created.ID, *tb.CurrentOrderID)
		}
	}

	var fetched domain.Order
	code = doJSON(t, http.MethodGet, ts.URL+"/orders/"+created.ID, nil, &fetched)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.ID, fetched.ID)

	var completed domain.Order
	code = doJSON(t, http.MethodPatch, ts.URL+"/orders/"+created.ID+"/status",
		map[string]string{"status": "completed"}, &completed)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.OrderCompleted, completed.Status)

	// terminal orders cannot move again
	code = doJSON(t, http.MethodPatch, ts.URL+"/orders/"+created.ID+"/status",
		map[string]string{"status": "cancelled"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code = doJSON(t, http.MethodDelete, ts.URL+"/orders/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code = doJSON(t, http.MethodGet, ts.URL+"/orders/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListOrdersFiltering(t *testing.T) {
	ts, svc, _ := newTestServer(t, "")
	ctx := context.Background()

	one, three := 1, 3
	a, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{
		Channel: domain.ChannelDineIn, TableNumber: &one,
		Items: []domain.OrderItem{{ID: "i1", Name: "Tea", Quantity: 1, Price: 300}},
	})
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, domain.CreateOrderRequest{
		Channel: domain.ChannelDineIn, TableNumber: &three,
		Items: []domain.OrderItem{{ID: "i1", Name: "Coffee", Quantity: 1, Price: 400}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, a.ID, domain.OrderCompleted)
	require.NoError(t, err)

	var orders []domain.Order
	code := doJSON(t, http.MethodGet, ts.URL+"/orders?table_number=1", nil, &orders)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, orders, 1)
	assert.Equal(t, a.ID, orders[0].ID)

	code = doJSON(t, http.MethodGet, ts.URL+"/orders?status=pending", nil, &orders)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, orders, 1)
	assert.Equal(t, "Coffee", orders[0].Items[0].Name)

	code = doJSON(t, http.MethodGet, ts.URL+"/orders?table_number=nope", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCustomerLoyaltyOverHTTP(t *testing.T) {
	ts, _, _ := newTestServer(t, "")

	var c domain.Customer
	code := doJSON(t, http.MethodPost, ts.URL+"/customers", domain.CreateCustomerRequest{
		Name: "Ayan", Phone: "+77010000001",
	}, &c)
	require.Equal(t, http.StatusCreated, code)

	code = doJSON(t, http.MethodPost, ts.URL+"/customers/"+c.ID+"/loyalty",
		map[string]int{"points": 120}, &c)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 120, c.LoyaltyPoints)

	code = doJSON(t, http.MethodPost, ts.URL+"/customers/"+c.ID+"/redeem",
		map[string]int{"points": 50}, &c)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 70, c.LoyaltyPoints)

	// overdraw is rejected and the balance stays put
	code = doJSON(t, http.MethodPost, ts.URL+"/customers/"+c.ID+"/redeem",
		map[string]int{"points": 500}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	var found domain.Customer
	code = doJSON(t, http.MethodGet, ts.URL+"/customers?phone=%2B77010000001", nil, &found)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 70, found.LoyaltyPoints)

	name := "Ayan S."
	code = doJSON(t, http.MethodPatch, ts.URL+"/customers/"+c.ID,
		domain.UpdateCustomerRequest{Name: &name}, &found)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ayan S.", found.Name)

	code = doJSON(t, http.MethodGet, ts.URL+"/customers?phone=+70000000000", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTableStatusValidationOverHTTP(t *testing.T) {
	ts, svc, _ := newTestServer(t, "")

	tables, err := svc.ListTables(context.Background())
	require.NoError(t, err)
	id := tables[0].ID

	// occupied without an order reference is invalid
	code := doJSON(t, http.MethodPatch, ts.URL+"/tables/"+id+"/status",
		map[string]any{"status": "occupied"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	var tb domain.Table
	code = doJSON(t, http.MethodPatch, ts.URL+"/tables/"+id+"/status",
		map[string]any{"status": "reserved"}, &tb)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.TableReserved, tb.Status)
}

func TestBearerAuth(t *testing.T) {
	ts, _, _ := newTestServer(t, "secret")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/tables", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidJSONBody(t *testing.T) {
	ts, _, _ := newTestServer(t, "")

	resp, err := http.Post(ts.URL+"/orders", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKitchenStreamDeliversFrames(t *testing.T) {
	ts, svc, hub := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/kitchen/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	one := 1
	o, err := svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		Channel: domain.ChannelDineIn, TableNumber: &one,
		Items: []domain.OrderItem{{ID: "i1", Name: "Tea", Quantity: 1, Price: 300}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteOrder(context.Background(), o.ID))

	sc := bufio.NewScanner(resp.Body)

	require.True(t, sc.Scan(), "no created frame: %v", sc.Err())
	ev, err := domain.DecodeStreamEvent(sc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, domain.EventCreated, ev.Type)
	require.NotNil(t, ev.Order)
	assert.Equal(t, o.ID, ev.Order.ID)

	require.True(t, sc.Scan(), "no deleted frame: %v", sc.Err())
	ev, err = domain.DecodeStreamEvent(sc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, domain.EventDeleted, ev.Type)
	assert.Equal(t, o.ID, ev.OrderID)
}
