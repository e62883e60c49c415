package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tableside/internal/domain"
)

type HTTPClient struct {
	base  string
	token string
	http  *http.Client
}

func NewHTTP(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base:  baseURL,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

// problem mirrors the backend's error body.
type problem struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return domain.Wrap(domain.KindValidation, op, err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return domain.Wrap(domain.KindUnreachable, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Wrap(domain.KindUnreachable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.Wrap(domain.KindMalformed, op, err)
		}
		return nil
	}

	var p problem
	_ = json.NewDecoder(resp.Body).Decode(&p)
	msg := p.Detail
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return domain.E(statusKind(resp.StatusCode), op, msg)
}

// statusKind maps response codes onto the error taxonomy. 5xx counts as
// unreachable so repeated server failures feed the gateway's re-probe
// hysteresis the same way dropped connections do.
func statusKind(code int) domain.Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.KindUnauthorized
	case code == http.StatusNotFound:
		return domain.KindNotFound
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return domain.KindValidation
	default:
		return domain.KindUnreachable
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, "remote.ping", http.MethodGet, "/tables", nil, &[]domain.Table{})
}

func (c *HTTPClient) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	q := url.Values{}
	if f.TableNumber != nil {
		q.Set("table_number", strconv.Itoa(*f.TableNumber))
	}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	path := "/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []domain.Order
	if err := c.do(ctx, "remote.list_orders", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, "remote.get_order", http.MethodGet, "/orders/"+id, nil, &out)
	return out, err
}

func (c *HTTPClient) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, "remote.create_order", http.MethodPost, "/orders", req, &out)
	return out, err
}

func (c *HTTPClient) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	var out domain.Order
	in := map[string]any{"status": status}
	err := c.do(ctx, "remote.update_order_status", http.MethodPatch, "/orders/"+id+"/status", in, &out)
	return out, err
}

func (c *HTTPClient) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, "remote.delete_order", http.MethodDelete, "/orders/"+id, nil, nil)
}

func (c *HTTPClient) ListTables(ctx context.Context) ([]domain.Table, error) {
	var out []domain.Table
	if err := c.do(ctx, "remote.list_tables", http.MethodGet, "/tables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateTableStatus(ctx context.Context, id string, status domain.TableStatus, orderID *string) (domain.Table, error) {
	var out domain.Table
	in := map[string]any{"status": status}
	if orderID != nil {
		in["order_id"] = *orderID
	}
	err := c.do(ctx, "remote.update_table_status", http.MethodPatch, "/tables/"+id+"/status", in, &out)
	return out, err
}

func (c *HTTPClient) AddCustomer(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	var out domain.Customer
	err := c.do(ctx, "remote.add_customer", http.MethodPost, "/customers", req, &out)
	return out, err
}

func (c *HTTPClient) UpdateCustomer(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	var out domain.Customer
	err := c.do(ctx, "remote.update_customer", http.MethodPatch, "/customers/"+id, req, &out)
	return out, err
}

func (c *HTTPClient) FindCustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	var out domain.Customer
	path := "/customers?phone=" + url.QueryEscape(phone)
	err := c.do(ctx, "remote.find_customer", http.MethodGet, path, nil, &out)
	return out, err
}

func (c *HTTPClient) AwardLoyaltyPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	var out domain.Customer
	in := map[string]int{"points": points}
	err := c.do(ctx, "remote.award_loyalty", http.MethodPost, fmt.Sprintf("/customers/%s/loyalty", id), in, &out)
	return out, err
}

func (c *HTTPClient) RedeemReferral(ctx context.Context, id string, points int) (domain.Customer, error) {
	var out domain.Customer
	in := map[string]int{"points": points}
	err := c.do(ctx, "remote.redeem_referral", http.MethodPost, fmt.Sprintf("/customers/%s/redeem", id), in, &out)
	return out, err
}
