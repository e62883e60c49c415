package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderChannel string

const (
	ChannelDineIn   OrderChannel = "dine-in"
	ChannelTakeaway OrderChannel = "takeaway"
)

func (c OrderChannel) Valid() bool {
	return c == ChannelDineIn || c == ChannelTakeaway
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	return s == OrderPending || s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo encodes the order status machine: only pending is
// non-terminal, and it may move to completed or cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderPending && (next == OrderCompleted || next == OrderCancelled)
}

type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
}

type Order struct {
	ID          string       `json:"id"`
	Channel     OrderChannel `json:"channel"`
	Status      OrderStatus  `json:"status"`
	Items       []OrderItem  `json:"items"`
	Subtotal    float64      `json:"subtotal"`
	TotalAmount float64      `json:"total_amount"`
	TableNumber *int         `json:"table_number,omitempty"`
	CustomerID  *string      `json:"customer_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type CreateOrderRequest struct {
	Channel     OrderChannel `json:"channel"`
	Items       []OrderItem  `json:"items"`
	Subtotal    float64      `json:"subtotal,omitempty"`
	TotalAmount float64      `json:"total_amount,omitempty"`
	TableNumber *int         `json:"table_number,omitempty"`
	CustomerID  *string      `json:"customer_id,omitempty"`
}

func (r CreateOrderRequest) Validate() error {
	const op = "order.create"
	if !r.Channel.Valid() {
		return E(KindValidation, op, fmt.Sprintf("invalid order channel %q", r.Channel))
	}
	if len(r.Items) == 0 {
		return E(KindValidation, op, "at least one item is required")
	}
	for _, it := range r.Items {
		if it.Name == "" {
			return E(KindValidation, op, "item name is required")
		}
		if it.Quantity <= 0 {
			return E(KindValidation, op, fmt.Sprintf("invalid quantity for item %s", it.Name))
		}
		if it.Price <= 0 {
			return E(KindValidation, op, fmt.Sprintf("invalid price for item %s", it.Name))
		}
	}
	return nil
}

// NewOrder validates the request and mints a pending order with a fresh id.
// Subtotal is always recomputed from the items; a caller-supplied total is
// kept (discounts), otherwise the subtotal is used.
func NewOrder(r CreateOrderRequest) (Order, error) {
	if err := r.Validate(); err != nil {
		return Order{}, err
	}
	subtotal := 0.0
	for _, it := range r.Items {
		subtotal += float64(it.Quantity) * it.Price
	}
	total := r.TotalAmount
	if total <= 0 {
		total = subtotal
	}
	now := time.Now().UTC()
	return Order{
		ID:          uuid.NewString(),
		Channel:     r.Channel,
		Status:      OrderPending,
		Items:       append([]OrderItem(nil), r.Items...),
		Subtotal:    subtotal,
		TotalAmount: total,
		TableNumber: r.TableNumber,
		CustomerID:  r.CustomerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
	TableReserved TableStatus = "reserved"
)

func (s TableStatus) Valid() bool {
	return s == TableFree || s == TableOccupied || s == TableReserved
}

type Table struct {
	ID             string      `json:"id"`
	Number         int         `json:"number"`
	Capacity       int         `json:"capacity"`
	Status         TableStatus `json:"status"`
	CurrentOrderID *string     `json:"current_order_id,omitempty"`
}

// ValidateTableState enforces the occupancy invariant: occupied requires a
// current order reference, free forbids one.
func ValidateTableState(status TableStatus, orderID *string) error {
	const op = "table.update_status"
	if !status.Valid() {
		return E(KindValidation, op, fmt.Sprintf("invalid table status %q", status))
	}
	if status == TableOccupied && orderID == nil {
		return E(KindValidation, op, "occupied table requires a current order")
	}
	if status == TableFree && orderID != nil {
		return E(KindValidation, op, "free table cannot reference an order")
	}
	return nil
}

type Customer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	LoyaltyPoints int    `json:"loyalty_points"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UpdateCustomerRequest carries the mutable contact fields; nil leaves a
// field untouched. The loyalty balance is never edited through this path.
type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

func NewCustomer(r CreateCustomerRequest) (Customer, error) {
	if r.Name == "" {
		return Customer{}, E(KindValidation, "customer.add", "customer name is required")
	}
	return Customer{
		ID:    uuid.NewString(),
		Name:  r.Name,
		Email: r.Email,
		Phone: r.Phone,
	}, nil
}

// OrderFilter narrows list results; nil fields match everything.
type OrderFilter struct {
	TableNumber *int
	Status      *OrderStatus
}

func (f OrderFilter) Match(o Order) bool {
	if f.TableNumber != nil {
		if o.TableNumber == nil || *o.TableNumber != *f.TableNumber {
			return false
		}
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	return true
}
