// Package remote talks to the POS backend over HTTP. Errors come back as
// typed domain values so the gateway can dispatch on them instead of on
// transport exceptions: network trouble is unreachable, everything else maps
// from the response status.
package remote

import (
	"context"

	"tableside/internal/domain"
)

// Client is the surface the gateway dispatches remote operations to.
// HTTPClient is the production implementation; tests substitute fakes.
type Client interface {
	// Ping is the prober's lightweight reachability check.
	Ping(ctx context.Context) error

	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error

	ListTables(ctx context.Context) ([]domain.Table, error)
	UpdateTableStatus(ctx context.Context, id string, status domain.TableStatus, orderID *string) (domain.Table, error)

	AddCustomer(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (domain.Customer, error)
	AwardLoyaltyPoints(ctx context.Context, id string, points int) (domain.Customer, error)
	RedeemReferral(ctx context.Context, id string, points int) (domain.Customer, error)
}
