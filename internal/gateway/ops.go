package gateway

import (
	"context"
	"fmt"
	"time"

	"tableside/internal/domain"
)

func (g *Gateway) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	return dispatch(ctx, g, "gateway.list_orders",
		func(ctx context.Context) ([]domain.Order, error) { return g.remote.ListOrders(ctx, f) },
		func() ([]domain.Order, error) { return g.store.ListOrders(f), nil },
		func(orders []domain.Order) {
			for _, o := range orders {
				g.store.PutOrder(o)
			}
		})
}

func (g *Gateway) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return dispatch(ctx, g, "gateway.get_order",
		func(ctx context.Context) (domain.Order, error) { return g.remote.GetOrder(ctx, id) },
		func() (domain.Order, error) { return g.store.GetOrder(id) },
		func(o domain.Order) { g.store.PutOrder(o) })
}

func (g *Gateway) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}
	return dispatch(ctx, g, "gateway.create_order",
		func(ctx context.Context) (domain.Order, error) { return g.remote.CreateOrder(ctx, req) },
		func() (domain.Order, error) {
			o, err := domain.NewOrder(req)
			if err != nil {
				return domain.Order{}, err
			}
			g.store.PutOrder(o)
			g.occupyTable(o)
			return o, nil
		},
		func(o domain.Order) { g.store.PutOrder(o) })
}

func (g *Gateway) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.E(domain.KindValidation, "gateway.update_order_status",
			fmt.Sprintf("invalid order status %q", status))
	}
	return dispatch(ctx, g, "gateway.update_order_status",
		func(ctx context.Context) (domain.Order, error) { return g.remote.UpdateOrderStatus(ctx, id, status) },
		func() (domain.Order, error) {
			o, err := g.store.UpdateOrder(id, func(o *domain.Order) error {
				if !o.Status.CanTransitionTo(status) {
					return domain.E(domain.KindValidation, "gateway.update_order_status",
						fmt.Sprintf("cannot transition order from %s to %s", o.Status, status))
				}
				o.Status = status
				o.UpdatedAt = time.Now().UTC()
				return nil
			})
			if err != nil {
				return domain.Order{}, err
			}
			if status != domain.OrderPending {
				g.freeTable(o)
			}
			return o, nil
		},
		func(o domain.Order) { g.store.PutOrder(o) })
}

func (g *Gateway) DeleteOrder(ctx context.Context, id string) error {
	_, err := dispatch(ctx, g, "gateway.delete_order",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, g.remote.DeleteOrder(ctx, id)
		},
		func() (struct{}, error) {
			o, err := g.store.GetOrder(id)
			if err != nil {
				return struct{}{}, err
			}
			g.freeTable(o)
			return struct{}{}, g.store.DeleteOrder(id)
		},
		func(struct{}) {
			_ = g.store.DeleteOrder(id)
		})
	return err
}

func (g *Gateway) ListTables(ctx context.Context) ([]domain.Table, error) {
	return dispatch(ctx, g, "gateway.list_tables",
		func(ctx context.Context) ([]domain.Table, error) { return g.remote.ListTables(ctx) },
		func() ([]domain.Table, error) { return g.store.ListTables(), nil },
		func(tables []domain.Table) {
			for _, t := range tables {
				g.store.PutTable(t)
			}
		})
}

func (g *Gateway) UpdateTableStatus(ctx context.Context, id string, status domain.TableStatus, orderID *string) (domain.Table, error) {
	if err := domain.ValidateTableState(status, orderID); err != nil {
		return domain.Table{}, err
	}
	return dispatch(ctx, g, "gateway.update_table_status",
		func(ctx context.Context) (domain.Table, error) {
			return g.remote.UpdateTableStatus(ctx, id, status, orderID)
		},
		func() (domain.Table, error) {
			return g.store.UpdateTable(id, func(t *domain.Table) error {
				t.Status = status
				t.CurrentOrderID = orderID
				return nil
			})
		},
		func(t domain.Table) { g.store.PutTable(t) })
}

func (g *Gateway) AddCustomer(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	return dispatch(ctx, g, "gateway.add_customer",
		func(ctx context.Context) (domain.Customer, error) { return g.remote.AddCustomer(ctx, req) },
		func() (domain.Customer, error) {
			c, err := domain.NewCustomer(req)
			if err != nil {
				return domain.Customer{}, err
			}
			g.store.PutCustomer(c)
			return c, nil
		},
		func(c domain.Customer) { g.store.PutCustomer(c) })
}

func (g *Gateway) UpdateCustomer(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	return dispatch(ctx, g, "gateway.update_customer",
		func(ctx context.Context) (domain.Customer, error) { return g.remote.UpdateCustomer(ctx, id, req) },
		func() (domain.Customer, error) {
			return g.store.UpdateCustomer(id, func(c *domain.Customer) error {
				applyCustomerUpdate(c, req)
				return nil
			})
		},
		func(c domain.Customer) { g.store.PutCustomer(c) })
}

func (g *Gateway) FindCustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	if phone == "" {
		return domain.Customer{}, domain.E(domain.KindValidation, "gateway.find_customer", "phone is required")
	}
	return dispatch(ctx, g, "gateway.find_customer",
		func(ctx context.Context) (domain.Customer, error) { return g.remote.FindCustomerByPhone(ctx, phone) },
		func() (domain.Customer, error) { return g.store.FindCustomerByPhone(phone) },
		func(c domain.Customer) { g.store.PutCustomer(c) })
}

func (g *Gateway) AwardLoyaltyPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	if points <= 0 {
		return domain.Customer{}, domain.E(domain.KindValidation, "gateway.award_loyalty", "points must be positive")
	}
	return dispatch(ctx, g, "gateway.award_loyalty",
		func(ctx context.Context) (domain.Customer, error) { return g.remote.AwardLoyaltyPoints(ctx, id, points) },
		func() (domain.Customer, error) {
			return g.store.UpdateCustomer(id, func(c *domain.Customer) error {
				c.LoyaltyPoints += points
				return nil
			})
		},
		func(c domain.Customer) { g.store.PutCustomer(c) })
}

// RedeemReferral is the one path allowed to lower a loyalty balance.
func (g *Gateway) RedeemReferral(ctx context.Context, id string, points int) (domain.Customer, error) {
	if points <= 0 {
		return domain.Customer{}, domain.E(domain.KindValidation, "gateway.redeem_referral", "points must be positive")
	}
	return dispatch(ctx, g, "gateway.redeem_referral",
		func(ctx context.Context) (domain.Customer, error) { return g.remote.RedeemReferral(ctx, id, points) },
		func() (domain.Customer, error) {
			return g.store.UpdateCustomer(id, func(c *domain.Customer) error {
				if c.LoyaltyPoints < points {
					return domain.E(domain.KindValidation, "gateway.redeem_referral", "insufficient loyalty balance")
				}
				c.LoyaltyPoints -= points
				return nil
			})
		},
		func(c domain.Customer) { g.store.PutCustomer(c) })
}

func applyCustomerUpdate(c *domain.Customer, req domain.UpdateCustomerRequest) {
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
}

// occupyTable links a fresh order to its table in fallback mode; a table
// that was never seeded locally is simply skipped.
func (g *Gateway) occupyTable(o domain.Order) {
	if o.TableNumber == nil {
		return
	}
	t, ok := g.store.FindTableByNumber(*o.TableNumber)
	if !ok {
		return
	}
	id := o.ID
	_, _ = g.store.UpdateTable(t.ID, func(t *domain.Table) error {
		t.Status = domain.TableOccupied
		t.CurrentOrderID = &id
		return nil
	})
}

func (g *Gateway) freeTable(o domain.Order) {
	if o.TableNumber == nil {
		return
	}
	t, ok := g.store.FindTableByNumber(*o.TableNumber)
	if !ok || t.CurrentOrderID == nil || *t.CurrentOrderID != o.ID {
		return
	}
	_, _ = g.store.UpdateTable(t.ID, func(t *domain.Table) error {
		t.Status = domain.TableFree
		t.CurrentOrderID = nil
		return nil
	})
}
