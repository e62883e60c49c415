package server

import (
	"context"
	"fmt"
	"time"

	"tableside/internal/domain"
)

// Service owns the backend's business rules. Every order mutation is pushed
// through emit so stream clients (and the optional broker bridge) see it.
type Service struct {
	repo Repository
	emit func(domain.StreamEvent)
}

func NewService(repo Repository, emit func(domain.StreamEvent)) *Service {
	if emit == nil {
		emit = func(domain.StreamEvent) {}
	}
	return &Service{repo: repo, emit: emit}
}

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	o, err := domain.NewOrder(req)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.InsertOrder(ctx, o); err != nil {
		return domain.Order{}, err
	}
	s.occupyTable(ctx, o)
	s.emit(domain.StreamEvent{Type: domain.EventCreated, Order: &o})
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx, f)
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.E(domain.KindValidation, "service.update_order_status",
			fmt.Sprintf("invalid order status %q", status))
	}
	o, err := s.repo.UpdateOrder(ctx, id, func(o *domain.Order) error {
		if !o.Status.CanTransitionTo(status) {
			return domain.E(domain.KindValidation, "service.update_order_status",
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
		s.freeTable(ctx, o)
	}
	s.emit(domain.StreamEvent{Type: domain.EventUpdated, Order: &o})
	return o, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	o, err := s.repo.DeleteOrder(ctx, id)
	if err != nil {
		return err
	}
	s.freeTable(ctx, o)
	s.emit(domain.StreamEvent{Type: domain.EventDeleted, OrderID: id})
	return nil
}

func (s *Service) ListTables(ctx context.Context) ([]domain.Table, error) {
	return s.repo.ListTables(ctx)
}

func (s *Service) UpdateTableStatus(ctx context.Context, id string, status domain.TableStatus, orderID *string) (domain.Table, error) {
	if err := domain.ValidateTableState(status, orderID); err != nil {
		return domain.Table{}, err
	}
	return s.repo.UpdateTable(ctx, id, func(t *domain.Table) error {
		t.Status = status
		t.CurrentOrderID = orderID
		return nil
	})
}

func (s *Service) AddCustomer(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	c, err := domain.NewCustomer(req)
	if err != nil {
		return domain.Customer{}, err
	}
	if err := s.repo.InsertCustomer(ctx, c); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	return s.repo.UpdateCustomer(ctx, id, func(c *domain.Customer) error {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Email != nil {
			c.Email = *req.Email
		}
		if req.Phone != nil {
			c.Phone = *req.Phone
		}
		return nil
	})
}

func (s *Service) FindCustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	if phone == "" {
		return domain.Customer{}, domain.E(domain.KindValidation, "service.find_customer", "phone is required")
	}
	return s.repo.FindCustomerByPhone(ctx, phone)
}

func (s *Service) AwardLoyaltyPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	if points <= 0 {
		return domain.Customer{}, domain.E(domain.KindValidation, "service.award_loyalty", "points must be positive")
	}
	return s.repo.UpdateCustomer(ctx, id, func(c *domain.Customer) error {
		c.LoyaltyPoints += points
		return nil
	})
}

func (s *Service) RedeemReferral(ctx context.Context, id string, points int) (domain.Customer, error) {
	if points <= 0 {
		return domain.Customer{}, domain.E(domain.KindValidation, "service.redeem_referral", "points must be positive")
	}
	return s.repo.UpdateCustomer(ctx, id, func(c *domain.Customer) error {
		if c.LoyaltyPoints < points {
			return domain.E(domain.KindValidation, "service.redeem_referral", "insufficient loyalty balance")
		}
		c.LoyaltyPoints -= points
		return nil
	})
}

func (s *Service) occupyTable(ctx context.Context, o domain.Order) {
	if o.TableNumber == nil {
		return
	}
	t, err := s.repo.FindTableByNumber(ctx, *o.TableNumber)
	if err != nil {
		return
	}
	id := o.ID
	_, _ = s.repo.UpdateTable(ctx, t.ID, func(t *domain.Table) error {
		t.Status = domain.TableOccupied
		t.CurrentOrderID = &id
		return nil
	})
}

func (s *Service) freeTable(ctx context.Context, o domain.Order) {
	if o.TableNumber == nil {
		return
	}
	t, err := s.repo.FindTableByNumber(ctx, *o.TableNumber)
	if err != nil || t.CurrentOrderID == nil || *t.CurrentOrderID != o.ID {
		return
	}
	_, _ = s.repo.UpdateTable(ctx, t.ID, func(t *domain.Table) error {
		t.Status = domain.TableFree
		t.CurrentOrderID = nil
		return nil
	})
}
