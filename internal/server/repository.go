package server

import (
	"context"

	"tableside/internal/domain"
	"tableside/internal/store"
)

// Repository is the backend's persistence boundary. The memory implementation
// serves development and tests; the pgx implementation is selected when a
// database is configured.
type Repository interface {
	InsertOrder(ctx context.Context, o domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, id string, mutate func(*domain.Order) error) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) (domain.Order, error)

	InsertTable(ctx context.Context, t domain.Table) error
	ListTables(ctx context.Context) ([]domain.Table, error)
	UpdateTable(ctx context.Context, id string, mutate func(*domain.Table) error) (domain.Table, error)
	FindTableByNumber(ctx context.Context, number int) (domain.Table, error)

	InsertCustomer(ctx context.Context, c domain.Customer) error
	GetCustomer(ctx context.Context, id string) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, mutate func(*domain.Customer) error) (domain.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (domain.Customer, error)
}

// MemoryRepository adapts the entity store to the repository contract.
type MemoryRepository struct {
	s *store.Store
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{s: store.New()}
}

func (m *MemoryRepository) InsertOrder(_ context.Context, o domain.Order) error {
	m.s.PutOrder(o)
	return nil
}

func (m *MemoryRepository) GetOrder(_ context.Context, id string) (domain.Order, error) {
	return m.s.GetOrder(id)
}

func (m *MemoryRepository) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	return m.s.ListOrders(f), nil
}

func (m *MemoryRepository) UpdateOrder(_ context.Context, id string, mutate func(*domain.Order) error) (domain.Order, error) {
	return m.s.UpdateOrder(id, mutate)
}

func (m *MemoryRepository) DeleteOrder(_ context.Context, id string) (domain.Order, error) {
	o, err := m.s.GetOrder(id)
	if err != nil {
		return domain.Order{}, err
	}
	return o, m.s.DeleteOrder(id)
}

func (m *MemoryRepository) InsertTable(_ context.Context, t domain.Table) error {
	m.s.PutTable(t)
	return nil
}

func (m *MemoryRepository) ListTables(_ context.Context) ([]domain.Table, error) {
	return m.s.ListTables(), nil
}

func (m *MemoryRepository) UpdateTable(_ context.Context, id string, mutate func(*domain.Table) error) (domain.Table, error) {
	return m.s.UpdateTable(id, mutate)
}

func (m *MemoryRepository) FindTableByNumber(_ context.Context, number int) (domain.Table, error) {
	t, ok := m.s.FindTableByNumber(number)
	if !ok {
		return domain.Table{}, domain.E(domain.KindNotFound, "repo.find_table", "no such table number")
	}
	return t, nil
}

func (m *MemoryRepository) InsertCustomer(_ context.Context, c domain.Customer) error {
	m.s.PutCustomer(c)
	return nil
}

func (m *MemoryRepository) GetCustomer(_ context.Context, id string) (domain.Customer, error) {
	return m.s.GetCustomer(id)
}

func (m *MemoryRepository) UpdateCustomer(_ context.Context, id string, mutate func(*domain.Customer) error) (domain.Customer, error) {
	return m.s.UpdateCustomer(id, mutate)
}

func (m *MemoryRepository) FindCustomerByPhone(_ context.Context, phone string) (domain.Customer, error) {
	return m.s.FindCustomerByPhone(phone)
}
