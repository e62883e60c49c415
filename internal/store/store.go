// Package store holds the in-process copy of the POS entities. In fallback
// mode it is the authoritative source; in remote mode it is the read cache
// the gateway fills from fetch results and stream reconciliation.
package store

import (
	"sort"
	"sync"

	"tableside/internal/domain"
)

type Store struct {
	mu        sync.RWMutex
	orders    map[string]domain.Order
	tables    map[string]domain.Table
	customers map[string]domain.Customer
}

func New() *Store {
	return &Store{
		orders:    make(map[string]domain.Order),
		tables:    make(map[string]domain.Table),
		customers: make(map[string]domain.Customer),
	}
}

// --- orders ---

func (s *Store) GetOrder(id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.E(domain.KindNotFound, "store.get_order", "order "+id+" not found")
	}
	return o, nil
}

func (s *Store) ListOrders(f domain.OrderFilter) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// PutOrder inserts or replaces the record whole. Reconciliation and
// cache-fill both go through here: last write wins.
func (s *Store) PutOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// UpdateOrder applies mutate to the stored record under the lock. A missing
// id signals not-found and never inserts; an error from mutate leaves the
// record untouched.
func (s *Store) UpdateOrder(id string, mutate func(*domain.Order) error) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.E(domain.KindNotFound, "store.update_order", "order "+id+" not found")
	}
	if err := mutate(&o); err != nil {
		return domain.Order{}, err
	}
	s.orders[id] = o
	return o, nil
}

func (s *Store) DeleteOrder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return domain.E(domain.KindNotFound, "store.delete_order", "order "+id+" not found")
	}
	delete(s.orders, id)
	return nil
}

// --- tables ---

func (s *Store) GetTable(id string) (domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return domain.Table{}, domain.E(domain.KindNotFound, "store.get_table", "table "+id+" not found")
	}
	return t, nil
}

func (s *Store) ListTables() []domain.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *Store) PutTable(t domain.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
}

func (s *Store) UpdateTable(id string, mutate func(*domain.Table) error) (domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return domain.Table{}, domain.E(domain.KindNotFound, "store.update_table", "table "+id+" not found")
	}
	if err := mutate(&t); err != nil {
		return domain.Table{}, err
	}
	s.tables[id] = t
	return t, nil
}

// FindTableByNumber resolves a table by its restaurant-unique number.
func (s *Store) FindTableByNumber(number int) (domain.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tables {
		if t.Number == number {
			return t, true
		}
	}
	return domain.Table{}, false
}

// --- customers ---

func (s *Store) GetCustomer(id string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.E(domain.KindNotFound, "store.get_customer", "customer "+id+" not found")
	}
	return c, nil
}

func (s *Store) PutCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *Store) UpdateCustomer(id string, mutate func(*domain.Customer) error) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.E(domain.KindNotFound, "store.update_customer", "customer "+id+" not found")
	}
	if err := mutate(&c); err != nil {
		return domain.Customer{}, err
	}
	s.customers[id] = c
	return c, nil
}

func (s *Store) FindCustomerByPhone(phone string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.Phone != "" && c.Phone == phone {
			return c, nil
		}
	}
	return domain.Customer{}, domain.E(domain.KindNotFound, "store.find_customer", "no customer with phone "+phone)
}
