package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/domain"
)

func orderWith(id string, table int, status domain.OrderStatus, created time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		Channel:     domain.ChannelDineIn,
		Status:      status,
		TableNumber: &table,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestOrderCRUD(t *testing.T) {
	s := New()
	base := time.Now().UTC()

	s.PutOrder(orderWith("b", 2, domain.OrderPending, base.Add(time.Second)))
	s.PutOrder(orderWith("a", 1, domain.OrderPending, base))

	got, err := s.GetOrder("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	// list is ordered by creation time
	all := s.ListOrders(domain.OrderFilter{})
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)

	one := 1
	byTable := s.ListOrders(domain.OrderFilter{TableNumber: &one})
	require.Len(t, byTable, 1)
	assert.Equal(t, "a", byTable[0].ID)

	require.NoError(t, s.DeleteOrder("a"))
	assert.Len(t, s.ListOrders(domain.OrderFilter{}), 1)
}

func TestOrderMissingIDSignalsNotFound(t *testing.T) {
	s := New()

	_, err := s.GetOrder("ghost")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = s.UpdateOrder("ghost", func(o *domain.Order) error { return nil })
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	// update on a missing id must not insert
	assert.Empty(t, s.ListOrders(domain.OrderFilter{}))

	err = s.DeleteOrder("ghost")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestUpdateOrderMutateErrorLeavesRecord(t *testing.T) {
	s := New()
	s.PutOrder(orderWith("a", 1, domain.OrderPending, time.Now()))

	boom := domain.E(domain.KindValidation, "test", "rejected")
	_, err := s.UpdateOrder("a", func(o *domain.Order) error {
		o.Status = domain.OrderCompleted
		return boom
	})
	require.Error(t, err)

	got, err := s.GetOrder("a")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, got.Status)
}

func TestTables(t *testing.T) {
	s := New()
	s.PutTable(domain.Table{ID: "t2", Number: 2, Capacity: 4, Status: domain.TableFree})
	s.PutTable(domain.Table{ID: "t1", Number: 1, Capacity: 2, Status: domain.TableFree})

	tables := s.ListTables()
	require.Len(t, tables, 2)
	assert.Equal(t, 1, tables[0].Number)

	got, ok := s.FindTableByNumber(2)
	require.True(t, ok)
	assert.Equal(t, "t2", got.ID)
	_, ok = s.FindTableByNumber(9)
	assert.False(t, ok)

	_, err := s.UpdateTable("missing", func(*domain.Table) error { return nil })
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCustomers(t *testing.T) {
	s := New()
	s.PutCustomer(domain.Customer{ID: "c1", Name: "Dana", Phone: "555-0101", LoyaltyPoints: 10})

	got, err := s.FindCustomerByPhone("555-0101")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	_, err = s.FindCustomerByPhone("555-9999")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	// an empty phone on file never matches an empty query
	s.PutCustomer(domain.Customer{ID: "c2", Name: "NoPhone"})
	_, err = s.FindCustomerByPhone("")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	updated, err := s.UpdateCustomer("c1", func(c *domain.Customer) error {
		c.LoyaltyPoints += 5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.LoyaltyPoints)
}
