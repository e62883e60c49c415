package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableside/internal/common/config"
	"tableside/internal/domain"
)

// PostgresRepository persists the backend's entities in Postgres. Order line
// items travel as a jsonb column; the row is always written whole, matching
// the full-record semantics of the stream events built from it.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func ConnectPostgres(ctx context.Context, cfg config.DB) (*PostgresRepository, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() { r.pool.Close() }

const orderColumns = "id, channel, status, items, subtotal, total_amount, table_number, customer_id, created_at, updated_at"

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var items []byte
	err := row.Scan(&o.ID, &o.Channel, &o.Status, &items, &o.Subtotal, &o.TotalAmount,
		&o.TableNumber, &o.CustomerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.E(domain.KindNotFound, "repo.get_order", "order not found")
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) InsertOrder(ctx context.Context, o domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.Channel, o.Status, items, o.Subtotal, o.TotalAmount,
		o.TableNumber, o.CustomerID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	return scanOrder(row)
}

func (r *PostgresRepository) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	q := "SELECT " + orderColumns + " FROM orders WHERE 1=1"
	args := []any{}
	if f.TableNumber != nil {
		args = append(args, *f.TableNumber)
		q += fmt.Sprintf(" AND table_number = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += " ORDER BY created_at, id"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateOrder(ctx context.Context, id string, mutate func(*domain.Order) error) (domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
	o, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, err
	}
	if err := mutate(&o); err != nil {
		return domain.Order{}, err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode order items: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE orders SET channel=$2, status=$3, items=$4, subtotal=$5, total_amount=$6,
			table_number=$7, customer_id=$8, updated_at=$9
		WHERE id = $1`,
		o.ID, o.Channel, o.Status, items, o.Subtotal, o.TotalAmount,
		o.TableNumber, o.CustomerID, o.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) DeleteOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	tag, err := r.pool.Exec(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Order{}, domain.E(domain.KindNotFound, "repo.delete_order", "order not found")
	}
	return o, nil
}

func (r *PostgresRepository) InsertTable(ctx context.Context, t domain.Table) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tables (id, number, capacity, status, current_order_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (number) DO NOTHING`,
		t.ID, t.Number, t.Capacity, t.Status, t.CurrentOrderID)
	if err != nil {
		return fmt.Errorf("insert table: %w", err)
	}
	return nil
}

func scanTable(row pgx.Row) (domain.Table, error) {
	var t domain.Table
	err := row.Scan(&t.ID, &t.Number, &t.Capacity, &t.Status, &t.CurrentOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Table{}, domain.E(domain.KindNotFound, "repo.get_table", "table not found")
		}
		return domain.Table{}, fmt.Errorf("scan table: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) ListTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, number, capacity, status, current_order_id FROM tables ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateTable(ctx context.Context, id string, mutate func(*domain.Table) error) (domain.Table, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Table{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTable(tx.QueryRow(ctx,
		"SELECT id, number, capacity, status, current_order_id FROM tables WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return domain.Table{}, err
	}
	if err := mutate(&t); err != nil {
		return domain.Table{}, err
	}
	_, err = tx.Exec(ctx,
		"UPDATE tables SET status=$2, current_order_id=$3 WHERE id = $1",
		t.ID, t.Status, t.CurrentOrderID)
	if err != nil {
		return domain.Table{}, fmt.Errorf("update table: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Table{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) FindTableByNumber(ctx context.Context, number int) (domain.Table, error) {
	return scanTable(r.pool.QueryRow(ctx,
		"SELECT id, number, capacity, status, current_order_id FROM tables WHERE number = $1", number))
}

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.LoyaltyPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, domain.E(domain.KindNotFound, "repo.get_customer", "customer not found")
		}
		return domain.Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) InsertCustomer(ctx context.Context, c domain.Customer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, name, email, phone, loyalty_points)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Email, c.Phone, c.LoyaltyPoints)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		"SELECT id, name, email, phone, loyalty_points FROM customers WHERE id = $1", id))
}

func (r *PostgresRepository) UpdateCustomer(ctx context.Context, id string, mutate func(*domain.Customer) error) (domain.Customer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := scanCustomer(tx.QueryRow(ctx,
		"SELECT id, name, email, phone, loyalty_points FROM customers WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return domain.Customer{}, err
	}
	if err := mutate(&c); err != nil {
		return domain.Customer{}, err
	}
	_, err = tx.Exec(ctx,
		"UPDATE customers SET name=$2, email=$3, phone=$4, loyalty_points=$5 WHERE id = $1",
		c.ID, c.Name, c.Email, c.Phone, c.LoyaltyPoints)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Customer{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) FindCustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		"SELECT id, name, email, phone, loyalty_points FROM customers WHERE phone = $1", phone))
}
