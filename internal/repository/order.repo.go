package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository interface {
	// UpsertUser inserts or refreshes a Telegram identity; duplicates
	// never error, mutable fields are last-write-wins.
	UpsertUser(ctx context.Context, user *domain.TelegramUser) error
	// InsertOrder persists the order header and every item atomically
	// and returns the assigned id.
	InsertOrder(ctx context.Context, order *domain.Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	// ListOrders returns orders newest first; limit <= 0 means all.
	ListOrders(ctx context.Context, limit int) ([]*domain.Order, error)
	CountOrders(ctx context.Context) (int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	// ClearAllOrders deletes everything and reports the removed count.
	// Caller is responsible for the super-admin gate; the store trusts
	// its caller.
	ClearAllOrders(ctx context.Context) (int64, error)
}

type orderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepo(db *pgxpool.Pool) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) UpsertUser(ctx context.Context, user *domain.TelegramUser) error {
	if user == nil || user.ID == 0 {
		return nil // sentinel identity, nothing to record
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, username, is_premium, language_code)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			first_name=EXCLUDED.first_name,
			last_name=EXCLUDED.last_name,
			username=EXCLUDED.username,
			is_premium=EXCLUDED.is_premium,
			language_code=EXCLUDED.language_code,
			updated_at=now()
	`, user.ID, user.FirstName, user.LastName, user.Username, user.IsPremium, user.LanguageCode)
	if err != nil {
		return fmt.Errorf("%w: upsert user %d: %v", xerrors.ErrPersistence, user.ID, err)
	}
	return nil
}

func (r *orderRepo) InsertOrder(ctx context.Context, order *domain.Order) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", xerrors.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, user_name, username, total_price, platform, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, order.User.Key(), order.User.DisplayName(), order.User.Username,
		order.Total, order.Platform, order.Status,
	).Scan(&orderID, &order.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("%w: insert order (pg code %s): %v",
			xerrors.ErrPersistence, xerrors.ParsePGErrorCode(err), err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_services (order_id, service_id, service_name, service_price)
			VALUES ($1,$2,$3,$4)
		`, orderID, item.ID, item.Name, item.Price)
		if err != nil {
			return 0, fmt.Errorf("%w: insert order item %q: %v", xerrors.ErrPersistence, item.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", xerrors.ErrPersistence, err)
	}

	order.ID = orderID
	return orderID, nil
}

func (r *orderRepo) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, user_name, username, total_price, platform, status, created_at
		FROM orders WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, user_name, username, total_price, platform, status, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", xerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", xerrors.ErrPersistence, err)
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepo) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count orders: %v", xerrors.ErrPersistence, err)
	}
	return n, nil
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("%w: update status: %v", xerrors.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *orderRepo) ClearAllOrders(ctx context.Context) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", xerrors.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM order_services`); err != nil {
		return 0, fmt.Errorf("%w: clear order items: %v", xerrors.ErrPersistence, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM orders`)
	if err != nil {
		return 0, fmt.Errorf("%w: clear orders: %v", xerrors.ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", xerrors.ErrPersistence, err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order    domain.Order
		userID   string
		userName string
		username string
	)
	err := row.Scan(&order.ID, &userID, &userName, &username,
		&order.Total, &order.Platform, &order.Status, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan order: %v", xerrors.ErrPersistence, err)
	}

	order.User = &domain.TelegramUser{FirstName: userName, Username: username}
	if id, err := strconv.ParseInt(userID, 10, 64); err == nil {
		order.User.ID = id
	}
	return &order, nil
}

func (r *orderRepo) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.Query(ctx, `
		SELECT service_id, service_name, service_price
		FROM order_services WHERE order_id = $1 ORDER BY id
	`, order.ID)
	if err != nil {
		return fmt.Errorf("%w: load items for order %d: %v", xerrors.ErrPersistence, order.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ServiceItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price); err != nil {
			return fmt.Errorf("%w: scan item: %v", xerrors.ErrPersistence, err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}
