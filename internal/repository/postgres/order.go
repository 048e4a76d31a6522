package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/internal/repository"
	"github.com/Tinii1601/DA-SE347/pkg/database"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order, its items, and its payment in one transaction.
// The gateway order code is assigned by the orders table sequence and
// written back onto the order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, p *domain.Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	shippingJSON, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}

	orderQuery := `
		INSERT INTO orders (id, order_number, user_id, status, subtotal, discount_amount, shipping_fee, total_amount, coupon_code, shipping_info, payment_method, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING order_code`

	err = tx.QueryRow(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.Subtotal,
		o.DiscountAmount,
		o.ShippingFee,
		o.TotalAmount,
		o.CouponCode,
		shippingJSON,
		o.PaymentMethod,
		o.Notes,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.OrderCode)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, title, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			o.ID,
			item.ProductID,
			item.Title,
			item.Quantity,
			item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	paymentQuery := `
		INSERT INTO payments (id, order_id, method, status, amount, transaction_id, checkout_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, paymentQuery,
		p.ID,
		o.ID,
		p.Method,
		p.Status,
		p.Amount,
		p.TransactionID,
		p.CheckoutURL,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// orderSelectQuery fetches an order and its items in a single query using
// LEFT JOIN + JSONB_AGG to avoid the N+1 problem.
const orderSelectQuery = `
	SELECT
		o.id, o.order_code, o.order_number, o.user_id, o.status, o.subtotal,
		o.discount_amount, o.shipping_fee, o.total_amount, o.coupon_code,
		o.shipping_info, o.payment_method, o.notes, o.created_at, o.updated_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', oi.id,
					'product_id', oi.product_id,
					'title', oi.title,
					'quantity', oi.quantity,
					'unit_price', oi.unit_price
				) ORDER BY oi.id
			) FILTER (WHERE oi.id IS NOT NULL),
			'[]'::jsonb
		) AS items
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id
	WHERE %s
	GROUP BY o.id`

func (r *OrderRepository) getBy(ctx context.Context, condition string, arg any) (*domain.Order, error) {
	query := fmt.Sprintf(orderSelectQuery, condition)

	var (
		o            domain.Order
		shippingJSON []byte
		itemsJSON    []byte
	)

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&o.ID,
		&o.OrderCode,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.ShippingFee,
		&o.TotalAmount,
		&o.CouponCode,
		&shippingJSON,
		&o.PaymentMethod,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		if err := json.Unmarshal(shippingJSON, &o.ShippingInfo); err != nil {
			return nil, fmt.Errorf("unmarshal shipping info: %w", err)
		}
	}

	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	} else {
		o.Items = []domain.OrderItem{}
	}

	return &o, nil
}

// GetByID retrieves an order by its UUID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getBy(ctx, "o.id = $1", id)
}

// GetByOrderCode retrieves an order by its gateway-visible numeric code.
func (r *OrderRepository) GetByOrderCode(ctx context.Context, orderCode int64) (*domain.Order, error) {
	return r.getBy(ctx, "o.order_code = $1", orderCode)
}

// List returns orders matching the filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, order_code, order_number, user_id, status, subtotal, discount_amount, shipping_fee, total_amount, coupon_code, shipping_info, payment_method, notes, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
		)

		if err := rows.Scan(
			&o.ID,
			&o.OrderCode,
			&o.OrderNumber,
			&o.UserID,
			&o.Status,
			&o.Subtotal,
			&o.DiscountAmount,
			&o.ShippingFee,
			&o.TotalAmount,
			&o.CouponCode,
			&shippingJSON,
			&o.PaymentMethod,
			&o.Notes,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
			if err := json.Unmarshal(shippingJSON, &o.ShippingInfo); err != nil {
				return nil, 0, fmt.Errorf("unmarshal shipping info: %w", err)
			}
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for all returned orders in one query.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, title, quantity, unit_price
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY id`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var (
				item    domain.OrderItem
				orderID string
			)
			if err := itemRows.Scan(
				&item.ID,
				&orderID,
				&item.ProductID,
				&item.Title,
				&item.Quantity,
				&item.UnitPrice,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item: %w", err)
			}
			itemsByOrderID[orderID] = append(itemsByOrderID[orderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate order item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// ConfirmPaid transitions order to confirmed and payment to completed,
// guarded on both still being pending so the webhook and poll channels can
// race safely. Reports whether this call performed the transition.
func (r *OrderRepository) ConfirmPaid(ctx context.Context, orderID, transactionID string, paidAt time.Time) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderTag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4`,
		orderID, domain.OrderStatusConfirmed, paidAt, domain.OrderStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("confirm order: %w", err)
	}

	if orderTag.RowsAffected() == 0 {
		// Already confirmed (or canceled) by the other channel.
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE payments
		SET status = $2, transaction_id = COALESCE(NULLIF($3, ''), transaction_id), paid_at = $4, updated_at = $4
		WHERE order_id = $1 AND status = $5`,
		orderID, domain.PaymentStatusCompleted, transactionID, paidAt, domain.PaymentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("complete payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	return true, nil
}

// Cancel cancels a pending order owned by userID and its payment.
func (r *OrderRepository) Cancel(ctx context.Context, orderID, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	orderTag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = $5`,
		orderID, userID, domain.OrderStatusCanceled, now, domain.OrderStatusPending,
	)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	if orderTag.RowsAffected() == 0 {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check order status: %w", err)
		}
		return apperrors.Conflict(fmt.Sprintf("order is %s and can no longer be canceled", status))
	}

	_, err = tx.Exec(ctx, `
		UPDATE payments
		SET status = $2, updated_at = $3
		WHERE order_id = $1 AND status = $4`,
		orderID, domain.PaymentStatusCanceled, now, domain.PaymentStatusPending,
	)
	if err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
