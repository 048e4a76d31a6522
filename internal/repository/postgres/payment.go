package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/pkg/database"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// GetByOrderID retrieves the payment attached to an order.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `
		SELECT id, order_id, method, status, amount, transaction_id, checkout_url, paid_at, created_at, updated_at
		FROM payments
		WHERE order_id = $1`

	var p domain.Payment
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&p.ID,
		&p.OrderID,
		&p.Method,
		&p.Status,
		&p.Amount,
		&p.TransactionID,
		&p.CheckoutURL,
		&p.PaidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	return &p, nil
}

// SetCheckoutURL stores the hosted payment link and gateway transaction
// reference on the payment record.
func (r *PaymentRepository) SetCheckoutURL(ctx context.Context, orderID, checkoutURL, transactionID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET checkout_url = $2, transaction_id = $3, updated_at = $4
		WHERE order_id = $1`,
		orderID, checkoutURL, transactionID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set checkout url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetTransactionID records a transfer reference on a still-pending payment.
// Completed or canceled payments are left untouched.
func (r *PaymentRepository) SetTransactionID(ctx context.Context, orderID, transactionID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET transaction_id = $2, updated_at = $3
		WHERE order_id = $1 AND status = 'pending'`,
		orderID, transactionID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set transaction id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
