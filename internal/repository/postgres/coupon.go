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

// CouponRepository implements repository.CouponRepository using PostgreSQL.
type CouponRepository struct {
	pool database.DBTX
}

// NewCouponRepository creates a PostgreSQL-backed coupon repository.
func NewCouponRepository(pool database.DBTX) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByCode retrieves a coupon by its unique code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, code, discount_type, value, min_order_value, max_discount, valid_from, valid_to, is_active, max_uses, used_count, created_at, updated_at
		FROM coupons
		WHERE code = $1`

	var c domain.Coupon
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&c.Value,
		&c.MinOrderValue,
		&c.MaxDiscount,
		&c.ValidFrom,
		&c.ValidTo,
		&c.IsActive,
		&c.MaxUses,
		&c.UsedCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}

	return &c, nil
}

// Redeem increments used_count only while it is below max_uses. The guard in
// the WHERE clause makes concurrent redemptions near the cap serialize at the
// database, so usage can never exceed the cap.
func (r *CouponRepository) Redeem(ctx context.Context, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = $2
		WHERE code = $1 AND is_active AND used_count < max_uses`,
		code, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("redeem coupon: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
