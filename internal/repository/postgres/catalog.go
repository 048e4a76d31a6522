package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/pkg/database"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// CatalogRepository is the read-only product view the cart and checkout
// consume. The catalog tables themselves are maintained by the storefront's
// catalog subsystem.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a PostgreSQL-backed catalog read model.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetProduct returns the product's pricing and active flags, joined with its
// category's active flag.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT p.id, p.title, p.price, COALESCE(p.discount_price, 0), p.is_active, c.is_active
		FROM products p
		JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Title,
		&p.Price,
		&p.DiscountPrice,
		&p.IsActive,
		&p.CategoryActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}
