package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/pkg/database"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	pool database.DBTX
}

// NewAddressRepository creates a PostgreSQL-backed address repository.
func NewAddressRepository(pool database.DBTX) *AddressRepository {
	return &AddressRepository{pool: pool}
}

const addressColumns = `id, user_id, full_name, phone, address_line, ward, district, city, is_default, created_at`

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.FullName,
		&a.Phone,
		&a.AddressLine,
		&a.Ward,
		&a.District,
		&a.City,
		&a.IsDefault,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// lookup finds an address matching every field exactly.
func (r *AddressRepository) lookup(ctx context.Context, addr *domain.Address) (*domain.Address, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM addresses
		WHERE user_id = $1 AND full_name = $2 AND phone = $3 AND address_line = $4 AND ward = $5 AND district = $6 AND city = $7`,
		addressColumns,
	)
	a, err := scanAddress(r.pool.QueryRow(ctx, query,
		addr.UserID, addr.FullName, addr.Phone, addr.AddressLine, addr.Ward, addr.District, addr.City,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}
	return a, nil
}

// GetOrCreate deduplicates by exact field match: lookup, insert on absence,
// and on a unique violation from a concurrent duplicate submission, re-lookup
// and use the winner's record.
func (r *AddressRepository) GetOrCreate(ctx context.Context, addr *domain.Address) (*domain.Address, error) {
	existing, err := r.lookup(ctx, addr)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	created := *addr
	created.ID = uuid.New().String()
	created.CreatedAt = time.Now().UTC()

	_, err = r.pool.Exec(ctx, `
		INSERT INTO addresses (id, user_id, full_name, phone, address_line, ward, district, city, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		created.ID, created.UserID, created.FullName, created.Phone,
		created.AddressLine, created.Ward, created.District, created.City,
		created.IsDefault, created.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// A concurrent request inserted the same address first.
			return r.lookup(ctx, addr)
		}
		return nil, fmt.Errorf("insert address: %w", err)
	}

	return &created, nil
}

// GetByID retrieves an address owned by userID.
func (r *AddressRepository) GetByID(ctx context.Context, id, userID string) (*domain.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE id = $1 AND user_id = $2`, addressColumns)
	a, err := scanAddress(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}
	return a, nil
}

// ListByUser returns the user's addresses, default first, newest next.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`,
		addressColumns,
	)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		addresses = append(addresses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}

	return addresses, nil
}
