package repository

import (
	"context"
	"time"

	"github.com/Tinii1601/DA-SE347/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *string
	Status  *string
	Page    int
	PerPage int
}

// OrderRepository persists orders, their items, and the attached payment.
type OrderRepository interface {
	// Create inserts the order, its items, and its payment atomically. The
	// order's gateway-visible numeric code is assigned by the store and set
	// on the order before returning.
	Create(ctx context.Context, order *domain.Order, payment *domain.Payment) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByOrderCode retrieves an order by its gateway-visible numeric code.
	GetByOrderCode(ctx context.Context, orderCode int64) (*domain.Order, error)

	// List returns orders matching the filter plus the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// ConfirmPaid transitions the order to confirmed and its payment to
	// completed, guarded on both still being pending. It reports whether
	// this call performed the transition; false means another channel got
	// there first, which is not an error.
	ConfirmPaid(ctx context.Context, orderID, transactionID string, paidAt time.Time) (bool, error)

	// Cancel cancels a pending order owned by userID along with its
	// payment. Returns ErrNotFound if the order does not exist for that
	// user and ErrConflict if it is no longer pending.
	Cancel(ctx context.Context, orderID, userID string) error
}

// PaymentRepository reads and updates payment records outside the
// order-confirmation path.
type PaymentRepository interface {
	// GetByOrderID retrieves the payment attached to an order.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// SetCheckoutURL stores the hosted payment link and gateway transaction
	// reference once the link has been created.
	SetCheckoutURL(ctx context.Context, orderID, checkoutURL, transactionID string) error

	// SetTransactionID records a transfer reference on a still-pending
	// payment, e.g. a customer-reported bank transfer awaiting manual
	// verification.
	SetTransactionID(ctx context.Context, orderID, transactionID string) error
}

// CouponRepository persists coupons.
type CouponRepository interface {
	// GetByCode retrieves a coupon by its unique code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// Redeem increments used_count if and only if the cap has not been
	// reached, reporting whether the redemption succeeded. The conditional
	// increment closes the race between concurrent checkouts near the cap.
	Redeem(ctx context.Context, code string) (bool, error)
}

// AddressRepository persists user shipping addresses.
type AddressRepository interface {
	// GetOrCreate returns an existing address matching all fields exactly,
	// creating it when absent. Concurrent duplicate submissions resolve to
	// the same record.
	GetOrCreate(ctx context.Context, addr *domain.Address) (*domain.Address, error)

	// GetByID retrieves an address owned by userID.
	GetByID(ctx context.Context, id, userID string) (*domain.Address, error)

	// ListByUser returns the user's addresses, default first.
	ListByUser(ctx context.Context, userID string) ([]domain.Address, error)
}

// CatalogRepository is the read-only view of the product catalog the core
// consumes.
type CatalogRepository interface {
	// GetProduct returns the product's price and active flags, or
	// ErrNotFound.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// CartStore holds session carts. Keys are session tokens for anonymous
// visitors or user IDs for signed-in customers.
type CartStore interface {
	// Get returns the cart for key, or an empty cart if none exists.
	Get(ctx context.Context, key string) (*domain.Cart, error)

	// Save persists the cart and refreshes its TTL.
	Save(ctx context.Context, key string, cart *domain.Cart) error

	// Delete drops the cart.
	Delete(ctx context.Context, key string) error
}
