package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/internal/event"
	"github.com/Tinii1601/DA-SE347/internal/repository"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// ErrCartEmpty is returned when checkout is attempted with no purchasable
// selected items. The storefront sends the customer back to the cart.
var ErrCartEmpty = apperrors.InvalidInput("cart has no selected items")

// CheckoutService turns a session cart into a persisted order with its
// payment record.
type CheckoutService struct {
	carts       repository.CartStore
	catalog     repository.CatalogRepository
	coupons     repository.CouponRepository
	orders      repository.OrderRepository
	addresses   repository.AddressRepository
	producer    *event.Producer
	shippingFee int64
	logger      *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartStore,
	catalog repository.CatalogRepository,
	coupons repository.CouponRepository,
	orders repository.OrderRepository,
	addresses repository.AddressRepository,
	producer *event.Producer,
	shippingFee int64,
	logger *slog.Logger,
) *CheckoutService {
	if shippingFee <= 0 {
		shippingFee = domain.DefaultShippingFee
	}
	return &CheckoutService{
		carts:       carts,
		catalog:     catalog,
		coupons:     coupons,
		orders:      orders,
		addresses:   addresses,
		producer:    producer,
		shippingFee: shippingFee,
		logger:      logger,
	}
}

// CouponResult is the outcome of a coupon preview. A rejected coupon is a
// normal result with Success false, not an error; the storefront shows the
// message inline.
type CouponResult struct {
	Success  bool   `json:"success"`
	Discount int64  `json:"discount"`
	NewTotal int64  `json:"new_total"`
	Message  string `json:"message"`
}

// ApplyCoupon previews a coupon against the cart's selected subtotal and,
// when it applies, stores the code on the cart for checkout to redeem. The
// usage count is not touched here; only a committed checkout consumes a use.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, sessionKey, code string) (*CouponResult, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	cart, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	items, err := selectedOrderItems(ctx, s.catalog, cart)
	if err != nil {
		return nil, err
	}
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal()
	}

	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &CouponResult{Success: false, Message: "coupon code does not exist"}, nil
		}
		return nil, err
	}
	if !coupon.IsValid(time.Now().UTC()) {
		return &CouponResult{Success: false, Message: "coupon is expired or no longer available"}, nil
	}

	discount := coupon.CalculateDiscount(subtotal, s.shippingFee)
	if discount == 0 {
		return &CouponResult{
			Success: false,
			Message: fmt.Sprintf("order must be at least %d to use this coupon", coupon.MinOrderValue),
		}, nil
	}
	discount = clampDiscount(discount, subtotal, s.shippingFee)

	cart.CouponCode = coupon.Code
	if err := s.carts.Save(ctx, sessionKey, cart); err != nil {
		return nil, err
	}

	return &CouponResult{
		Success:  true,
		Discount: discount,
		NewTotal: subtotal - discount + s.shippingFee,
		Message:  "coupon applied",
	}, nil
}

// RemoveCoupon detaches the coupon from the cart.
func (s *CheckoutService) RemoveCoupon(ctx context.Context, sessionKey string) error {
	cart, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return err
	}
	if cart.CouponCode == "" {
		return nil
	}
	cart.CouponCode = ""
	return s.carts.Save(ctx, sessionKey, cart)
}

// ListAddresses returns the user's saved addresses, default first.
func (s *CheckoutService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// AddressInput holds inline shipping address fields.
type AddressInput struct {
	FullName    string `json:"full_name" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	Ward        string `json:"ward"`
	District    string `json:"district"`
	City        string `json:"city" validate:"required"`
}

// PlaceOrderInput holds the parameters for committing a checkout.
type PlaceOrderInput struct {
	UserID        string
	SessionKey    string
	PaymentMethod string
	Notes         string
	AddressID     string
	Address       *AddressInput
}

// PlaceOrder commits the checkout: selected cart lines become an order with
// its items and payment record persisted in one transaction, the coupon is
// redeemed, and the cart is cleared. The caller branches on the order's
// payment method for what happens next.
func (s *CheckoutService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if !domain.IsValidPaymentMethod(input.PaymentMethod) {
		return nil, apperrors.InvalidInput("invalid payment method")
	}

	cart, err := s.carts.Get(ctx, input.SessionKey)
	if err != nil {
		return nil, err
	}

	items, err := selectedOrderItems(ctx, s.catalog, cart)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	addr, err := s.resolveAddress(ctx, input)
	if err != nil {
		return nil, err
	}

	var subtotal int64
	for i := range items {
		items[i].ID = uuid.New().String()
		subtotal += items[i].LineTotal()
	}

	discount, couponCode, err := s.redeemCoupon(ctx, cart.CouponCode, subtotal)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:             uuid.New().String(),
		OrderNumber:    domain.NewOrderNumber(now),
		UserID:         input.UserID,
		Status:         domain.OrderStatusPending,
		Items:          items,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingFee:    s.shippingFee,
		TotalAmount:    subtotal - discount + s.shippingFee,
		CouponCode:     couponCode,
		ShippingInfo:   addr.ShippingInfo(),
		PaymentMethod:  input.PaymentMethod,
		Notes:          input.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	payment := &domain.Payment{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		Method:    input.PaymentMethod,
		Status:    domain.PaymentStatusPending,
		Amount:    order.TotalAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(ctx, order, payment); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The cart is spent regardless of which payment path follows. A failed
	// clear leaves a stale cart behind the successful order, so it is only
	// logged.
	if err := s.carts.Delete(ctx, input.SessionKey); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after checkout",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("payment_method", order.PaymentMethod),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

// resolveAddress picks the shipping address: inline fields win, then an
// explicit address id, then the user's default (the list is default-first).
func (s *CheckoutService) resolveAddress(ctx context.Context, input PlaceOrderInput) (*domain.Address, error) {
	if input.Address != nil {
		addr := &domain.Address{
			UserID:      input.UserID,
			FullName:    input.Address.FullName,
			Phone:       input.Address.Phone,
			AddressLine: input.Address.AddressLine,
			Ward:        input.Address.Ward,
			District:    input.Address.District,
			City:        input.Address.City,
		}
		if !addr.IsComplete() {
			return nil, apperrors.InvalidInput("shipping address is incomplete")
		}
		return s.addresses.GetOrCreate(ctx, addr)
	}

	if input.AddressID != "" {
		addr, err := s.addresses.GetByID(ctx, input.AddressID, input.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("address", input.AddressID)
			}
			return nil, err
		}
		return addr, nil
	}

	list, err := s.addresses.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperrors.InvalidInput("shipping address is required")
	}
	return &list[0], nil
}

// redeemCoupon re-validates the session coupon at commit time and consumes
// one use. A coupon that no longer applies degrades to zero discount rather
// than failing the checkout; losing the cap race does the same. A coupon
// below its order minimum is not redeemed at all.
func (s *CheckoutService) redeemCoupon(ctx context.Context, code string, subtotal int64) (int64, string, error) {
	if code == "" {
		return 0, "", nil
	}

	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, "", nil
		}
		return 0, "", err
	}
	if !coupon.IsValid(time.Now().UTC()) {
		return 0, "", nil
	}

	discount := coupon.CalculateDiscount(subtotal, s.shippingFee)
	if discount == 0 {
		return 0, "", nil
	}

	ok, err := s.coupons.Redeem(ctx, coupon.Code)
	if err != nil {
		return 0, "", fmt.Errorf("redeem coupon: %w", err)
	}
	if !ok {
		s.logger.InfoContext(ctx, "coupon cap reached at checkout",
			slog.String("coupon_code", coupon.Code),
		)
		return 0, "", nil
	}
	return clampDiscount(discount, subtotal, s.shippingFee), coupon.Code, nil
}

// clampDiscount caps the discount at the amount actually owed, so a fixed
// coupon larger than the order can never drive the total negative.
func clampDiscount(discount, subtotal, shippingFee int64) int64 {
	if max := subtotal + shippingFee; discount > max {
		return max
	}
	return discount
}
