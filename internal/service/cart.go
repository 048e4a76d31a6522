package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/internal/repository"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// CartService implements the business logic for cart operations. The cart
// itself lives in Redis keyed by session; product data is joined in from
// the catalog on every read so stale lines surface immediately.
type CartService struct {
	carts   repository.CartStore
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartStore, catalog repository.CatalogRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:   carts,
		catalog: catalog,
		logger:  logger,
	}
}

// CartItemView is one cart line enriched with live catalog data. UnitPrice
// is the snapshot taken at add time; CurrentPrice is what the catalog says
// now.
type CartItemView struct {
	ProductID    string `json:"product_id"`
	Title        string `json:"title"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	CurrentPrice int64  `json:"current_price"`
	Selected     bool   `json:"selected"`
	LineTotal    int64  `json:"line_total"`
	Purchasable  bool   `json:"purchasable"`
}

// CartView is the enriched cart returned to the storefront.
type CartView struct {
	Items         []CartItemView `json:"items"`
	TotalPrice    int64          `json:"total_price"`
	SelectedTotal int64          `json:"selected_total"`
	CouponCode    string         `json:"coupon_code,omitempty"`
}

// GetCart returns the enriched cart for the session. Lines whose product no
// longer exists are skipped silently; a missing cart is an empty cart.
func (s *CartService) GetCart(ctx context.Context, sessionKey string) (*CartView, error) {
	cart, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// AddItem adds quantity of a product to the cart, snapshotting the
// product's effective price if the line is new. With override the quantity
// replaces the existing value instead of adding to it.
func (s *CartService) AddItem(ctx context.Context, sessionKey, productID string, quantity int, override bool) (*CartView, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, apperrors.InvalidInput("product is not available for purchase")
	}

	cart, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	cart.Add(productID, product.EffectivePrice(), quantity, override)
	if err := s.carts.Save(ctx, sessionKey, cart); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "cart item added",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
		slog.Bool("override", override),
	)
	return s.buildView(ctx, cart)
}

// RemoveItem drops a product line from the cart. Removing an absent line is
// a no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionKey, productID string) (*CartView, error) {
	cart, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	cart.Remove(productID)
	if err := s.carts.Save(ctx, sessionKey, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// SetSelected replaces the selection set: exactly the listed product IDs
// become selected, everything else deselected.
func (s *CartService) SetSelected(ctx context.Context, sessionKey string, productIDs []string) (*CartView, error) {
	cart, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	cart.SetSelected(productIDs)
	if err := s.carts.Save(ctx, sessionKey, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// ClearCart drops the cart entirely, coupon included.
func (s *CartService) ClearCart(ctx context.Context, sessionKey string) error {
	return s.carts.Delete(ctx, sessionKey)
}

// buildView joins cart lines to the live catalog. Deleted products drop out
// of the view; the stored cart keeps its lines so a restored product
// reappears.
func (s *CartService) buildView(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	view := &CartView{
		Items:      make([]CartItemView, 0, len(cart.Lines)),
		CouponCode: cart.CouponCode,
	}

	ids := make([]string, 0, len(cart.Lines))
	for id := range cart.Lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		line := cart.Lines[id]
		product, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}

		item := CartItemView{
			ProductID:    id,
			Title:        product.Title,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			CurrentPrice: product.EffectivePrice(),
			Selected:     line.Selected,
			LineTotal:    line.UnitPrice * int64(line.Quantity),
			Purchasable:  product.IsPurchasable(),
		}
		view.Items = append(view.Items, item)
		view.TotalPrice += item.LineTotal
		if item.Selected {
			view.SelectedTotal += item.LineTotal
		}
	}
	return view, nil
}

// selectedOrderItems resolves the cart's selected lines into order lines,
// double-filtering on product and category being active. The price used is
// always the cart snapshot.
func selectedOrderItems(ctx context.Context, catalog repository.CatalogRepository, cart *domain.Cart) ([]domain.OrderItem, error) {
	ids := make([]string, 0, len(cart.Lines))
	for id := range cart.Lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]domain.OrderItem, 0, len(ids))
	for _, id := range ids {
		line := cart.Lines[id]
		if !line.Selected {
			continue
		}
		product, err := catalog.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !product.IsPurchasable() {
			continue
		}
		items = append(items, domain.OrderItem{
			ProductID: id,
			Title:     product.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return items, nil
}
