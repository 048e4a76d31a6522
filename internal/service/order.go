package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/internal/event"
	"github.com/Tinii1601/DA-SE347/internal/gateway"
	"github.com/Tinii1601/DA-SE347/internal/repository"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// OrderService implements order history and cancellation for customers.
type OrderService struct {
	orders   repository.OrderRepository
	gw       gateway.Gateway
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, gw gateway.Gateway, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		gw:       gw,
		producer: producer,
		logger:   logger,
	}
}

// GetOrder returns one of the user's orders with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderID)
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", orderID)
	}
	return order, nil
}

// ListOrders returns the user's order history, newest first, with the total
// count for pagination.
func (s *OrderService) ListOrders(ctx context.Context, userID string, status string, page, perPage int) ([]domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	filter := repository.OrderFilter{
		UserID:  &userID,
		Page:    page,
		PerPage: perPage,
	}
	if status != "" {
		valid := false
		for _, st := range domain.ValidOrderStatuses() {
			if st == status {
				valid = true
				break
			}
		}
		if !valid {
			return nil, 0, apperrors.InvalidInput("invalid order status filter")
		}
		filter.Status = &status
	}

	return s.orders.List(ctx, filter)
}

// CancelOrder cancels one of the user's pending orders along with its
// payment. For hosted-checkout orders the gateway link is canceled too,
// best effort; the local cancellation stands either way.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID, reason string) error {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return err
	}

	if err := s.orders.Cancel(ctx, orderID, userID); err != nil {
		return err
	}

	if order.PaymentMethod == domain.PaymentMethodPayOS {
		if gerr := s.gw.CancelPaymentLink(ctx, order.OrderCode, reason); gerr != nil {
			s.logger.WarnContext(ctx, "failed to cancel payment link",
				slog.String("order_id", order.ID),
				slog.String("error", gerr.Error()),
			)
		}
	}

	if err := s.producer.PublishOrderCanceled(ctx, order, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.canceled event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order canceled",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)
	return nil
}
