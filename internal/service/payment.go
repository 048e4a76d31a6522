package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/internal/event"
	"github.com/Tinii1601/DA-SE347/internal/gateway"
	"github.com/Tinii1601/DA-SE347/internal/gateway/vietqr"
	"github.com/Tinii1601/DA-SE347/internal/repository"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// UserReportedTransactionID marks a bank-transfer payment the customer
// claims to have sent. It stays pending until staff verify the transfer.
const UserReportedTransactionID = "USER_REPORTED"

// PaymentService reconciles orders with the payment gateway. Confirmation
// can arrive over three channels at once (return redirect, webhook, status
// poll); all of them funnel into one guarded transition so only the first
// writes anything.
type PaymentService struct {
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	carts     repository.CartStore
	gw        gateway.Gateway
	qr        *vietqr.Builder
	producer  *event.Producer
	returnURL string
	cancelURL string
	logger    *slog.Logger
}

// NewPaymentService creates a new payment service. returnURL and cancelURL
// are the storefront pages the gateway redirects back to.
func NewPaymentService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	carts repository.CartStore,
	gw gateway.Gateway,
	qr *vietqr.Builder,
	producer *event.Producer,
	returnURL, cancelURL string,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		orders:    orders,
		payments:  payments,
		carts:     carts,
		gw:        gw,
		qr:        qr,
		producer:  producer,
		returnURL: returnURL,
		cancelURL: cancelURL,
		logger:    logger,
	}
}

// InitiateResult is what the storefront needs to send the customer to the
// hosted checkout page.
type InitiateResult struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
}

// InitiatePayment returns the hosted checkout link for a pending order,
// creating it at the gateway if it does not exist yet. Repeated calls for
// the same order reuse the stored link; a creation race falls back to the
// link the other caller made.
func (s *PaymentService) InitiatePayment(ctx context.Context, orderID, userID string) (*InitiateResult, error) {
	order, err := s.ownedOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != domain.PaymentMethodPayOS {
		return nil, apperrors.InvalidInput("order does not use hosted checkout")
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.Conflict("order is not awaiting payment")
	}

	payment, err := s.payments.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	// Reuse the existing link while the gateway still honors it.
	if payment.CheckoutURL != "" {
		link, gerr := s.gw.GetPaymentLink(ctx, order.OrderCode)
		if gerr == nil {
			switch link.Status {
			case gateway.LinkStatusPaid:
				// Webhook or poll settles the transition if this fails.
				_ = s.confirmPaid(ctx, order, link.TransactionID)
				return nil, apperrors.Conflict("order is already paid")
			case gateway.LinkStatusCancelled, gateway.LinkStatusExpired:
				// Fall through and create a fresh link.
			default:
				return s.initiateResult(order, payment.CheckoutURL), nil
			}
		}
	}

	link, err := s.gw.CreatePaymentLink(ctx, &gateway.CreateLinkInput{
		OrderCode:   order.OrderCode,
		Amount:      order.TotalAmount,
		Description: "DH " + order.OrderNumber,
		ReturnURL:   s.returnURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		// A duplicate submit can lose the creation race; the winner's link
		// is still good.
		if fallback, gerr := s.gw.GetPaymentLink(ctx, order.OrderCode); gerr == nil &&
			fallback.Status == gateway.LinkStatusPending && payment.CheckoutURL != "" {
			return s.initiateResult(order, payment.CheckoutURL), nil
		}
		return nil, err
	}

	if err := s.payments.SetCheckoutURL(ctx, order.ID, link.CheckoutURL, link.TransactionID); err != nil {
		return nil, err
	}
	return s.initiateResult(order, link.CheckoutURL), nil
}

func (s *PaymentService) initiateResult(order *domain.Order, checkoutURL string) *InitiateResult {
	return &InitiateResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CheckoutURL: checkoutURL,
		Amount:      order.TotalAmount,
	}
}

// ReturnResult tells the storefront where to land the customer after the
// gateway redirect.
type ReturnResult struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Paid        bool   `json:"paid"`
}

// HandleReturn processes the gateway's redirect back to the storefront. The
// gateway appends the order code and its result code to the return URL;
// "00" means the customer paid. The redirect is advisory, so a payment
// already confirmed by webhook is simply reported as paid.
func (s *PaymentService) HandleReturn(ctx context.Context, sessionKey string, orderCode int64, code string) (*ReturnResult, error) {
	order, err := s.orders.GetByOrderCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", "")
		}
		return nil, err
	}

	paid := code == "00"
	if paid {
		// The redirect is advisory; webhook and poll retry the transition.
		_ = s.confirmPaid(ctx, order, "")
		if sessionKey != "" {
			if derr := s.carts.Delete(ctx, sessionKey); derr != nil {
				s.logger.WarnContext(ctx, "failed to clear cart on payment return",
					slog.String("order_id", order.ID),
					slog.String("error", derr.Error()),
				)
			}
		}
	}

	return &ReturnResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Paid:        paid,
	}, nil
}

// HandleWebhook verifies and processes a gateway notification. An
// unverifiable payload is rejected so the gateway retries; a verified
// notification for an already confirmed order is acknowledged without
// writing anything.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte) error {
	evt, err := s.gw.VerifyWebhook(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected payment webhook",
			slog.String("error", err.Error()),
		)
		return err
	}

	order, err := s.orders.GetByOrderCode(ctx, evt.OrderCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "payment webhook for unknown order",
				slog.Int64("order_code", evt.OrderCode),
			)
			return apperrors.NotFound("order", "")
		}
		return err
	}

	if !evt.Success {
		s.logger.InfoContext(ctx, "payment webhook reported failure",
			slog.String("order_id", order.ID),
			slog.String("reference", evt.Reference),
		)
		return nil
	}

	// A failed transition must surface: the handler answers 5xx and the
	// gateway redelivers, which is the only retry channel once the
	// customer's browser is gone.
	return s.confirmPaid(ctx, order, evt.TransactionID)
}

// PollStatus reports the payment state of an order. A locally confirmed
// order answers PAID without touching the gateway; otherwise the gateway is
// asked, and any gateway trouble degrades to PENDING so the storefront just
// keeps polling.
func (s *PaymentService) PollStatus(ctx context.Context, orderID, userID string) (string, error) {
	order, err := s.ownedOrder(ctx, orderID, userID)
	if err != nil {
		return "", err
	}

	switch order.Status {
	case domain.OrderStatusConfirmed, domain.OrderStatusShipping, domain.OrderStatusDelivered:
		return gateway.LinkStatusPaid, nil
	case domain.OrderStatusCanceled:
		return gateway.LinkStatusCancelled, nil
	}

	link, err := s.gw.GetPaymentLink(ctx, order.OrderCode)
	if err != nil {
		s.logger.WarnContext(ctx, "payment status poll failed, reporting pending",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return gateway.LinkStatusPending, nil
	}

	if link.Status == gateway.LinkStatusPaid {
		if cerr := s.confirmPaid(ctx, order, link.TransactionID); cerr != nil {
			// Report PENDING so the storefront polls again and retries
			// the transition.
			return gateway.LinkStatusPending, nil
		}
		return gateway.LinkStatusPaid, nil
	}
	return link.Status, nil
}

// BankTransferDetails returns the VietQR transfer instructions for a
// pending bank-transfer order.
func (s *PaymentService) BankTransferDetails(ctx context.Context, orderID, userID string) (*vietqr.Details, error) {
	order, err := s.ownedOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != domain.PaymentMethodBankTransfer {
		return nil, apperrors.InvalidInput("order does not use bank transfer")
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.Conflict("order is not awaiting payment")
	}
	return s.qr.Details(order.OrderNumber, order.TotalAmount), nil
}

// ConfirmBankTransfer records that the customer reports having sent the
// transfer. The order stays pending until staff match the transfer
// manually; only the payment's transaction reference changes.
func (s *PaymentService) ConfirmBankTransfer(ctx context.Context, sessionKey, orderID, userID string) error {
	order, err := s.ownedOrder(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if order.PaymentMethod != domain.PaymentMethodBankTransfer {
		return apperrors.InvalidInput("order does not use bank transfer")
	}
	if order.Status != domain.OrderStatusPending {
		return apperrors.Conflict("order is not awaiting payment")
	}

	if err := s.payments.SetTransactionID(ctx, order.ID, UserReportedTransactionID); err != nil {
		return err
	}

	if sessionKey != "" {
		if derr := s.carts.Delete(ctx, sessionKey); derr != nil {
			s.logger.WarnContext(ctx, "failed to clear cart on transfer confirmation",
				slog.String("order_id", order.ID),
				slog.String("error", derr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "bank transfer reported by customer",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)
	return nil
}

// confirmPaid funnels every confirmation channel into the guarded
// pending→confirmed transition. Only the channel that actually performs the
// transition publishes events; the rest observe the terminal state and do
// nothing. A failed transition is returned so the webhook channel can have
// the gateway redeliver; event publish failures are logged only.
func (s *PaymentService) confirmPaid(ctx context.Context, order *domain.Order, transactionID string) error {
	transitioned, err := s.orders.ConfirmPaid(ctx, order.ID, transactionID, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to confirm paid order",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("confirm paid order: %w", err)
	}
	if !transitioned {
		return nil
	}

	s.logger.InfoContext(ctx, "order confirmed",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("transaction_id", transactionID),
	)

	if err := s.producer.PublishOrderConfirmed(ctx, order, transactionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.confirmed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	payment, err := s.payments.GetByOrderID(ctx, order.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load payment for event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err := s.producer.PublishPaymentCompleted(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.completed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ownedOrder loads an order and hides it from everyone but its owner.
func (s *PaymentService) ownedOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
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
