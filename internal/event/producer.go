package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	pkgkafka "github.com/Tinii1601/DA-SE347/pkg/kafka"
)

// Kafka topics for storefront order and payment events.
const (
	TopicOrderCreated     = "bookstore.order.created"
	TopicOrderConfirmed   = "bookstore.order.confirmed"
	TopicOrderCanceled    = "bookstore.order.canceled"
	TopicPaymentCompleted = "bookstore.payment.completed"
)

const (
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
)

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

// OrderCreatedData is the payload for an order.created event (full order snapshot).
type OrderCreatedData struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"order_number"`
	UserID         string          `json:"user_id"`
	Status         string          `json:"status"`
	Items          []OrderItemData `json:"items"`
	Subtotal       int64           `json:"subtotal"`
	DiscountAmount int64           `json:"discount_amount"`
	ShippingFee    int64           `json:"shipping_fee"`
	TotalAmount    int64           `json:"total_amount"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	Notes          string          `json:"notes,omitempty"`
}

// OrderItemData is the event payload for an order line.
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderConfirmedData is the payload for an order.confirmed event.
type OrderConfirmedData struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// OrderCanceledData is the payload for an order.canceled event.
type OrderCanceledData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

// PaymentCompletedData is the payload for a payment.completed event.
type PaymentCompletedData struct {
	PaymentID     string     `json:"payment_id"`
	OrderID       string     `json:"order_id"`
	Method        string     `json:"method"`
	Amount        int64      `json:"amount"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// Producer publishes storefront domain events to Kafka. Publishing is
// best-effort from the caller's point of view: a checkout must not fail
// because the broker is down, so callers log publish errors and move on.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for the storefront.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event with the full order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	data := OrderCreatedData{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		Items:          items,
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		ShippingFee:    order.ShippingFee,
		TotalAmount:    order.TotalAmount,
		CouponCode:     order.CouponCode,
		PaymentMethod:  order.PaymentMethod,
		Notes:          order.Notes,
	}

	return p.publish(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, data)
}

// PublishOrderConfirmed publishes an order.confirmed event after payment
// settles.
func (p *Producer) PublishOrderConfirmed(ctx context.Context, order *domain.Order, transactionID string) error {
	data := OrderConfirmedData{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TransactionID: transactionID,
	}
	return p.publish(ctx, TopicOrderConfirmed, order.ID, AggregateTypeOrder, data)
}

// PublishOrderCanceled publishes an order.canceled event.
func (p *Producer) PublishOrderCanceled(ctx context.Context, order *domain.Order, reason string) error {
	data := OrderCanceledData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reason:      reason,
	}
	return p.publish(ctx, TopicOrderCanceled, order.ID, AggregateTypeOrder, data)
}

// PublishPaymentCompleted publishes a payment.completed event.
func (p *Producer) PublishPaymentCompleted(ctx context.Context, payment *domain.Payment) error {
	data := PaymentCompletedData{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		Method:        payment.Method,
		Amount:        payment.Amount,
		TransactionID: payment.TransactionID,
		PaidAt:        payment.PaidAt,
	}
	return p.publish(ctx, TopicPaymentCompleted, payment.ID, AggregateTypePayment, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
