package gateway

import "context"

// Payment link status values reported by the hosted-checkout provider.
const (
	LinkStatusPending   = "PENDING"
	LinkStatusPaid      = "PAID"
	LinkStatusCancelled = "CANCELLED"
	LinkStatusExpired   = "EXPIRED"
)

// CreateLinkInput holds the parameters for creating a hosted payment link.
// The whole order amount goes out as a single summary line item so the
// gateway total always matches the discount-adjusted order total.
type CreateLinkInput struct {
	OrderCode   int64
	Amount      int64
	Description string
	ReturnURL   string
	CancelURL   string
}

// PaymentLink is the gateway's view of one hosted checkout session.
type PaymentLink struct {
	OrderCode     int64
	TransactionID string
	CheckoutURL   string
	Status        string
}

// WebhookEvent is a verified payment notification pushed by the gateway.
type WebhookEvent struct {
	OrderCode     int64
	Success       bool
	TransactionID string
	Amount        int64
	Reference     string
}

// Gateway is the hosted-checkout provider integration. One order maps to at
// most one payment session, keyed by the order's numeric code.
type Gateway interface {
	// CreatePaymentLink creates a hosted checkout session for the order.
	CreatePaymentLink(ctx context.Context, input *CreateLinkInput) (*PaymentLink, error)

	// GetPaymentLink fetches the session keyed by order code, or
	// ErrNotFound if none was ever created.
	GetPaymentLink(ctx context.Context, orderCode int64) (*PaymentLink, error)

	// CancelPaymentLink cancels the session so the hosted page stops
	// accepting payment.
	CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error

	// VerifyWebhook checks the payload's signature and returns the decoded
	// event. An invalid signature is an error; no state may be trusted
	// from an unverified payload.
	VerifyWebhook(payload []byte) (*WebhookEvent, error)
}
