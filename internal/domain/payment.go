package domain

import "time"

// Payment method constants.
const (
	PaymentMethodCOD          = "cod"
	PaymentMethodPayOS        = "payos"
	PaymentMethodBankTransfer = "bank_transfer"
)

// Payment status constants.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCanceled  = "canceled"
)

// Payment is the settlement record, one-to-one with its order. COD payments
// stay pending until delivery; gateway payments are completed by the
// reconciler.
type Payment struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	Amount        int64      `json:"amount"`
	TransactionID string     `json:"transaction_id,omitempty"`
	CheckoutURL   string     `json:"checkout_url,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ValidPaymentMethods returns the supported payment methods.
func ValidPaymentMethods() []string {
	return []string{PaymentMethodCOD, PaymentMethodPayOS, PaymentMethodBankTransfer}
}

// IsValidPaymentMethod checks whether m is a supported method.
func IsValidPaymentMethod(m string) bool {
	for _, v := range ValidPaymentMethods() {
		if v == m {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payment has reached a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted ||
		p.Status == PaymentStatusFailed ||
		p.Status == PaymentStatusCanceled
}
