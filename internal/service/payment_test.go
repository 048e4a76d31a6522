package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/internal/gateway"
	"github.com/Tinii1601/DA-SE347/internal/gateway/vietqr"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

type paymentMocks struct {
	orders   *mockOrderRepository
	payments *mockPaymentRepository
	carts    *mockCartStore
	gw       *mockGateway
}

func newTestPaymentService() (*PaymentService, *paymentMocks) {
	m := &paymentMocks{
		orders:   new(mockOrderRepository),
		payments: new(mockPaymentRepository),
		carts:    new(mockCartStore),
		gw:       new(mockGateway),
	}
	qr := vietqr.NewBuilder(vietqr.Config{
		BankBIN:       "970436",
		AccountNumber: "0123456789",
		AccountName:   "NGUYEN VAN A",
		BankName:      "Vietcombank",
	})
	svc := NewPaymentService(m.orders, m.payments, m.carts, m.gw, qr, newTestProducer(),
		"https://shop.example.com/payment/return", "https://shop.example.com/payment/cancel", newTestLogger())
	return svc, m
}

func pendingOrder(method string) *domain.Order {
	return &domain.Order{
		ID:            "order-1",
		OrderCode:     42,
		OrderNumber:   "ORD20250101120000000042",
		UserID:        "user-1",
		Status:        domain.OrderStatusPending,
		Subtotal:      250000,
		ShippingFee:   30000,
		TotalAmount:   280000,
		PaymentMethod: method,
	}
}

func pendingPayment(method string) *domain.Payment {
	return &domain.Payment{
		ID:      "pay-1",
		OrderID: "order-1",
		Method:  method,
		Status:  domain.PaymentStatusPending,
		Amount:  280000,
	}
}

// ============================================================
// InitiatePayment
// ============================================================

func TestPaymentService_InitiatePayment_CreatesLink(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.payments.On("GetByOrderID", ctx, "order-1").Return(pendingPayment(domain.PaymentMethodPayOS), nil)
	m.gw.On("CreatePaymentLink", ctx, mock.AnythingOfType("*gateway.CreateLinkInput")).Return(&gateway.PaymentLink{
		OrderCode:     42,
		TransactionID: "lnk_abc",
		CheckoutURL:   "https://pay.example.com/web/lnk_abc",
		Status:        gateway.LinkStatusPending,
	}, nil)
	m.payments.On("SetCheckoutURL", ctx, "order-1", "https://pay.example.com/web/lnk_abc", "lnk_abc").Return(nil)

	res, err := svc.InitiatePayment(ctx, "order-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example.com/web/lnk_abc", res.CheckoutURL)
	assert.Equal(t, int64(280000), res.Amount)

	input := m.gw.Calls[0].Arguments.Get(1).(*gateway.CreateLinkInput)
	assert.Equal(t, int64(42), input.OrderCode)
	assert.Equal(t, int64(280000), input.Amount)
	assert.Equal(t, "DH ORD20250101120000000042", input.Description)
	m.payments.AssertExpectations(t)
}

func TestPaymentService_InitiatePayment_ReusesPendingLink(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	payment := pendingPayment(domain.PaymentMethodPayOS)
	payment.CheckoutURL = "https://pay.example.com/web/lnk_old"

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.payments.On("GetByOrderID", ctx, "order-1").Return(payment, nil)
	m.gw.On("GetPaymentLink", ctx, int64(42)).Return(&gateway.PaymentLink{
		OrderCode: 42,
		Status:    gateway.LinkStatusPending,
	}, nil)

	res, err := svc.InitiatePayment(ctx, "order-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example.com/web/lnk_old", res.CheckoutURL)
	m.gw.AssertNotCalled(t, "CreatePaymentLink", mock.Anything, mock.Anything)
}

func TestPaymentService_InitiatePayment_RecreatesCancelledLink(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	payment := pendingPayment(domain.PaymentMethodPayOS)
	payment.CheckoutURL = "https://pay.example.com/web/lnk_old"

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.payments.On("GetByOrderID", ctx, "order-1").Return(payment, nil)
	m.gw.On("GetPaymentLink", ctx, int64(42)).Return(&gateway.PaymentLink{
		OrderCode: 42,
		Status:    gateway.LinkStatusCancelled,
	}, nil)
	m.gw.On("CreatePaymentLink", ctx, mock.AnythingOfType("*gateway.CreateLinkInput")).Return(&gateway.PaymentLink{
		OrderCode:     42,
		TransactionID: "lnk_new",
		CheckoutURL:   "https://pay.example.com/web/lnk_new",
		Status:        gateway.LinkStatusPending,
	}, nil)
	m.payments.On("SetCheckoutURL", ctx, "order-1", "https://pay.example.com/web/lnk_new", "lnk_new").Return(nil)

	res, err := svc.InitiatePayment(ctx, "order-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/web/lnk_new", res.CheckoutURL)
}

func TestPaymentService_InitiatePayment_FallsBackOnCreateRace(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	payment := pendingPayment(domain.PaymentMethodPayOS)
	payment.CheckoutURL = "https://pay.example.com/web/lnk_old"

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.payments.On("GetByOrderID", ctx, "order-1").Return(payment, nil)
	// First lookup says the old link is dead, creation hits the duplicate,
	// and the post-failure lookup finds the link the other request made.
	m.gw.On("GetPaymentLink", ctx, int64(42)).Return(&gateway.PaymentLink{
		OrderCode: 42,
		Status:    gateway.LinkStatusExpired,
	}, nil).Once()
	m.gw.On("CreatePaymentLink", ctx, mock.AnythingOfType("*gateway.CreateLinkInput")).
		Return(nil, apperrors.GatewayUnavailable("payos: gateway returned code 231: duplicate order code"))
	m.gw.On("GetPaymentLink", ctx, int64(42)).Return(&gateway.PaymentLink{
		OrderCode: 42,
		Status:    gateway.LinkStatusPending,
	}, nil).Once()

	res, err := svc.InitiatePayment(ctx, "order-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/web/lnk_old", res.CheckoutURL)
}

func TestPaymentService_InitiatePayment_WrongMethod(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodCOD), nil)

	_, err := svc.InitiatePayment(ctx, "order-1", "user-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPaymentService_InitiatePayment_NotOwner(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)

	_, err := svc.InitiatePayment(ctx, "order-1", "someone-else")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================
// HandleReturn
// ============================================================

func TestPaymentService_HandleReturn_Success(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	order := pendingOrder(domain.PaymentMethodPayOS)
	m.orders.On("GetByOrderCode", ctx, int64(42)).Return(order, nil)
	m.orders.On("ConfirmPaid", ctx, "order-1", "", mock.AnythingOfType("time.Time")).Return(true, nil)
	m.payments.On("GetByOrderID", ctx, "order-1").Return(pendingPayment(domain.PaymentMethodPayOS), nil)
	m.carts.On("Delete", ctx, "sess-1").Return(nil)

	res, err := svc.HandleReturn(ctx, "sess-1", 42, "00")
	require.NoError(t, err)

	assert.True(t, res.Paid)
	assert.Equal(t, "ORD20250101120000000042", res.OrderNumber)
	m.orders.AssertExpectations(t)
	m.carts.AssertCalled(t, "Delete", ctx, "sess-1")
}

func TestPaymentService_HandleReturn_Declined(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByOrderCode", ctx, int64(42)).Return(pendingOrder(domain.PaymentMethodPayOS), nil)

	res, err := svc.HandleReturn(ctx, "sess-1", 42, "01")
	require.NoError(t, err)

	assert.False(t, res.Paid)
	m.orders.AssertNotCalled(t, "ConfirmPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_HandleReturn_UnknownOrder(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByOrderCode", ctx, int64(99)).Return(nil, apperrors.ErrNotFound)

	_, err := svc.HandleReturn(ctx, "sess-1", 99, "00")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================
// HandleWebhook
// ============================================================

func TestPaymentService_HandleWebhook_ConfirmsOrder(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()
	payload := []byte(`{"data":{},"signature":"sig"}`)

	m.gw.On("VerifyWebhook", payload).Return(&gateway.WebhookEvent{
		OrderCode:     42,
		Success:       true,
		TransactionID: "lnk_abc",
		Amount:        280000,
	}, nil)
	m.orders.On("GetByOrderCode", ctx, int64(42)).Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.orders.On("ConfirmPaid", ctx, "order-1", "lnk_abc", mock.AnythingOfType("time.Time")).Return(true, nil)
	m.payments.On("GetByOrderID", ctx, "order-1").Return(pendingPayment(domain.PaymentMethodPayOS), nil)

	err := svc.HandleWebhook(ctx, payload)
	require.NoError(t, err)
	m.orders.AssertExpectations(t)
}

func TestPaymentService_HandleWebhook_TransitionFailureSurfaces(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()
	payload := []byte(`{"data":{},"signature":"sig"}`)

	m.gw.On("VerifyWebhook", payload).Return(&gateway.WebhookEvent{
		OrderCode:     42,
		Success:       true,
		TransactionID: "lnk_abc",
		Amount:        280000,
	}, nil)
	m.orders.On("GetByOrderCode", ctx, int64(42)).Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.orders.On("ConfirmPaid", ctx, "order-1", "lnk_abc", mock.AnythingOfType("time.Time")).
		Return(false, errors.New("db down"))

	// The error must reach the caller so the webhook is not acknowledged
	// and the gateway redelivers it.
	err := svc.HandleWebhook(ctx, payload)
	require.Error(t, err)
	m.payments.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}

func TestPaymentService_PollStatus_TransitionFailureStaysPending(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.gw.On("GetPaymentLink", ctx, int64(42)).Return(&gateway.PaymentLink{
		Status:        gateway.LinkStatusPaid,
		TransactionID: "lnk_abc",
	}, nil)
	m.orders.On("ConfirmPaid", ctx, "order-1", "lnk_abc", mock.AnythingOfType("time.Time")).
		Return(false, errors.New("db down"))

	// The gateway says paid but nothing changed locally; keep the client
	// polling so the transition gets another attempt.
	status, err := svc.PollStatus(ctx, "order-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.LinkStatusPending, status)
}

func TestPaymentService_HandleWebhook_AlreadyConfirmed(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()
	payload := []byte(`{"data":{},"signature":"sig"}`)

	m.gw.On("VerifyWebhook", payload).Return(&gateway.WebhookEvent{
		OrderCode: 42,
		Success:   true,
	}, nil)
	m.orders.On("GetByOrderCode", ctx, int64(42)).Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	// Another channel already performed the transition.
	m.orders.On("ConfirmPaid", ctx, "order-1", "", mock.AnythingOfType("time.Time")).Return(false, nil)

	err := svc.HandleWebhook(ctx, payload)
	require.NoError(t, err)
	m.payments.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}

func TestPaymentService_HandleWebhook_BadSignature(t *testing.T) {
	svc, m := newTestPaymentService()
	payload := []byte(`{"data":{},"signature":"bad"}`)

	m.gw.On("VerifyWebhook", payload).Return(nil, apperrors.InvalidInput("payos: webhook signature mismatch"))

	err := svc.HandleWebhook(context.Background(), payload)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	m.orders.AssertNotCalled(t, "GetByOrderCode", mock.Anything, mock.Anything)
}

func TestPaymentService_HandleWebhook_FailureEvent(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()
	payload := []byte(`{"data":{},"signature":"sig"}`)

	m.gw.On("VerifyWebhook", payload).Return(&gateway.WebhookEvent{
		OrderCode: 42,
		Success:   false,
	}, nil)
	m.orders.On("GetByOrderCode", ctx, int64(42)).Return(pendingOrder(domain.PaymentMethodPayOS), nil)

	err := svc.HandleWebhook(ctx, payload)
	require.NoError(t, err)
	m.orders.AssertNotCalled(t, "ConfirmPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================
// PollStatus
// ============================================================

func TestPaymentService_PollStatus_LocallyConfirmedSkipsGateway(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	order := pendingOrder(domain.PaymentMethodPayOS)
	order.Status = domain.OrderStatusConfirmed
	m.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	status, err := svc.PollStatus(ctx, "order-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, gateway.LinkStatusPaid, status)
	m.gw.AssertNotCalled(t, "GetPaymentLink", mock.Anything, mock.Anything)
}

func TestPaymentService_PollStatus_GatewayPaidConfirms(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.gw.On("GetPaymentLink", ctx, int64(42)).Return(&gateway.PaymentLink{
		OrderCode:     42,
		TransactionID: "lnk_abc",
		Status:        gateway.LinkStatusPaid,
	}, nil)
	m.orders.On("ConfirmPaid", ctx, "order-1", "lnk_abc", mock.AnythingOfType("time.Time")).Return(true, nil)
	m.payments.On("GetByOrderID", ctx, "order-1").Return(pendingPayment(domain.PaymentMethodPayOS), nil)

	status, err := svc.PollStatus(ctx, "order-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, gateway.LinkStatusPaid, status)
	m.orders.AssertExpectations(t)
}

func TestPaymentService_PollStatus_GatewayErrorReportsPending(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodPayOS), nil)
	m.gw.On("GetPaymentLink", ctx, int64(42)).Return(nil, apperrors.GatewayUnavailable("payos: timeout"))

	status, err := svc.PollStatus(ctx, "order-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.LinkStatusPending, status)
}

func TestPaymentService_PollStatus_CanceledOrder(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	order := pendingOrder(domain.PaymentMethodPayOS)
	order.Status = domain.OrderStatusCanceled
	m.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	status, err := svc.PollStatus(ctx, "order-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.LinkStatusCancelled, status)
}

func TestPaymentService_PollStatus_UnknownOrder(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "ghost").Return(nil, apperrors.ErrNotFound)

	_, err := svc.PollStatus(ctx, "ghost", "user-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================
// Bank transfer
// ============================================================

func TestPaymentService_BankTransferDetails(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodBankTransfer), nil)

	details, err := svc.BankTransferDetails(ctx, "order-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, int64(280000), details.Amount)
	assert.Equal(t, "DH ORD20250101120000000042", details.TransferNote)
	assert.Contains(t, details.QRImageURL, "amount=280000")
}

func TestPaymentService_BankTransferDetails_WrongMethod(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodCOD), nil)

	_, err := svc.BankTransferDetails(ctx, "order-1", "user-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPaymentService_ConfirmBankTransfer(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	m.orders.On("GetByID", ctx, "order-1").Return(pendingOrder(domain.PaymentMethodBankTransfer), nil)
	m.payments.On("SetTransactionID", ctx, "order-1", UserReportedTransactionID).Return(nil)
	m.carts.On("Delete", ctx, "sess-1").Return(nil)

	err := svc.ConfirmBankTransfer(ctx, "sess-1", "order-1", "user-1")
	require.NoError(t, err)
	m.payments.AssertExpectations(t)
	// The order itself stays pending; only the payment reference changes.
	m.orders.AssertNotCalled(t, "ConfirmPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ConfirmBankTransfer_NotPending(t *testing.T) {
	svc, m := newTestPaymentService()
	ctx := context.Background()

	order := pendingOrder(domain.PaymentMethodBankTransfer)
	order.Status = domain.OrderStatusConfirmed
	m.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	err := svc.ConfirmBankTransfer(ctx, "sess-1", "order-1", "user-1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}
