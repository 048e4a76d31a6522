package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tinii1601/DA-SE347/internal/domain"
	"github.com/Tinii1601/DA-SE347/internal/repository"
	"github.com/Tinii1601/DA-SE347/pkg/database"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// --- Test Helpers ---

func newTestOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewOrderRepository(mock)
	return repo, mock
}

func sampleShippingInfo() domain.ShippingInfo {
	return domain.ShippingInfo{
		FullName:    "Nguyen Van A",
		Phone:       "0901234567",
		AddressLine: "12 Ly Thuong Kiet",
		Ward:        "Ben Nghe",
		District:    "District 1",
		City:        "Ho Chi Minh City",
	}
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Order{
		ID:             "order-001",
		OrderNumber:    "ORD20250301100000000001",
		UserID:         "user-001",
		Status:         domain.OrderStatusPending,
		Subtotal:       250000,
		DiscountAmount: 0,
		ShippingFee:    30000,
		TotalAmount:    280000,
		ShippingInfo:   sampleShippingInfo(),
		PaymentMethod:  domain.PaymentMethodCOD,
		CreatedAt:      now,
		UpdatedAt:      now,
		Items: []domain.OrderItem{
			{ID: "item-001", ProductID: "prod-001", Title: "Book A", Quantity: 2, UnitPrice: 100000},
			{ID: "item-002", ProductID: "prod-002", Title: "Book B", Quantity: 1, UnitPrice: 50000},
		},
	}
}

func samplePayment(orderID string) *domain.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Payment{
		ID:        "pay-001",
		OrderID:   orderID,
		Method:    domain.PaymentMethodCOD,
		Status:    domain.PaymentStatusPending,
		Amount:    280000,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Create Tests ---

func TestOrderRepository_Create_Success(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()
	p := samplePayment(o.ID)

	mock.ExpectBegin()

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(
			o.ID, o.OrderNumber, o.UserID, o.Status,
			o.Subtotal, o.DiscountAmount, o.ShippingFee, o.TotalAmount,
			o.CouponCode,
			pgxmock.AnyArg(), // shipping info JSON
			o.PaymentMethod, o.Notes,
			o.CreatedAt, o.UpdatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"order_code"}).AddRow(int64(42)))

	for _, item := range o.Items {
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(item.ID, o.ID, item.ProductID, item.Title, item.Quantity, item.UnitPrice).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(
			p.ID, p.OrderID, p.Method, p.Status, p.Amount,
			p.TransactionID, p.CheckoutURL, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectCommit()

	err := repo.Create(context.Background(), o, p)
	require.NoError(t, err)
	assert.Equal(t, int64(42), o.OrderCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_ItemInsertFails_RollsBack(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()
	p := samplePayment(o.ID)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(
			o.ID, o.OrderNumber, o.UserID, o.Status,
			o.Subtotal, o.DiscountAmount, o.ShippingFee, o.TotalAmount,
			o.CouponCode, pgxmock.AnyArg(), o.PaymentMethod, o.Notes,
			o.CreatedAt, o.UpdatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"order_code"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(o.Items[0].ID, o.ID, o.Items[0].ProductID, o.Items[0].Title, o.Items[0].Quantity, o.Items[0].UnitPrice).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o, p)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID / GetByOrderCode Tests ---

func orderRows(t *testing.T, o *domain.Order) *pgxmock.Rows {
	t.Helper()
	shippingJSON, err := json.Marshal(o.ShippingInfo)
	require.NoError(t, err)
	itemsJSON, err := json.Marshal(o.Items)
	require.NoError(t, err)

	return pgxmock.NewRows([]string{
		"id", "order_code", "order_number", "user_id", "status", "subtotal",
		"discount_amount", "shipping_fee", "total_amount", "coupon_code",
		"shipping_info", "payment_method", "notes", "created_at", "updated_at", "items",
	}).AddRow(
		o.ID, o.OrderCode, o.OrderNumber, o.UserID, o.Status, o.Subtotal,
		o.DiscountAmount, o.ShippingFee, o.TotalAmount, o.CouponCode,
		shippingJSON, o.PaymentMethod, o.Notes, o.CreatedAt, o.UpdatedAt, itemsJSON,
	)
}

func TestOrderRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()
	o.OrderCode = 42

	mock.ExpectQuery("SELECT(.|\n)+FROM orders o").
		WithArgs(o.ID).
		WillReturnRows(orderRows(t, o))

	got, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, int64(42), got.OrderCode)
	assert.Equal(t, o.ShippingInfo.City, got.ShippingInfo.City)
	assert.Len(t, got.Items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM orders o").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByOrderCode_Success(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()
	o.OrderCode = 42

	mock.ExpectQuery("SELECT(.|\n)+FROM orders o").
		WithArgs(int64(42)).
		WillReturnRows(orderRows(t, o))

	got, err := repo.GetByOrderCode(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- List Tests ---

func TestOrderRepository_List_FiltersByUser(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	o := sampleOrder()
	o.OrderCode = 7
	shippingJSON, err := json.Marshal(o.ShippingInfo)
	require.NoError(t, err)

	listRows := pgxmock.NewRows([]string{
		"id", "order_code", "order_number", "user_id", "status", "subtotal",
		"discount_amount", "shipping_fee", "total_amount", "coupon_code",
		"shipping_info", "payment_method", "notes", "created_at", "updated_at", "total_count",
	}).AddRow(
		o.ID, o.OrderCode, o.OrderNumber, o.UserID, o.Status, o.Subtotal,
		o.DiscountAmount, o.ShippingFee, o.TotalAmount, o.CouponCode,
		shippingJSON, o.PaymentMethod, o.Notes, o.CreatedAt, o.UpdatedAt, 1,
	)

	mock.ExpectQuery("SELECT(.|\n)+FROM orders").
		WithArgs(o.UserID, 20, 0).
		WillReturnRows(listRows)

	itemRows := pgxmock.NewRows([]string{"id", "order_id", "product_id", "title", "quantity", "unit_price"}).
		AddRow("item-001", o.ID, "prod-001", "Book A", 2, int64(100000))

	mock.ExpectQuery("SELECT(.|\n)+FROM order_items").
		WithArgs([]string{o.ID}).
		WillReturnRows(itemRows)

	userID := o.UserID
	orders, total, err := repo.List(context.Background(), repository.OrderFilter{UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ConfirmPaid Tests ---

func TestOrderRepository_ConfirmPaid_Transitions(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	paidAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs("order-001", domain.OrderStatusConfirmed, paidAt, domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE payments").
		WithArgs("order-001", domain.PaymentStatusCompleted, "txn-9", paidAt, domain.PaymentStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	transitioned, err := repo.ConfirmPaid(context.Background(), "order-001", "txn-9", paidAt)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ConfirmPaid_AlreadyConfirmed_NoOp(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	paidAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs("order-001", domain.OrderStatusConfirmed, paidAt, domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	transitioned, err := repo.ConfirmPaid(context.Background(), "order-001", "txn-9", paidAt)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Cancel Tests ---

func TestOrderRepository_Cancel_Pending(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs("order-001", "user-001", domain.OrderStatusCanceled, pgxmock.AnyArg(), domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE payments").
		WithArgs("order-001", domain.PaymentStatusCanceled, pgxmock.AnyArg(), domain.PaymentStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.Cancel(context.Background(), "order-001", "user-001")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Cancel_AlreadyConfirmed_Conflict(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs("order-001", "user-001", domain.OrderStatusCanceled, pgxmock.AnyArg(), domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs("order-001", "user-001").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(domain.OrderStatusConfirmed))
	mock.ExpectRollback()

	err := repo.Cancel(context.Background(), "order-001", "user-001")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Cancel_NotFound(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs("missing", "user-001", domain.OrderStatusCanceled, pgxmock.AnyArg(), domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs("missing", "user-001").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Cancel(context.Background(), "missing", "user-001")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
