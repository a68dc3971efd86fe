package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	stock     repo.StockRepository
	products  repo.ProductRepository
	payments  repo.PaymentRepository
	callbacks repo.PaymentCallbackRepository
	returns   repo.OrderReturnRepository
	audits    repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository                     { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository             { return r.items }
func (r *TxReposMock) Carts() repo.CartRepository                       { return r.carts }
func (r *TxReposMock) CartItems() repo.CartItemRepository               { return r.cartItems }
func (r *TxReposMock) Stock() repo.StockRepository                      { return r.stock }
func (r *TxReposMock) Products() repo.ProductRepository                 { return r.products }
func (r *TxReposMock) Payments() repo.PaymentRepository                 { return r.payments }
func (r *TxReposMock) PaymentCallbacks() repo.PaymentCallbackRepository { return r.callbacks }
func (r *TxReposMock) Returns() repo.OrderReturnRepository              { return r.returns }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository               { return r.audits }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateFields(ctx context.Context, orderID int64, fields map[string]interface{}) error {
	args := m.Called(ctx, orderID, fields)
	return args.Error(0)
}

func (m *OrderRepoMock) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	args := m.Called(ctx, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	args := m.Called(ctx, cartID, status)
	return args.Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

type StockRepoMock struct{ mock.Mock }

func (m *StockRepoMock) FindByID(ctx context.Context, productSizeID int64) (model.ProductSize, error) {
	args := m.Called(ctx, productSizeID)
	ps, _ := args.Get(0).(model.ProductSize)
	return ps, args.Error(1)
}

func (m *StockRepoMock) GetAvailable(ctx context.Context, productSizeID int64) (int64, error) {
	args := m.Called(ctx, productSizeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StockRepoMock) DeductIfAvailable(ctx context.Context, productSizeID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productSizeID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *StockRepoMock) Restore(ctx context.Context, productSizeID int64, qty int64) error {
	args := m.Called(ctx, productSizeID, qty)
	return args.Error(0)
}

func (m *StockRepoMock) AdjustWithLog(ctx context.Context, adminUserID int64, productSizeID int64, delta int64, reason string) error {
	args := m.Called(ctx, adminUserID, productSizeID, delta, reason)
	return args.Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) Create(ctx context.Context, p model.Payment) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PaymentRepoMock) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindByIDForUpdate(ctx context.Context, paymentID int64) (model.Payment, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindPendingByOrderID(ctx context.Context, orderID int64) (model.Payment, bool, error) {
	args := m.Called(ctx, orderID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Bool(1), args.Error(2)
}

func (m *PaymentRepoMock) FindPaidByOrderID(ctx context.Context, orderID int64) (model.Payment, bool, error) {
	args := m.Called(ctx, orderID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Bool(1), args.Error(2)
}

func (m *PaymentRepoMock) FindBySessionToken(ctx context.Context, token string) (model.Payment, bool, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Bool(1), args.Error(2)
}

func (m *PaymentRepoMock) UpdateFields(ctx context.Context, paymentID int64, fields map[string]interface{}) error {
	args := m.Called(ctx, paymentID, fields)
	return args.Error(0)
}

type PaymentCallbackRepoMock struct{ mock.Mock }

func (m *PaymentCallbackRepoMock) Create(ctx context.Context, cb model.PaymentCallback) error {
	args := m.Called(ctx, cb)
	return args.Error(0)
}

func (m *PaymentCallbackRepoMock) ListByPaymentID(ctx context.Context, paymentID int64) ([]model.PaymentCallback, error) {
	args := m.Called(ctx, paymentID)
	cbs, _ := args.Get(0).([]model.PaymentCallback)
	return cbs, args.Error(1)
}

type ReturnRepoMock struct{ mock.Mock }

func (m *ReturnRepoMock) Create(ctx context.Context, r model.OrderReturn) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ReturnRepoMock) FindByID(ctx context.Context, returnID int64) (model.OrderReturn, error) {
	args := m.Called(ctx, returnID)
	r, _ := args.Get(0).(model.OrderReturn)
	return r, args.Error(1)
}

func (m *ReturnRepoMock) FindActiveByOrderID(ctx context.Context, orderID int64) (model.OrderReturn, bool, error) {
	args := m.Called(ctx, orderID)
	r, _ := args.Get(0).(model.OrderReturn)
	return r, args.Bool(1), args.Error(2)
}

func (m *ReturnRepoMock) ReturnCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *ReturnRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.OrderReturn, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	rets, _ := args.Get(0).([]model.OrderReturn)
	return rets, args.Get(1).(int64), args.Error(2)
}

func (m *ReturnRepoMock) ListAdmin(ctx context.Context, f repo.AdminReturnListFilter) ([]model.OrderReturn, int64, error) {
	args := m.Called(ctx, f)
	rets, _ := args.Get(0).([]model.OrderReturn)
	return rets, args.Get(1).(int64), args.Error(2)
}

func (m *ReturnRepoMock) UpdateFields(ctx context.Context, returnID int64, fields map[string]interface{}) error {
	args := m.Called(ctx, returnID, fields)
	return args.Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

var _ repo.TxRepos = (*TxReposMock)(nil)
var _ repo.TransactionManager = (*TxManagerMock)(nil)

// =====================
// Helpers
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func paymentStatusPtr(s model.PaymentStatus) *model.PaymentStatus {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
