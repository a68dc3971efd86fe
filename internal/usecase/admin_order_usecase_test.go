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

func newAdminOrderMocks() (*TxManagerMock, *OrderRepoMock, *OrderItemRepoMock, *StockRepoMock, *PaymentRepoMock, *AuditRepoMock) {
	tx := new(TxManagerMock)
	orders := new(OrderRepoMock)
	items := new(OrderItemRepoMock)
	stock := new(StockRepoMock)
	payments := new(PaymentRepoMock)
	audits := new(AuditRepoMock)

	tx.Repos = &TxReposMock{
		orders:   orders,
		items:    items,
		stock:    stock,
		payments: payments,
		audits:   audits,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	return tx, orders, items, stock, payments, audits
}

func TestAdminOrderUsecase_UpdateStatus_InvalidStatus(t *testing.T) {
	tx := new(TxManagerMock)
	uc := NewAdminOrderUsecase(tx)

	_, err := uc.UpdateStatus(context.Background(), 1, 42, AdminUpdateOrderStatusInput{Status: "XXX"})
	assertErrContains(t, err, "invalid status")
}

// REFUNDEDへの遷移は返金専用エンドポイント経由だけ
func TestAdminOrderUsecase_UpdateStatus_RefundedViaStatus_Rejected(t *testing.T) {
	tx := new(TxManagerMock)
	uc := NewAdminOrderUsecase(tx)

	_, err := uc.UpdateStatus(context.Background(), 1, 42, AdminUpdateOrderStatusInput{Status: "REFUNDED"})
	assertErrContains(t, err, "use refund endpoint")
}

func TestAdminOrderUsecase_UpdateStatus_SameStatus_NoOp(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, audits := newAdminOrderMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:     42,
		Status: model.OrderStatusConfirmed,
	}, nil)

	uc := NewAdminOrderUsecase(tx)
	out, err := uc.UpdateStatus(ctx, 1, 42, AdminUpdateOrderStatusInput{Status: "CONFIRMED"})

	assert.NoError(t, err)
	assert.Equal(t, "CONFIRMED", out.Status)

	orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 遷移表にないペアは全部拒否
func TestAdminOrderUsecase_UpdateStatus_InvalidTransitions(t *testing.T) {
	cases := []struct {
		from model.OrderStatus
		to   string
	}{
		{model.OrderStatusPending, "SHIPPED"},
		{model.OrderStatusPending, "DELIVERED"},
		{model.OrderStatusConfirmed, "DELIVERED"},
		{model.OrderStatusShipped, "PROCESSING"},
		{model.OrderStatusCancelled, "CONFIRMED"},
		{model.OrderStatusDelivered, "CANCELLED"},
	}

	for _, tc := range cases {
		ctx := context.Background()
		tx, orders, _, _, _, _ := newAdminOrderMocks()

		orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
			ID:     42,
			Status: tc.from,
		}, nil)

		uc := NewAdminOrderUsecase(tx)
		_, err := uc.UpdateStatus(ctx, 1, 42, AdminUpdateOrderStatusInput{Status: tc.to})

		assertErrContains(t, err, "cannot transition")
		orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestAdminOrderUsecase_UpdateStatus_ShippedStampsTimestamp_AndAudits(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, audits := newAdminOrderMocks()

	adminID := int64(99)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:     42,
		Status: model.OrderStatusProcessing,
	}, nil)

	orders.On("UpdateFields", mock.Anything, int64(42), mock.MatchedBy(func(fields map[string]interface{}) bool {
		st, _ := fields["status"].(model.OrderStatus)
		_, hasStamp := fields["shipped_at"]
		return st == model.OrderStatusShipped && hasStamp
	})).Return(nil)

	audits.On("Create", mock.Anything, mock.MatchedBy(func(a model.AuditLog) bool {
		return a.ActorUserID == adminID &&
			a.Action == model.AuditActionUpdateOrderStatus &&
			a.ResourceType == model.AuditResourceOrder &&
			a.ResourceID == 42 &&
			a.BeforeJSON == `{"status":"PROCESSING"}` &&
			a.AfterJSON == `{"status":"SHIPPED"}`
	})).Return(nil)

	shippedAt := time.Now()
	orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID:        42,
		Status:    model.OrderStatusShipped,
		ShippedAt: &shippedAt,
	}, nil)

	uc := NewAdminOrderUsecase(tx)
	out, err := uc.UpdateStatus(ctx, adminID, 42, AdminUpdateOrderStatusInput{Status: "SHIPPED"})

	assert.NoError(t, err)
	assert.Equal(t, "SHIPPED", out.Status)
	assert.NotNil(t, out.ShippedAt)

	orders.AssertExpectations(t)
	audits.AssertExpectations(t)
}

// 既にスタンプ済みなら上書きしない
func TestAdminOrderUsecase_UpdateStatus_ShippedStamp_NotOverwritten(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, audits := newAdminOrderMocks()

	already := time.Now().Add(-time.Hour)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:        42,
		Status:    model.OrderStatusProcessing,
		ShippedAt: &already,
	}, nil)

	orders.On("UpdateFields", mock.Anything, int64(42), mock.MatchedBy(func(fields map[string]interface{}) bool {
		_, hasStamp := fields["shipped_at"]
		return !hasStamp
	})).Return(nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{ID: 42, Status: model.OrderStatusShipped, ShippedAt: &already}, nil)

	uc := NewAdminOrderUsecase(tx)
	_, err := uc.UpdateStatus(ctx, 1, 42, AdminUpdateOrderStatusInput{Status: "SHIPPED"})

	assert.NoError(t, err)
	orders.AssertExpectations(t)
}

// 引き当て済み注文のキャンセルは在庫を戻す
func TestAdminOrderUsecase_UpdateStatus_Cancel_RestoresStock(t *testing.T) {
	ctx := context.Background()
	tx, orders, items, stock, _, audits := newAdminOrderMocks()

	sizeID := int64(500)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:            42,
		Status:        model.OrderStatusConfirmed,
		StockDeducted: true,
	}, nil)

	items.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 100, ProductSizeID: &sizeID, Quantity: 2},
	}, nil)
	stock.On("Restore", mock.Anything, sizeID, int64(2)).Return(nil)

	orders.On("UpdateFields", mock.Anything, int64(42), mock.MatchedBy(func(fields map[string]interface{}) bool {
		st, _ := fields["status"].(model.OrderStatus)
		deducted, ok := fields["stock_deducted"].(bool)
		return st == model.OrderStatusCancelled && ok && !deducted
	})).Return(nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{ID: 42, Status: model.OrderStatusCancelled}, nil)

	uc := NewAdminOrderUsecase(tx)
	_, err := uc.UpdateStatus(ctx, 1, 42, AdminUpdateOrderStatusInput{Status: "CANCELLED"})

	assert.NoError(t, err)
	stock.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestAdminOrderUsecase_UpdateTracking_TerminalOrder_Rejected(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, _ := newAdminOrderMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:     42,
		Status: model.OrderStatusCancelled,
	}, nil)

	uc := NewAdminOrderUsecase(tx)
	_, err := uc.UpdateTracking(ctx, 1, 42, AdminUpdateTrackingInput{TrackingNumber: "VN123"})

	assertErrContains(t, err, "order is closed")
	orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_ExecuteRefund_Success(t *testing.T) {
	ctx := context.Background()
	tx, orders, items, stock, payments, audits := newAdminOrderMocks()

	adminID := int64(99)
	sizeID := int64(500)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:            42,
		Status:        model.OrderStatusDelivered,
		PaymentStatus: paymentStatusPtr(model.PaymentStatusPaid),
		TotalAmount:   250000,
		StockDeducted: true,
	}, nil)

	payments.On("FindPaidByOrderID", mock.Anything, int64(42)).Return(model.Payment{
		ID:      10,
		OrderID: 42,
		Amount:  250000,
		Status:  model.PaymentStatusPaid,
	}, true, nil)

	payments.On("UpdateFields", mock.Anything, int64(10), mock.MatchedBy(func(fields map[string]interface{}) bool {
		st, ok := fields["status"].(model.PaymentStatus)
		return ok && st == model.PaymentStatusRefunded
	})).Return(nil)

	// DELIVERED→REFUNDED の副作用として在庫を戻す
	items.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 100, ProductSizeID: &sizeID, Quantity: 2},
	}, nil)
	stock.On("Restore", mock.Anything, sizeID, int64(2)).Return(nil)

	orders.On("UpdateFields", mock.Anything, int64(42), mock.MatchedBy(func(fields map[string]interface{}) bool {
		st, ok := fields["status"].(model.OrderStatus)
		return ok && st == model.OrderStatusRefunded
	})).Return(nil)
	orders.On("UpdateFields", mock.Anything, int64(42), mock.MatchedBy(func(fields map[string]interface{}) bool {
		ps, ok := fields["payment_status"].(model.PaymentStatus)
		return ok && ps == model.PaymentStatusRefunded
	})).Return(nil)

	audits.On("Create", mock.Anything, mock.MatchedBy(func(a model.AuditLog) bool {
		return a.ActorUserID == adminID &&
			a.Action == model.AuditActionExecuteRefund &&
			a.ResourceID == 42 &&
			strings.Contains(a.AfterJSON, `"refund_amount":250000`) &&
			strings.Contains(a.AfterJSON, `"reason":"damaged on arrival"`)
	})).Return(nil)

	uc := NewAdminOrderUsecase(tx)
	out, err := uc.ExecuteRefund(ctx, adminID, 42, ExecuteRefundInput{Reason: "damaged on arrival"})

	assert.NoError(t, err)
	assert.Equal(t, int64(10), out.PaymentID)
	assert.Equal(t, int64(250000), out.RefundAmount)
	assert.Equal(t, "REFUNDED", out.Status)

	payments.AssertExpectations(t)
	stock.AssertExpectations(t)
	audits.AssertExpectations(t)
}

// 一部返金。指定額が支払い額以下なら通り、出力と監査に載る。
func TestAdminOrderUsecase_ExecuteRefund_PartialAmount(t *testing.T) {
	ctx := context.Background()
	tx, orders, items, stock, payments, audits := newAdminOrderMocks()

	sizeID := int64(500)
	partial := int64(100000)

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:            42,
		Status:        model.OrderStatusDelivered,
		PaymentStatus: paymentStatusPtr(model.PaymentStatusPaid),
		StockDeducted: true,
	}, nil)
	payments.On("FindPaidByOrderID", mock.Anything, int64(42)).Return(model.Payment{
		ID:     10,
		Amount: 250000,
		Status: model.PaymentStatusPaid,
	}, true, nil)
	payments.On("UpdateFields", mock.Anything, int64(10), mock.Anything).Return(nil)
	items.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 100, ProductSizeID: &sizeID, Quantity: 1},
	}, nil)
	stock.On("Restore", mock.Anything, sizeID, int64(1)).Return(nil)
	orders.On("UpdateFields", mock.Anything, int64(42), mock.Anything).Return(nil)

	audits.On("Create", mock.Anything, mock.MatchedBy(func(a model.AuditLog) bool {
		return strings.Contains(a.AfterJSON, `"refund_amount":100000`)
	})).Return(nil)

	uc := NewAdminOrderUsecase(tx)
	out, err := uc.ExecuteRefund(ctx, 1, 42, ExecuteRefundInput{
		Reason:       "partial compensation",
		RefundAmount: &partial,
	})

	assert.NoError(t, err)
	assert.Equal(t, partial, out.RefundAmount)
	audits.AssertExpectations(t)
}

// 支払い額を超える返金は拒否
func TestAdminOrderUsecase_ExecuteRefund_AmountAbovePaid_Rejected(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, payments, audits := newAdminOrderMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:            42,
		Status:        model.OrderStatusDelivered,
		PaymentStatus: paymentStatusPtr(model.PaymentStatusPaid),
	}, nil)
	payments.On("FindPaidByOrderID", mock.Anything, int64(42)).Return(model.Payment{
		ID:     10,
		Amount: 250000,
		Status: model.PaymentStatusPaid,
	}, true, nil)

	tooMuch := int64(300000)
	uc := NewAdminOrderUsecase(tx)
	_, err := uc.ExecuteRefund(ctx, 1, 42, ExecuteRefundInput{
		Reason:       "over refund",
		RefundAmount: &tooMuch,
	})

	assertErrContains(t, err, "invalid refund_amount")
	payments.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_ExecuteRefund_ReasonRequired(t *testing.T) {
	tx := new(TxManagerMock)
	uc := NewAdminOrderUsecase(tx)

	_, err := uc.ExecuteRefund(context.Background(), 1, 42, ExecuteRefundInput{Reason: "  "})
	assertErrContains(t, err, "reason required")
}

func TestAdminOrderUsecase_ExecuteRefund_NotDelivered_Rejected(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, payments, _ := newAdminOrderMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:            42,
		Status:        model.OrderStatusShipped,
		PaymentStatus: paymentStatusPtr(model.PaymentStatusPaid),
	}, nil)

	uc := NewAdminOrderUsecase(tx)
	_, err := uc.ExecuteRefund(ctx, 1, 42, ExecuteRefundInput{Reason: "customer request"})

	assertErrContains(t, err, "cannot transition")
	payments.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_ExecuteRefund_NotPaid_Rejected(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, payments, _ := newAdminOrderMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:            42,
		Status:        model.OrderStatusDelivered,
		PaymentStatus: paymentStatusPtr(model.PaymentStatusPending),
	}, nil)

	uc := NewAdminOrderUsecase(tx)
	_, err := uc.ExecuteRefund(ctx, 1, 42, ExecuteRefundInput{Reason: "customer request"})

	assertErrContains(t, err, "order is not paid")
	payments.AssertNotCalled(t, "FindPaidByOrderID", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_List_InvalidStatus(t *testing.T) {
	tx := new(TxManagerMock)
	uc := NewAdminOrderUsecase(tx)

	_, _, err := uc.List(context.Background(), AdminOrderListInput{Status: "XXX"})
	assertErrContains(t, err, "invalid status")
}

func TestAdminOrderUsecase_List_PassesFilter(t *testing.T) {
	ctx := context.Background()
	tx, orders, _, _, _, _ := newAdminOrderMocks()

	orders.On("ListAdmin", mock.Anything, mock.MatchedBy(func(f repo.AdminOrderListFilter) bool {
		return f.Page == 1 && f.Limit == 20 && f.Status == "PENDING"
	})).Return([]model.Order{{ID: 1, Status: model.OrderStatusPending}}, int64(1), nil)

	uc := NewAdminOrderUsecase(tx)
	outs, total, err := uc.List(ctx, AdminOrderListInput{Status: "PENDING"})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, outs, 1)
}
