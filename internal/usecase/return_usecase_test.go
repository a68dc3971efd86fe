package usecase

import (
	"context"
	"strings"
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newReturnMocks() (*TxManagerMock, *OrderRepoMock, *ReturnRepoMock) {
	tx := new(TxManagerMock)
	orders := new(OrderRepoMock)
	returns := new(ReturnRepoMock)

	tx.Repos = &TxReposMock{
		orders:  orders,
		returns: returns,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	return tx, orders, returns
}

func TestReturnUsecase_CreateReturn_Validation(t *testing.T) {
	tx := new(TxManagerMock)
	uc := NewReturnUsecase(tx)

	_, err := uc.CreateReturn(context.Background(), 7, CreateReturnInput{OrderID: 1, ReturnType: "XXX", Reason: "DEFECTIVE"})
	assertErrContains(t, err, "invalid return_type")

	_, err = uc.CreateReturn(context.Background(), 7, CreateReturnInput{OrderID: 1, ReturnType: "REFUND", Reason: "NO_REASON"})
	assertErrContains(t, err, "invalid reason")
}

func TestReturnUsecase_CreateReturn_Success(t *testing.T) {
	ctx := context.Background()
	tx, orders, returns := newReturnMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:          42,
		UserID:      7,
		Status:      model.OrderStatusDelivered,
		TotalAmount: 250000,
	}, nil)
	returns.On("FindActiveByOrderID", mock.Anything, int64(42)).Return(model.OrderReturn{}, false, nil)
	returns.On("ReturnCodeExists", mock.Anything, mock.Anything).Return(false, nil)

	returns.On("Create", mock.Anything, mock.MatchedBy(func(r model.OrderReturn) bool {
		return r.OrderID == 42 &&
			r.UserID == 7 &&
			strings.HasPrefix(r.ReturnCode, "RET") &&
			r.ReturnType == model.ReturnTypeRefund &&
			r.Reason == model.ReturnReasonDefective &&
			r.Status == model.ReturnStatusPending &&
			r.RefundAmount == 250000
	})).Return(int64(5), nil)

	uc := NewReturnUsecase(tx)
	out, err := uc.CreateReturn(ctx, 7, CreateReturnInput{
		OrderID:     42,
		ReturnType:  "refund",
		Reason:      "defective",
		Description: "sleeve torn",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ID)
	assert.Equal(t, "PENDING", out.Status)
	assert.Equal(t, int64(250000), out.RefundAmount)

	returns.AssertExpectations(t)
}

func TestReturnUsecase_CreateReturn_NotDelivered_Rejected(t *testing.T) {
	ctx := context.Background()
	tx, orders, returns := newReturnMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:     42,
		UserID: 7,
		Status: model.OrderStatusShipped,
	}, nil)

	uc := NewReturnUsecase(tx)
	_, err := uc.CreateReturn(ctx, 7, CreateReturnInput{OrderID: 42, ReturnType: "RETURN", Reason: "SIZE_ISSUE"})

	assertErrContains(t, err, "order is not delivered")
	returns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 注文ごとに有効な返品は1つまで
func TestReturnUsecase_CreateReturn_ActiveReturnExists_Conflict(t *testing.T) {
	ctx := context.Background()
	tx, orders, returns := newReturnMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:     42,
		UserID: 7,
		Status: model.OrderStatusDelivered,
	}, nil)
	returns.On("FindActiveByOrderID", mock.Anything, int64(42)).Return(model.OrderReturn{
		ID:     5,
		Status: model.ReturnStatusPending,
	}, true, nil)

	uc := NewReturnUsecase(tx)
	_, err := uc.CreateReturn(ctx, 7, CreateReturnInput{OrderID: 42, ReturnType: "RETURN", Reason: "OTHER"})

	assertErrContains(t, err, "return already requested")
	returns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReturnUsecase_CreateReturn_NotOwner_NotFound(t *testing.T) {
	ctx := context.Background()
	tx, orders, _ := newReturnMocks()

	orders.On("FindByIDForUpdate", mock.Anything, int64(42)).Return(model.Order{
		ID:     42,
		UserID: 999,
		Status: model.OrderStatusDelivered,
	}, nil)

	uc := NewReturnUsecase(tx)
	_, err := uc.CreateReturn(ctx, 7, CreateReturnInput{OrderID: 42, ReturnType: "RETURN", Reason: "OTHER"})

	assertErrContains(t, err, "not found")
}

func TestReturnUsecase_CancelMyReturn_PendingOnly(t *testing.T) {
	ctx := context.Background()
	tx, _, returns := newReturnMocks()

	returns.On("FindByID", mock.Anything, int64(5)).Return(model.OrderReturn{
		ID:     5,
		UserID: 7,
		Status: model.ReturnStatusPending,
	}, nil)
	returns.On("UpdateFields", mock.Anything, int64(5), mock.MatchedBy(func(fields map[string]interface{}) bool {
		st, ok := fields["status"].(model.ReturnStatus)
		return ok && st == model.ReturnStatusCancelled
	})).Return(nil)

	uc := NewReturnUsecase(tx)
	out, err := uc.CancelMyReturn(ctx, 7, 5)

	assert.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.Status)
}

func TestReturnUsecase_CancelMyReturn_Approved_Rejected(t *testing.T) {
	ctx := context.Background()
	tx, _, returns := newReturnMocks()

	returns.On("FindByID", mock.Anything, int64(5)).Return(model.OrderReturn{
		ID:     5,
		UserID: 7,
		Status: model.ReturnStatusApproved,
	}, nil)

	uc := NewReturnUsecase(tx)
	_, err := uc.CancelMyReturn(ctx, 7, 5)

	assertErrContains(t, err, "cannot transition from APPROVED to CANCELLED")
	returns.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}
