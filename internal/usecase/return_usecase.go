package usecase

import (
	"context"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

const returnCodeMaxAttempts = 5

type ReturnUsecase struct {
	tx repo.TransactionManager
}

func NewReturnUsecase(tx repo.TransactionManager) *ReturnUsecase {
	return &ReturnUsecase{tx: tx}
}

type CreateReturnInput struct {
	OrderID     int64  `json:"order_id"`
	ReturnType  string `json:"return_type"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type ReturnOutput struct {
	ID           int64      `json:"id"`
	OrderID      int64      `json:"order_id"`
	ReturnCode   string     `json:"return_code"`
	ReturnType   string     `json:"return_type"`
	Reason       string     `json:"reason"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	RefundAmount int64      `json:"refund_amount"`
	AdminNotes   string     `json:"admin_notes,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toReturnOutput(r model.OrderReturn) ReturnOutput {
	return ReturnOutput{
		ID:           r.ID,
		OrderID:      r.OrderID,
		ReturnCode:   r.ReturnCode,
		ReturnType:   string(r.ReturnType),
		Reason:       string(r.Reason),
		Description:  r.Description,
		Status:       string(r.Status),
		RefundAmount: r.RefundAmount,
		AdminNotes:   r.AdminNotes,
		ApprovedAt:   r.ApprovedAt,
		CompletedAt:  r.CompletedAt,
		CreatedAt:    r.CreatedAt,
	}
}

// 返品申請。DELIVEREDの注文にだけ作れて、有効な申請は注文ごとに1つまで。
func (u *ReturnUsecase) CreateReturn(ctx context.Context, userID int64, in CreateReturnInput) (ReturnOutput, error) {
	if userID <= 0 {
		return ReturnOutput{}, newUnauthorized()
	}
	if in.OrderID <= 0 {
		return ReturnOutput{}, newValidationError("invalid order_id")
	}

	returnType := model.ReturnType(strings.ToUpper(strings.TrimSpace(in.ReturnType)))
	if !returnType.Valid() {
		return ReturnOutput{}, newValidationError("invalid return_type")
	}
	reason := model.ReturnReason(strings.ToUpper(strings.TrimSpace(in.Reason)))
	if !reason.Valid() {
		return ReturnOutput{}, newValidationError("invalid reason")
	}

	var out ReturnOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		if o.UserID != userID {
			return newNotFound()
		}

		if o.Status != model.OrderStatusDelivered {
			return newValidationError("order is not delivered")
		}

		if _, found, err := r.Returns().FindActiveByOrderID(ctx, o.ID); err != nil {
			return newDBError()
		} else if found {
			return newConflict("return already requested for this order")
		}

		code, err := generateReturnCode(ctx, r)
		if err != nil {
			return err
		}

		now := time.Now()
		ret := model.OrderReturn{
			OrderID:     o.ID,
			UserID:      userID,
			ReturnCode:  code,
			ReturnType:  returnType,
			Reason:      reason,
			Description: strings.TrimSpace(in.Description),
			Status:      model.ReturnStatusPending,
			// 申請時点では注文の支払総額をそのまま候補にする。確定は管理者側。
			RefundAmount: o.TotalAmount,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		id, err := r.Returns().Create(ctx, ret)
		if err != nil {
			return newDBError()
		}
		ret.ID = id
		out = toReturnOutput(ret)
		return nil
	})

	if err != nil {
		return ReturnOutput{}, err
	}
	return out, nil
}

// "RET" + UUID先頭10桁。衝突したら引き直す。
func generateReturnCode(ctx context.Context, r repo.TxRepos) (string, error) {
	for i := 0; i < returnCodeMaxAttempts; i++ {
		code := "RET" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
		exists, err := r.Returns().ReturnCodeExists(ctx, code)
		if err != nil {
			return "", newDBError()
		}
		if !exists {
			return code, nil
		}
	}
	return "", newDBError()
}

func (u *ReturnUsecase) ListMyReturns(ctx context.Context, userID int64, page, limit int) ([]ReturnOutput, int64, error) {
	if userID <= 0 {
		return nil, 0, newUnauthorized()
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var (
		outs  []ReturnOutput
		total int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rets, n, err := r.Returns().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return newDBError()
		}
		total = n
		outs = make([]ReturnOutput, 0, len(rets))
		for _, ret := range rets {
			outs = append(outs, toReturnOutput(ret))
		}
		return nil
	})

	if err != nil {
		return nil, 0, err
	}
	return outs, total, nil
}

func (u *ReturnUsecase) GetMyReturnDetail(ctx context.Context, userID, returnID int64) (ReturnOutput, error) {
	if userID <= 0 {
		return ReturnOutput{}, newUnauthorized()
	}

	var out ReturnOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ret, err := r.Returns().FindByID(ctx, returnID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		if ret.UserID != userID {
			return newNotFound()
		}
		out = toReturnOutput(ret)
		return nil
	})

	if err != nil {
		return ReturnOutput{}, err
	}
	return out, nil
}

// 申請者による取り下げ。PENDINGの間だけ。
func (u *ReturnUsecase) CancelMyReturn(ctx context.Context, userID, returnID int64) (ReturnOutput, error) {
	if userID <= 0 {
		return ReturnOutput{}, newUnauthorized()
	}

	var out ReturnOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ret, err := r.Returns().FindByID(ctx, returnID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		if ret.UserID != userID {
			return newNotFound()
		}

		if !ret.Status.CanTransitionTo(model.ReturnStatusCancelled) {
			return newInvalidTransition(string(ret.Status), string(model.ReturnStatusCancelled))
		}

		if err := r.Returns().UpdateFields(ctx, ret.ID, map[string]interface{}{
			"status": model.ReturnStatusCancelled,
		}); err != nil {
			return newDBError()
		}

		ret.Status = model.ReturnStatusCancelled
		out = toReturnOutput(ret)
		return nil
	})

	if err != nil {
		return ReturnOutput{}, err
	}
	return out, nil
}
