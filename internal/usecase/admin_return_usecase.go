package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminReturnUsecase struct {
	tx repo.TransactionManager
}

func NewAdminReturnUsecase(tx repo.TransactionManager) *AdminReturnUsecase {
	return &AdminReturnUsecase{tx: tx}
}

type AdminReturnListInput struct {
	Page   int
	Limit  int
	Status string
}

func (u *AdminReturnUsecase) List(ctx context.Context, in AdminReturnListInput) ([]ReturnOutput, int64, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Status != "" && !model.ReturnStatus(in.Status).Valid() {
		return nil, 0, newValidationError("invalid status")
	}

	var (
		outs  []ReturnOutput
		total int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rets, n, err := r.Returns().ListAdmin(ctx, repo.AdminReturnListFilter{
			Page:   in.Page,
			Limit:  in.Limit,
			Status: in.Status,
		})
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

type AdminUpdateReturnStatusInput struct {
	Status       string `json:"status"`
	AdminNotes   string `json:"admin_notes"`
	RefundAmount *int64 `json:"refund_amount"`
}

// 返品ステータスの更新。遷移表で検証し、承認・完了のスタンプは初回だけ押す。
// 返金額の確定は承認時にだけ上書きできる。
func (u *AdminReturnUsecase) UpdateStatus(ctx context.Context, adminUserID, returnID int64, in AdminUpdateReturnStatusInput) (ReturnOutput, error) {
	next := model.ReturnStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		return ReturnOutput{}, newValidationError("invalid status")
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

		// 再送は成功扱い
		if ret.Status == next {
			out = toReturnOutput(ret)
			return nil
		}

		if !ret.Status.CanTransitionTo(next) {
			return newInvalidTransition(string(ret.Status), string(next))
		}

		now := time.Now()
		fields := map[string]interface{}{
			"status": next,
		}

		switch next {
		case model.ReturnStatusApproved:
			if ret.ApprovedAt == nil {
				fields["approved_at"] = now
			}
			if in.RefundAmount != nil {
				if *in.RefundAmount < 0 || *in.RefundAmount > ret.RefundAmount {
					return newValidationError("invalid refund_amount")
				}
				fields["refund_amount"] = *in.RefundAmount
			}
		case model.ReturnStatusCompleted:
			if ret.CompletedAt == nil {
				fields["completed_at"] = now
			}
		}

		if notes := strings.TrimSpace(in.AdminNotes); notes != "" {
			fields["admin_notes"] = notes
		}

		if err := r.Returns().UpdateFields(ctx, ret.ID, fields); err != nil {
			return newDBError()
		}

		beforeJSON, _ := json.Marshal(map[string]interface{}{"status": ret.Status, "refund_amount": ret.RefundAmount})
		afterJSON, _ := json.Marshal(fields)
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateReturnStatus,
			ResourceType: model.AuditResourceReturn,
			ResourceID:   ret.ID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    now,
		}); err != nil {
			return newDBError()
		}

		updated, err := r.Returns().FindByID(ctx, ret.ID)
		if err != nil {
			return newDBError()
		}
		out = toReturnOutput(updated)
		return nil
	})

	if err != nil {
		return ReturnOutput{}, err
	}
	return out, nil
}
