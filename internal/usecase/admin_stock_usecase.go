package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminStockUsecase struct {
	tx repo.TransactionManager
}

func NewAdminStockUsecase(tx repo.TransactionManager) *AdminStockUsecase {
	return &AdminStockUsecase{tx: tx}
}

type AdjustStockInput struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

type AdjustStockOutput struct {
	ProductSizeID int64 `json:"product_size_id"`
	Quantity      int64 `json:"quantity"`
	Delta         int64 `json:"delta"`
}

// 管理者による在庫調整。マイナス調整で在庫を割り込む操作は拒否。
func (u *AdminStockUsecase) Adjust(ctx context.Context, adminUserID, productSizeID int64, in AdjustStockInput) (AdjustStockOutput, error) {
	if in.Delta == 0 {
		return AdjustStockOutput{}, newValidationError("delta must be non-zero")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return AdjustStockOutput{}, newValidationError("reason required")
	}

	var out AdjustStockOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Stock().GetAvailable(ctx, productSizeID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}

		if err := r.Stock().AdjustWithLog(ctx, adminUserID, productSizeID, in.Delta, reason); err != nil {
			if err == repo.ErrNotFound {
				// マイナス調整で在庫が足りない場合もここに落ちる
				return newInsufficientStock(before)
			}
			return newDBError()
		}

		after, err := r.Stock().GetAvailable(ctx, productSizeID)
		if err != nil {
			return newDBError()
		}

		beforeJSON, _ := json.Marshal(map[string]interface{}{"quantity": before})
		afterJSON, _ := json.Marshal(map[string]interface{}{"quantity": after, "delta": in.Delta, "reason": reason})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionAdjustStock,
			ResourceType: model.AuditResourceStock,
			ResourceID:   productSizeID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    time.Now(),
		}); err != nil {
			return newDBError()
		}

		out = AdjustStockOutput{
			ProductSizeID: productSizeID,
			Quantity:      after,
			Delta:         in.Delta,
		}
		return nil
	})

	if err != nil {
		return AdjustStockOutput{}, err
	}
	return out, nil
}
