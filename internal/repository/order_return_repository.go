package repository

import (
	"context"

	"app/internal/domain/model"
)

type AdminReturnListFilter struct {
	Page   int
	Limit  int
	Status string
}

type OrderReturnRepository interface {
	Create(ctx context.Context, r model.OrderReturn) (int64, error)
	FindByID(ctx context.Context, returnID int64) (model.OrderReturn, error)
	// 有効（REJECTED/CANCELLED以外）な返品を1件探す
	FindActiveByOrderID(ctx context.Context, orderID int64) (model.OrderReturn, bool, error)
	//返品コードの衝突チェック用
	ReturnCodeExists(ctx context.Context, code string) (bool, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.OrderReturn, int64, error)
	ListAdmin(ctx context.Context, f AdminReturnListFilter) ([]model.OrderReturn, int64, error)
	UpdateFields(ctx context.Context, returnID int64, fields map[string]interface{}) error
}
