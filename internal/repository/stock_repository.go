package repository

import (
	"context"

	"app/internal/domain/model"
)

// 在庫単位（商品×色×サイズ）の台帳。
type StockRepository interface {
	FindByID(ctx context.Context, productSizeID int64) (model.ProductSize, error)
	GetAvailable(ctx context.Context, productSizeID int64) (int64, error)

	// 足りるときだけ減算。読み→書きではなく条件付きUPDATE一発で行うこと。
	DeductIfAvailable(ctx context.Context, productSizeID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル・返金）。無条件加算。
	Restore(ctx context.Context, productSizeID int64, qty int64) error

	// 管理者の在庫調整（調整履歴も同時に作る）
	AdjustWithLog(ctx context.Context, adminUserID int64, productSizeID int64, delta int64, reason string) error
}
