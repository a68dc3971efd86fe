package repository

import (
	"context"

	"app/internal/domain/model"
)

// チェックアウトが消費するカート側の窓口。
// カート編集そのものは別システム扱い。
type CartRepository interface {
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error
	Clear(ctx context.Context, cartID int64) error
}
