package repository

import (
	"context"

	"app/internal/domain/model"
)

// カタログ側の窓口。チェックアウトの明細検証に使う分だけ。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
