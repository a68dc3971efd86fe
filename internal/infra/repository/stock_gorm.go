package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type StockGormRepository struct {
	db *gorm.DB
}

func NewStockGormRepository(db *gorm.DB) *StockGormRepository {
	return &StockGormRepository{db: db}
}

func (r *StockGormRepository) FindByID(ctx context.Context, productSizeID int64) (model.ProductSize, error) {
	var ps model.ProductSize
	err := r.db.WithContext(ctx).Where("id = ?", productSizeID).First(&ps).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductSize{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductSize{}, err
	}
	return ps, nil
}

func (r *StockGormRepository) GetAvailable(ctx context.Context, productSizeID int64) (int64, error) {
	ps, err := r.FindByID(ctx, productSizeID)
	if err != nil {
		return 0, err
	}
	return ps.Quantity, nil
}

// 在庫が足りるときだけ減らす。
// 同じ行への同時減算でも合計が在庫を超えないよう、条件付きUPDATE一発で判定する。
func (r *StockGormRepository) DeductIfAvailable(ctx context.Context, productSizeID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ProductSize{}).
		Where("id = ? AND quantity >= ?", productSizeID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル・返金）
func (r *StockGormRepository) Restore(ctx context.Context, productSizeID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductSize{}).
		Where("id = ?", productSizeID).
		Update("quantity", gorm.Expr("quantity + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 管理者の在庫調整。調整履歴も同時に作る。
func (r *StockGormRepository) AdjustWithLog(ctx context.Context, adminUserID int64, productSizeID int64, delta int64, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if delta < 0 {
			res := tx.Model(&model.ProductSize{}).
				Where("id = ? AND quantity >= ?", productSizeID, -delta).
				Update("quantity", gorm.Expr("quantity + ?", delta))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
		} else {
			res := tx.Model(&model.ProductSize{}).
				Where("id = ?", productSizeID).
				Update("quantity", gorm.Expr("quantity + ?", delta))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
		}

		adj := model.StockAdjustment{
			ProductSizeID: productSizeID,
			AdminUserID:   adminUserID,
			Delta:         delta,
			Reason:        reason,
			CreatedAt:     time.Now(),
		}
		return tx.Create(&adj).Error
	})
}
