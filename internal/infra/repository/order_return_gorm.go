package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type OrderReturnGormRepository struct {
	db *gorm.DB
}

func NewOrderReturnGormRepository(db *gorm.DB) *OrderReturnGormRepository {
	return &OrderReturnGormRepository{db: db}
}

func (r *OrderReturnGormRepository) Create(ctx context.Context, ret model.OrderReturn) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&ret).Error; err != nil {
		return 0, err
	}
	return ret.ID, nil
}

func (r *OrderReturnGormRepository) FindByID(ctx context.Context, returnID int64) (model.OrderReturn, error) {
	var ret model.OrderReturn
	err := r.db.WithContext(ctx).Where("id = ?", returnID).First(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OrderReturn{}, repo.ErrNotFound
	}
	if err != nil {
		return model.OrderReturn{}, err
	}
	return ret, nil
}

// REJECTED/CANCELLED以外の返品が既にあるかを見る
func (r *OrderReturnGormRepository) FindActiveByOrderID(ctx context.Context, orderID int64) (model.OrderReturn, bool, error) {
	var ret model.OrderReturn
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status NOT IN ?", orderID,
			[]model.ReturnStatus{model.ReturnStatusRejected, model.ReturnStatusCancelled}).
		Order("id desc").
		First(&ret).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OrderReturn{}, false, nil
	}
	if err != nil {
		return model.OrderReturn{}, false, err
	}
	return ret, true, nil
}

func (r *OrderReturnGormRepository) ReturnCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderReturn{}).
		Where("return_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *OrderReturnGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.OrderReturn, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.OrderReturn{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.OrderReturn{}, 0, err
	}

	var items []model.OrderReturn
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.OrderReturn{}, 0, err
	}

	return items, total, nil
}

func (r *OrderReturnGormRepository) ListAdmin(ctx context.Context, f repo.AdminReturnListFilter) ([]model.OrderReturn, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.OrderReturn{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.OrderReturn{}, 0, err
	}

	var items []model.OrderReturn
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.OrderReturn{}, 0, err
	}

	return items, total, nil
}

func (r *OrderReturnGormRepository) UpdateFields(ctx context.Context, returnID int64, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.OrderReturn{}).
		Where("id = ?", returnID).
		Updates(fields)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
