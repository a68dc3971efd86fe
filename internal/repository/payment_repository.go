package repository

import (
	"context"

	"app/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (int64, error)
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)
	// コールバック処理用（SELECT ... FOR UPDATE）。
	// 「もう払い済みか」の判断と更新を同じトランザクションで閉じる。
	FindByIDForUpdate(ctx context.Context, paymentID int64) (model.Payment, error)
	FindPendingByOrderID(ctx context.Context, orderID int64) (model.Payment, bool, error)
	FindPaidByOrderID(ctx context.Context, orderID int64) (model.Payment, bool, error)
	FindBySessionToken(ctx context.Context, token string) (model.Payment, bool, error)
	UpdateFields(ctx context.Context, paymentID int64, fields map[string]interface{}) error
}

// コールバックは追記のみ
type PaymentCallbackRepository interface {
	Create(ctx context.Context, cb model.PaymentCallback) error
	ListByPaymentID(ctx context.Context, paymentID int64) ([]model.PaymentCallback, error)
}
