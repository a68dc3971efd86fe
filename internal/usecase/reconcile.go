package usecase

import (
	"context"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 注文ステータスの遷移と、それに連動する副作用（タイムスタンプ・在庫戻し）を
// 1トランザクション内でまとめて適用する。複数集約を触っていいのはここだけ。
// 呼び出し側はFOR UPDATEで取得した注文を渡すこと。
func applyOrderTransition(ctx context.Context, r repo.TxRepos, o model.Order, next model.OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return newInvalidTransition(string(o.Status), string(next))
	}

	fields := map[string]interface{}{
		"status": next,
	}

	// スタンプは初回だけ。再適用でも上書きしない。
	switch next {
	case model.OrderStatusShipped:
		if o.ShippedAt == nil {
			fields["shipped_at"] = now
		}
	case model.OrderStatusDelivered:
		if o.DeliveredAt == nil {
			fields["delivered_at"] = now
		}
	case model.OrderStatusCancelled, model.OrderStatusRefunded:
		// 引き当て済みの在庫を戻す。戻したらフラグを倒して二重戻しを防ぐ。
		if o.StockDeducted {
			if err := restoreOrderStock(ctx, r, o.ID); err != nil {
				return err
			}
			fields["stock_deducted"] = false
		}
	}

	if err := r.Orders().UpdateFields(ctx, o.ID, fields); err != nil {
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		return newDBError()
	}
	return nil
}

// 在庫単位にひも付く明細だけ数量を戻す
func restoreOrderStock(ctx context.Context, r repo.TxRepos, orderID int64) error {
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return newDBError()
	}

	for _, it := range items {
		if it.ProductSizeID == nil {
			continue
		}
		if err := r.Stock().Restore(ctx, *it.ProductSizeID, it.Quantity); err != nil {
			return newDBError()
		}
	}
	return nil
}
