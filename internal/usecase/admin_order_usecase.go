package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) ([]OrderOutput, int64, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Status != "" && !model.OrderStatus(in.Status).Valid() {
		return nil, 0, newValidationError("invalid status")
	}

	var (
		outs  []OrderOutput
		total int64
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, n, err := r.Orders().ListAdmin(ctx, repo.AdminOrderListFilter{
			Page:   in.Page,
			Limit:  in.Limit,
			Status: in.Status,
			UserID: in.UserID,
			From:   in.From,
			To:     in.To,
		})
		if err != nil {
			return newDBError()
		}
		total = n
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			outs = append(outs, toOrderOutput(o, nil))
		}
		return nil
	})

	if err != nil {
		return nil, 0, err
	}
	return outs, total, nil
}

func (u *AdminOrderUsecase) GetDetail(ctx context.Context, orderID int64) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return newDBError()
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type AdminUpdateOrderStatusInput struct {
	Status string `json:"status"`
}

// 管理者によるステータス更新。遷移表の検証と副作用はapplyOrderTransitionに委ねる。
// 同じステータスへの再送はno-op。REFUNDEDへの遷移は返金実行の専用経路だけ。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, adminUserID, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	next := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		return OrderOutput{}, newValidationError("invalid status")
	}
	if next == model.OrderStatusRefunded {
		return OrderOutput{}, newValidationError("use refund endpoint to refund an order")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}

		// 再送しても安全なように同値は成功扱い
		if o.Status == next {
			out = toOrderOutput(o, nil)
			return nil
		}

		before := o.Status
		now := time.Now()

		if err := applyOrderTransition(ctx, r, o, next, now); err != nil {
			return err
		}

		if err := writeOrderAudit(ctx, r, adminUserID, model.AuditActionUpdateOrderStatus, o.ID,
			map[string]interface{}{"status": before},
			map[string]interface{}{"status": next},
		); err != nil {
			return err
		}

		updated, err := r.Orders().FindByID(ctx, o.ID)
		if err != nil {
			return newDBError()
		}
		out = toOrderOutput(updated, nil)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type AdminUpdateTrackingInput struct {
	TrackingNumber    string     `json:"tracking_number"`
	ShippingMethod    string     `json:"shipping_method"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

// 配送情報の更新。終端（CANCELLED/REFUNDED）の注文には付けられない。
func (u *AdminOrderUsecase) UpdateTracking(ctx context.Context, adminUserID, orderID int64, in AdminUpdateTrackingInput) (OrderOutput, error) {
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	in.ShippingMethod = strings.TrimSpace(in.ShippingMethod)
	if in.TrackingNumber == "" {
		return OrderOutput{}, newValidationError("tracking_number required")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}

		if o.Status.Terminal() {
			return newValidationError("order is closed")
		}

		fields := map[string]interface{}{
			"tracking_number": in.TrackingNumber,
		}
		if in.ShippingMethod != "" {
			fields["shipping_method"] = in.ShippingMethod
		}
		if in.EstimatedDelivery != nil {
			fields["estimated_delivery"] = *in.EstimatedDelivery
		}

		if err := r.Orders().UpdateFields(ctx, o.ID, fields); err != nil {
			return newDBError()
		}

		if err := writeOrderAudit(ctx, r, adminUserID, model.AuditActionUpdateTracking, o.ID,
			map[string]interface{}{
				"tracking_number": o.TrackingNumber,
				"shipping_method": o.ShippingMethod,
			},
			map[string]interface{}{
				"tracking_number": in.TrackingNumber,
				"shipping_method": in.ShippingMethod,
			},
		); err != nil {
			return err
		}

		updated, err := r.Orders().FindByID(ctx, o.ID)
		if err != nil {
			return newDBError()
		}
		out = toOrderOutput(updated, nil)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type ExecuteRefundInput struct {
	Reason       string `json:"reason"`
	RefundAmount *int64 `json:"refund_amount"`
}

type ExecuteRefundOutput struct {
	OrderID      int64  `json:"order_id"`
	PaymentID    int64  `json:"payment_id"`
	RefundAmount int64  `json:"refund_amount"`
	Status       string `json:"status"`
}

// 返金の実行。DELIVEREDかつPAIDの注文に対してだけ。
// 返金額は省略時は支払い全額。支払い額を超える指定は拒否する。
// 決済→REFUNDED、注文→REFUNDED（在庫戻しはapplyOrderTransition側）。
func (u *AdminOrderUsecase) ExecuteRefund(ctx context.Context, adminUserID, orderID int64, in ExecuteRefundInput) (ExecuteRefundOutput, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return ExecuteRefundOutput{}, newValidationError("reason required")
	}

	var out ExecuteRefundOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}

		if o.Status != model.OrderStatusDelivered {
			return newInvalidTransition(string(o.Status), string(model.OrderStatusRefunded))
		}
		if o.PaymentStatus == nil || *o.PaymentStatus != model.PaymentStatusPaid {
			return newValidationError("order is not paid")
		}

		p, found, err := r.Payments().FindPaidByOrderID(ctx, o.ID)
		if err != nil {
			return newDBError()
		}
		if !found {
			return newValidationError("no paid payment for order")
		}

		refundAmount := p.Amount
		if in.RefundAmount != nil {
			if *in.RefundAmount <= 0 || *in.RefundAmount > p.Amount {
				return newValidationError("invalid refund_amount")
			}
			refundAmount = *in.RefundAmount
		}

		now := time.Now()

		if err := r.Payments().UpdateFields(ctx, p.ID, map[string]interface{}{
			"status": model.PaymentStatusRefunded,
		}); err != nil {
			return newDBError()
		}

		if err := applyOrderTransition(ctx, r, o, model.OrderStatusRefunded, now); err != nil {
			return err
		}
		if err := r.Orders().UpdateFields(ctx, o.ID, map[string]interface{}{
			"payment_status": model.PaymentStatusRefunded,
		}); err != nil {
			return newDBError()
		}

		if err := writeOrderAudit(ctx, r, adminUserID, model.AuditActionExecuteRefund, o.ID,
			map[string]interface{}{"status": o.Status, "payment_status": model.PaymentStatusPaid},
			map[string]interface{}{
				"status":         model.OrderStatusRefunded,
				"payment_status": model.PaymentStatusRefunded,
				"refund_amount":  refundAmount,
				"reason":         reason,
			},
		); err != nil {
			return err
		}

		out = ExecuteRefundOutput{
			OrderID:      o.ID,
			PaymentID:    p.ID,
			RefundAmount: refundAmount,
			Status:       string(model.OrderStatusRefunded),
		}
		return nil
	})

	if err != nil {
		return ExecuteRefundOutput{}, err
	}
	return out, nil
}

// 変更前後をJSONにして監査ログに残す
func writeOrderAudit(ctx context.Context, r repo.TxRepos, actorUserID int64, action model.AuditAction, orderID int64, before, after map[string]interface{}) error {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return newDBError()
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return newDBError()
	}

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    time.Now(),
	}); err != nil {
		return newDBError()
	}
	return nil
}
