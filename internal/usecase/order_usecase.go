package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// チェックアウト時の金額ポリシー。作成時に確定し、以後は再計算しない。
const (
	taxRatePercent     = 10
	defaultShippingFee = 30000
)

// 注文番号の衝突時の再試行上限
const orderNumberMaxAttempts = 5

type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type PlaceOrderInput struct {
	ShippingAddress model.OrderAddress
	BillingAddress  model.OrderAddress
	IdempotencyKey  string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Total     int64  `json:"total"`
}

type OrderOutput struct {
	ID             int64             `json:"id"`
	OrderNumber    string            `json:"order_number"`
	UserID         int64             `json:"user_id"`
	Status         string            `json:"status"`
	PaymentStatus  string            `json:"payment_status,omitempty"`
	Subtotal       int64             `json:"subtotal"`
	TaxAmount      int64             `json:"tax_amount"`
	ShippingFee    int64             `json:"shipping_fee"`
	DiscountAmount int64             `json:"discount_amount"`
	TotalAmount    int64             `json:"total_amount"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	ShippedAt      *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time        `json:"delivered_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Items          []OrderItemOutput `json:"items"`
}

// チェックアウト。カートを消費して注文を作る。
// 在庫引き当てはここで一回だけ。1行でも足りなければ全体をロールバックする。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, newUnauthorized()
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, newValidationError("invalid idempotency_key")
	}
	if strings.TrimSpace(in.ShippingAddress.Name) == "" || strings.TrimSpace(in.ShippingAddress.Line1) == "" {
		return OrderOutput{}, newValidationError("invalid shipping_address")
	}
	billing := in.BillingAddress
	if strings.TrimSpace(billing.Line1) == "" {
		//請求先が空なら配送先と同じ
		billing = in.ShippingAddress
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return newDBError()
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return newDBError()
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return newValidationError("cart empty")
		}
		if err != nil {
			return newDBError()
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return newDBError()
		}
		if len(cartItems) == 0 {
			return newValidationError("cart empty")
		}

		//明細ごとに検証して在庫を引き当てる
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		var subtotal int64 = 0

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return newValidationError("product no longer available")
			}
			if err != nil {
				return newDBError()
			}
			if !p.IsActive {
				return newValidationError("product no longer available")
			}

			ps, err := r.Stock().FindByID(ctx, ci.ProductSizeID)
			if err == repo.ErrNotFound {
				return newValidationError("product no longer available")
			}
			if err != nil {
				return newDBError()
			}
			if ps.ProductID != ci.ProductID {
				return newValidationError("invalid cart line")
			}

			//在庫減算（足りないなら失敗→Tx全体が巻き戻る）
			ok, err := r.Stock().DeductIfAvailable(ctx, ci.ProductSizeID, ci.Quantity)
			if err != nil {
				return newDBError()
			}
			if !ok {
				available, err := r.Stock().GetAvailable(ctx, ci.ProductSizeID)
				if err != nil {
					return newDBError()
				}
				return newInsufficientStock(available)
			}

			//スナップショット
			sizeID := ci.ProductSizeID
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductSizeID:       &sizeID,
				ProductNameSnapshot: p.Name,
				SKUSnapshot:         ps.SKU,
				ColorSnapshot:       ps.Color,
				SizeSnapshot:        ps.Size,
				UnitPriceSnapshot:   ci.UnitPriceSnapshot,
				Quantity:            ci.Quantity,
				TotalPrice:          ci.UnitPriceSnapshot * ci.Quantity,
				CreatedAt:           time.Now(),
			})

			subtotal += ci.UnitPriceSnapshot * ci.Quantity
		}

		//金額スナップショット確定
		taxAmount := subtotal * taxRatePercent / 100
		shippingFee := int64(defaultShippingFee)
		var discount int64 = 0
		total := subtotal + taxAmount + shippingFee - discount

		orderNumber, err := u.generateOrderNumber(ctx, r)
		if err != nil {
			return err
		}

		now := time.Now()
		pending := model.PaymentStatusPending
		orderID, err := r.Orders().Create(ctx, model.Order{
			OrderNumber:     orderNumber,
			UserID:          userID,
			Status:          model.OrderStatusPending,
			PaymentStatus:   &pending,
			Subtotal:        subtotal,
			TaxAmount:       taxAmount,
			ShippingFee:     shippingFee,
			DiscountAmount:  discount,
			TotalAmount:     total,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  billing,
			StockDeducted:   true,
			IdempotencyKey:  key,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			//競合（同時に同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return newDBError()
				}
				out = toOrderOutput(ex2, items2)
				return nil
			}
			return newConflict("idempotency conflict")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return newDBError()
		}

		//カートをCHECKED_OUTにして明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return newDBError()
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return newDBError()
		}

		created := model.Order{
			ID:              orderID,
			OrderNumber:     orderNumber,
			UserID:          userID,
			Status:          model.OrderStatusPending,
			PaymentStatus:   &pending,
			Subtotal:        subtotal,
			TaxAmount:       taxAmount,
			ShippingFee:     shippingFee,
			DiscountAmount:  discount,
			TotalAmount:     total,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  billing,
			CreatedAt:       now,
		}
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 注文番号は日付＋ランダム。衝突したら作り直す。
func (u *OrderUsecase) generateOrderNumber(ctx context.Context, r repo.TxRepos) (string, error) {
	for i := 0; i < orderNumberMaxAttempts; i++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		candidate := fmt.Sprintf("ORD%s-%s", time.Now().Format("20060102"), suffix)

		exists, err := r.Orders().OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", newDBError()
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", newConflict("could not allocate order number")
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, newUnauthorized()
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return newDBError()
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return newDBError()
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, newUnauthorized()
	}
	if orderID <= 0 {
		return OrderOutput{}, newValidationError("invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return newNotFound()
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
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

// ユーザー自身によるキャンセル。
// 引き当て済みなら在庫も戻す（遷移副作用として同一Txで行う）。
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, userID int64, orderID int64, reason string) error {
	if userID <= 0 {
		return newUnauthorized()
	}
	if orderID <= 0 {
		return newValidationError("invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFound()
		}
		if err != nil {
			return newDBError()
		}
		if o.UserID != userID {
			return newNotFound()
		}

		if !o.Status.Cancellable() {
			return newInvalidTransition(string(o.Status), string(model.OrderStatusCancelled))
		}

		if err := applyOrderTransition(ctx, r, o, model.OrderStatusCancelled, time.Now()); err != nil {
			return err
		}

		if strings.TrimSpace(reason) != "" {
			if err := r.Orders().UpdateFields(ctx, orderID, map[string]interface{}{
				"cancelled_reason": strings.TrimSpace(reason),
			}); err != nil {
				return newDBError()
			}
		}
		return nil
	})
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			SKU:       it.SKUSnapshot,
			Color:     it.ColorSnapshot,
			Size:      it.SizeSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Total:     it.TotalPrice,
		})
	}

	paymentStatus := ""
	if o.PaymentStatus != nil {
		paymentStatus = string(*o.PaymentStatus)
	}

	return OrderOutput{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         string(o.Status),
		PaymentStatus:  paymentStatus,
		Subtotal:       o.Subtotal,
		TaxAmount:      o.TaxAmount,
		ShippingFee:    o.ShippingFee,
		DiscountAmount: o.DiscountAmount,
		TotalAmount:    o.TotalAmount,
		TrackingNumber: o.TrackingNumber,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CreatedAt:      o.CreatedAt,
		Items:          outItems,
	}
}
