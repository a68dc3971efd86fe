package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// 注文ステータスの遷移表。ここにないペアは全部拒否。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusRefunded},
	// CANCELLED / REFUNDED は終端
}

// 既知のステータスかどうか
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// ユーザー自身がキャンセルできるステータス
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed ||
		s == OrderStatusProcessing || s == OrderStatusShipped
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// 注文に焼き付ける住所スナップショット
type OrderAddress struct {
	Name       string `gorm:"type:varchar(100)" json:"name"`
	Phone      string `gorm:"type:varchar(30)" json:"phone"`
	Line1      string `gorm:"type:varchar(255)" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2"`
	City       string `gorm:"type:varchar(100)" json:"city"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`
	Country    string `gorm:"type:varchar(2)" json:"country"`
}

// 金額は作成時に確定したスナップショット。後から再計算しない。
// TotalAmount = Subtotal + TaxAmount + ShippingFee - DiscountAmount
type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string      `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	PaymentStatus *PaymentStatus `gorm:"type:varchar(20);index" json:"payment_status"`
	PaymentMethod string         `gorm:"type:varchar(20)" json:"payment_method"`

	Subtotal       int64 `gorm:"not null" json:"subtotal"`
	TaxAmount      int64 `gorm:"not null" json:"tax_amount"`
	ShippingFee    int64 `gorm:"not null" json:"shipping_fee"`
	DiscountAmount int64 `gorm:"not null" json:"discount_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	ShippingAddress OrderAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  OrderAddress `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	TrackingNumber    string     `gorm:"type:varchar(100)" json:"tracking_number"`
	ShippingMethod    string     `gorm:"type:varchar(50)" json:"shipping_method"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	ShippedAt         *time.Time `json:"shipped_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`

	CancelledReason string `gorm:"type:varchar(255)" json:"cancelled_reason,omitempty"`

	// 在庫を引き当て済みか。引当はチェックアウト時の一回だけ。
	// キャンセル・返金で在庫を戻したら false に戻す（二重戻し防止）。
	StockDeducted bool `gorm:"not null;default:false" json:"-"`

	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
