package model

import "time"

type PaymentMethod string

const (
	PaymentMethodVNPay PaymentMethod = "VNPAY"
)

// ゲートウェイ決済の1回分。リトライすると注文に複数行つくが、
// PENDINGは同時に1つだけ意味を持つ。
type Payment struct {
	ID      int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64         `gorm:"not null;index" json:"order_id"`
	Amount  int64         `gorm:"not null" json:"amount"`
	Method  PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status  PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	// ゲートウェイ側の取引ID。成功コールバックまで空。
	TransactionID   string `gorm:"type:varchar(100)" json:"transaction_id"`
	GatewayResponse string `gorm:"type:text" json:"-"`
	PaymentURL      string `gorm:"type:text" json:"-"`

	// 再入用のワンタイムセッション
	SessionToken     string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	SessionUsed      bool      `gorm:"not null;default:false" json:"-"`

	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 未使用かつ期限内のときだけ有効
func (p Payment) SessionValid(now time.Time) bool {
	return !p.SessionUsed && now.Before(p.SessionExpiresAt)
}

// コールバック処理済みか（PAID/FAILEDに到達済みなら再適用しない）
func (p Payment) Settled() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusFailed
}
