package model

import "time"

type CallbackOutcome string

const (
	//署名・金額OKで状態を反映した
	CallbackOutcomeProcessed CallbackOutcome = "PROCESSED"
	//署名不正・金額不一致などで拒否した（状態は触らない）
	CallbackOutcomeRejected CallbackOutcome = "REJECTED"
	//すでに処理済みのPaymentへの再配送
	CallbackOutcomeDuplicate CallbackOutcome = "DUPLICATE"
	//ゲートウェイが失敗コードを返した
	CallbackOutcomeFailed CallbackOutcome = "FAILED"
)

// コールバックの追記専用監査レコード。作成後は書き換えない。
// 重複配送の検知とリプレイ対策の証跡のためだけに存在する。
type PaymentCallback struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID      *int64          `gorm:"index" json:"payment_id"`
	RawPayload     string          `gorm:"type:text;not null" json:"raw_payload"`
	SignatureValid bool            `gorm:"not null" json:"signature_valid"`
	ResponseCode   string          `gorm:"type:varchar(10)" json:"response_code"`
	Outcome        CallbackOutcome `gorm:"type:varchar(20);not null" json:"outcome"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
