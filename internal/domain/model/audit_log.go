package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	//在庫を調整した操作。
	AuditActionAdjustStock AuditAction = "ADJUST_STOCK"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//配送情報を更新した操作。
	AuditActionUpdateTracking AuditAction = "UPDATE_TRACKING"
	//返金を実行した操作。
	AuditActionExecuteRefund AuditAction = "EXECUTE_REFUND"
	//返品ステータスを更新した操作。
	AuditActionUpdateReturnStatus AuditAction = "UPDATE_RETURN_STATUS"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourcePayment AuditResourceType = "payment"
	AuditResourceReturn  AuditResourceType = "return"
	AuditResourceStock   AuditResourceType = "stock"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（主に管理者）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//変更前後をJSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
