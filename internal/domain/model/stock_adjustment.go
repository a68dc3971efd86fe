package model

import "time"

// 在庫調整の履歴（管理者の補充・棚卸し修正・返品戻し）。
// 払い出し量を超える戻しはここで検知してログに残す対象（補正はしない）。
type StockAdjustment struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductSizeID int64     `gorm:"not null;index" json:"product_size_id"`
	AdminUserID   int64     `gorm:"not null;index" json:"admin_user_id"`
	Delta         int64     `gorm:"not null" json:"delta"`
	Reason        string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
