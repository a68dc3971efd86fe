package model

import "time"

// 購入時点の商品スナップショット。作成後は不変。
type OrderItem struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64  `gorm:"not null;index" json:"order_id"`
	ProductID     int64  `gorm:"not null;index" json:"product_id"`
	ProductSizeID *int64 `gorm:"index" json:"product_size_id"`

	ProductNameSnapshot string `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	SKUSnapshot         string `gorm:"type:varchar(64)" json:"sku_snapshot"`
	ColorSnapshot       string `gorm:"type:varchar(50)" json:"color_snapshot"`
	SizeSnapshot        string `gorm:"type:varchar(20)" json:"size_snapshot"`

	UnitPriceSnapshot int64 `gorm:"not null" json:"unit_price_snapshot"`
	Quantity          int64 `gorm:"not null" json:"quantity"`
	TotalPrice        int64 `gorm:"not null" json:"total_price"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
