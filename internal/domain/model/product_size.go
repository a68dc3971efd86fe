package model

import "time"

// 在庫の最小単位（商品×色×サイズ）。
// Quantityは負にならない。減算は条件付きUPDATEだけで行う。
type ProductSize struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;index:idx_product_color_size,unique" json:"product_id"`
	Color     string    `gorm:"type:varchar(50);not null;index:idx_product_color_size,unique" json:"color"`
	Size      string    `gorm:"type:varchar(20);not null;index:idx_product_color_size,unique" json:"size"`
	SKU       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`
	Quantity  int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
