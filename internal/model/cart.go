package model

import "time"

// Cart 购物车。游客车 UserID 为 nil，只凭 ID 访问；
// 登录车要求请求者身份与 UserID 完全一致。
// 空车不落库：最后一条 item 删除时整车一并删除，所以这里不用软删。
type Cart struct {
	ID        string    `gorm:"size:36;primarykey" json:"id"` // uuid
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID *int64 `gorm:"index" json:"user_id"`

	Items []CartItem `gorm:"foreignKey:CartID" json:"items"`
}

func (Cart) TableName() string { return "carts" }

// CartItem (cart_id, product_variant_id) 是自然键：
// 重复加购必须合并进已有行，绝不产生第二行。
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CartID           string `gorm:"size:36;not null;uniqueIndex:idx_cart_variant" json:"cart_id"`
	ProductVariantID uint   `gorm:"not null;uniqueIndex:idx_cart_variant" json:"product_variant_id"`
	Quantity         int    `gorm:"not null" json:"quantity"`
}

func (CartItem) TableName() string { return "cart_items" }
