package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 商品主档。价格、库存都落在变体上。
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string `gorm:"size:128;not null" json:"name"`
	Description string `gorm:"size:1024" json:"description"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

func (Product) TableName() string { return "products" }

// ProductVariant 可售卖的 SKU 级实体，库存挂在这里。
// StockQuantity 任何时刻 >= 0；扣减/回补都带 version 比对串行化。
type ProductVariant struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	SKU           string          `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Price         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	Version       int             `gorm:"not null;default:0" json:"-"`
}

func (ProductVariant) TableName() string { return "product_variants" }

// ProductImage 商品图片，按 (product_id, color_id) 分组。
// 不变式：非空分组内 is_main 恰好一条，空分组零条。
type ProductImage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID uint   `gorm:"not null;index:idx_image_group" json:"product_id"`
	ColorID   uint   `gorm:"not null;index:idx_image_group" json:"color_id"`
	URL       string `gorm:"size:512;not null" json:"url"`
	IsMain    bool   `gorm:"not null;default:false" json:"is_main"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

func (ProductImage) TableName() string { return "product_images" }
