package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyRevenueStats 按自然日聚合的营收快照，date 唯一，增量 upsert。
type DailyRevenueStats struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Date 只保留日期部分（UTC 零点），作为 upsert 冲突键。
	Date         time.Time       `gorm:"not null;uniqueIndex" json:"date"`
	TotalOrders  int             `gorm:"not null;default:0" json:"total_orders"`
	TotalRevenue decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_revenue"`
	NewCustomers int             `gorm:"not null;default:0" json:"new_customers"`
}

func (DailyRevenueStats) TableName() string { return "daily_revenue_stats" }

// ProductSalesStats 按商品聚合的销量快照，product_id 唯一。
type ProductSalesStats struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID         uint            `gorm:"not null;uniqueIndex" json:"product_id"`
	TotalSoldQuantity int             `gorm:"not null;default:0" json:"total_sold_quantity"`
	TotalRevenue      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_revenue"`
	LastSoldAt        time.Time       `gorm:"not null" json:"last_sold_at"`
}

func (ProductSalesStats) TableName() string { return "product_sales_stats" }
