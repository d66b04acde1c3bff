package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice 发票/结算单，订单送达时开具，order_id 唯一，重复送达流转走 upsert 刷新。
type Invoice struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID   uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	InvoiceNo string          `gorm:"size:64;uniqueIndex;not null" json:"invoice_no"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	IssuedAt  time.Time       `gorm:"not null" json:"issued_at"`
}

func (Invoice) TableName() string { return "invoices" }
