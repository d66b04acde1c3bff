package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单状态，六个固定取值，流转规则见 internal/order 的状态机。
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipping  OrderStatus = "shipping"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderReturned  OrderStatus = "returned"
)

// ParseOrderStatus validates an inbound status literal.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderShipping, OrderDelivered, OrderCancelled, OrderReturned:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// PaymentStatus 支付状态。
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PaymentMethod 支付方式。
type PaymentMethod string

const (
	MethodCOD          PaymentMethod = "cod" // 货到付款
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// ParsePaymentMethod validates an inbound payment method literal.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodCOD, MethodCreditCard, MethodBankTransfer:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// Order 订单主表。创建后只能通过状态机变更，不做物理删除。
// Version 是乐观锁列：所有写入都带 version 比对，写 0 行即并发冲突。
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderCode     string          `gorm:"size:64;uniqueIndex;not null" json:"order_code"`
	UserID        *int64          `gorm:"index" json:"user_id"` // nil 表示游客单
	Status        OrderStatus     `gorm:"size:16;not null;default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"size:16;not null;default:'pending'" json:"payment_status"`
	PaymentMethod PaymentMethod   `gorm:"size:16;not null" json:"payment_method"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	CancelReason  string          `gorm:"size:255" json:"cancel_reason,omitempty"`
	Version       int             `gorm:"not null;default:0" json:"-"`

	Items    []OrderItem    `gorm:"foreignKey:OrderID" json:"items"`
	Payments []OrderPayment `gorm:"foreignKey:OrderID" json:"payments"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 下单时刻的商品快照，落库后不可变。
// VariantID 只是引用；变体后续被删除不影响历史订单。
type OrderItem struct {
	ID      uint `gorm:"primarykey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`

	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	VariantID   uint            `gorm:"not null" json:"variant_id"`
	ProductName string          `gorm:"size:128;not null" json:"product_name"`
	SKU         string          `gorm:"size:64;not null" json:"sku"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderPayment 每个订单每种支付方式至多一条，更新走 upsert。
type OrderPayment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID uint            `gorm:"not null;uniqueIndex:idx_order_payment_method" json:"order_id"`
	Method  PaymentMethod   `gorm:"size:16;not null;uniqueIndex:idx_order_payment_method" json:"method"`
	Status  PaymentStatus   `gorm:"size:16;not null;default:'pending'" json:"status"`
	Amount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
}

func (OrderPayment) TableName() string { return "order_payments" }

// OrderStatusHistory 只追加的审计流水，每次成功流转写一条。
type OrderStatusHistory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID uint        `gorm:"not null;index" json:"order_id"`
	Status  OrderStatus `gorm:"size:16;not null" json:"status"`
	Note    string      `gorm:"size:255" json:"note"`
	Actor   string      `gorm:"size:64;not null" json:"actor"`
}

func (OrderStatusHistory) TableName() string { return "order_status_histories" }
