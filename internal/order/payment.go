package order

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/model"
)

// upsertPayment 按 (order_id, method) 唯一键更新支付记录，不存在则创建。
func upsertPayment(tx *gorm.DB, o *model.Order, status model.PaymentStatus, amount decimal.Decimal) error {
	var p model.OrderPayment
	err := tx.Where("order_id = ? AND method = ?", o.ID, o.PaymentMethod).First(&p).Error
	switch {
	case err == nil:
		return tx.Model(&p).Updates(map[string]any{
			"status": status,
			"amount": amount,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&model.OrderPayment{
			OrderID: o.ID,
			Method:  o.PaymentMethod,
			Status:  status,
			Amount:  amount,
		}).Error
	default:
		return err
	}
}

// propagatePaymentStatus 只更新已存在的支付记录，不存在时什么都不做。
// 取消/退货路径用它：取消一个从未落过支付记录的订单不应该凭空造一条。
func propagatePaymentStatus(tx *gorm.DB, o *model.Order, status model.PaymentStatus) error {
	res := tx.Model(&model.OrderPayment{}).
		Where("order_id = ? AND method = ?", o.ID, o.PaymentMethod).
		Update("status", status)
	return res.Error
}
