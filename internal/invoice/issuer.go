package invoice

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/internal/model"
)

// Upsert 为送达订单开具发票；同一订单重复送达（delivered -> returned 后的人工修正等）
// 只刷新金额和时间，不产生第二张发票。
func Upsert(tx *gorm.DB, o *model.Order, now time.Time) error {
	var inv model.Invoice
	err := tx.Where("order_id = ?", o.ID).First(&inv).Error
	switch {
	case err == nil:
		return tx.Model(&inv).Updates(map[string]any{
			"amount":    o.TotalAmount,
			"issued_at": now,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&model.Invoice{
			OrderID:   o.ID,
			InvoiceNo: "INV" + strings.ToUpper(uuid.NewString()[:12]),
			Amount:    o.TotalAmount,
			IssuedAt:  now,
		}).Error
	default:
		return err
	}
}
