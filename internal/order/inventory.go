package order

import (
	"errors"

	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/model"
)

// Restore 取消/退货时把订单行的数量加回变体库存。
// 变体已被删除的行直接跳过：快照可以比变体活得久，这不是错误。
// 回补走 version 比对，和扣减共用同一条串行化纪律。
func Restore(tx *gorm.DB, items []model.OrderItem) error {
	for _, item := range items {
		var v model.ProductVariant
		if err := tx.First(&v, item.VariantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}

		res := tx.Model(&model.ProductVariant{}).
			Where("id = ? AND version = ?", v.ID, v.Version).
			Updates(map[string]any{
				"stock_quantity": gorm.Expr("stock_quantity + ?", item.Quantity),
				"version":        gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("variant %d was modified concurrently", v.ID)
		}
	}
	return nil
}

// Reserve 结账扣库存：库存不足或变体停售都按业务规则拒绝。
// WHERE 里同时带 version 与 stock_quantity >= ? 双保险，
// 并发下绝不会把库存写成负数。
func Reserve(tx *gorm.DB, variantID uint, quantity int) error {
	var v model.ProductVariant
	if err := tx.First(&v, variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("variant %d not found", variantID)
		}
		return err
	}
	if !v.IsActive {
		return apperr.BusinessRule("variant %d is not available", variantID)
	}
	if v.StockQuantity < quantity {
		return apperr.BusinessRule("insufficient stock for variant %d: have %d, want %d",
			variantID, v.StockQuantity, quantity)
	}

	res := tx.Model(&model.ProductVariant{}).
		Where("id = ? AND version = ? AND stock_quantity >= ?", v.ID, v.Version, quantity).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("variant %d was modified concurrently", v.ID)
	}
	return nil
}
