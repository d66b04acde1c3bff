package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/model"
)

// CheckoutRequest 从购物车生成订单。
type CheckoutRequest struct {
	CartID        string
	UserID        *int64
	PaymentMethod model.PaymentMethod
}

// Checkout 把购物车转成 pending 订单：逐行扣库存、快照商品行、建初始支付记录、
// 写首条流水、删掉购物车。整个过程一个事务。
func (e *Engine) Checkout(ctx context.Context, req CheckoutRequest) (Summary, error) {
	var summary Summary

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := cart.LoadOwned(tx, req.CartID, req.UserID)
		if err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return apperr.BusinessRule("cart %s is empty", c.ID)
		}

		total := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(c.Items))
		for _, line := range c.Items {
			var v model.ProductVariant
			if err := tx.First(&v, line.ProductVariantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.BusinessRule("variant %d is no longer available", line.ProductVariantID)
				}
				return err
			}
			if err := Reserve(tx, v.ID, line.Quantity); err != nil {
				return err
			}

			var p model.Product
			if err := tx.First(&p, v.ProductID).Error; err != nil {
				return err
			}

			lineTotal := v.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			orderItems = append(orderItems, model.OrderItem{
				ProductID:   v.ProductID,
				VariantID:   v.ID,
				ProductName: p.Name,
				SKU:         v.SKU,
				Quantity:    line.Quantity,
				UnitPrice:   v.Price,
				LineTotal:   lineTotal,
			})
		}

		o := model.Order{
			OrderCode:     "ORD" + strings.ToUpper(uuid.NewString()[:12]),
			UserID:        req.UserID,
			Status:        model.OrderPending,
			PaymentStatus: model.PaymentPending,
			PaymentMethod: req.PaymentMethod,
			TotalAmount:   total,
			Items:         orderItems,
		}
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.OrderPayment{
			OrderID: o.ID,
			Method:  req.PaymentMethod,
			Status:  model.PaymentPending,
			Amount:  total,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.OrderStatusHistory{
			OrderID: o.ID,
			Status:  model.OrderPending,
			Note:    fmt.Sprintf("Order placed with %d item(s).", len(orderItems)),
			Actor:   actorOrSystem(req.UserID),
		}).Error; err != nil {
			return err
		}

		// 下单即清车
		if err := tx.Where("cart_id = ?", c.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Cart{}, "id = ?", c.ID).Error; err != nil {
			return err
		}

		summary = Summary{
			OrderID:       o.ID,
			OrderCode:     o.OrderCode,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func actorOrSystem(userID *int64) string {
	if userID == nil {
		return SystemActor
	}
	return fmt.Sprintf("user:%d", *userID)
}
