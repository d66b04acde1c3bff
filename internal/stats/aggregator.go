package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/model"
)

// RecordDelivered 在订单送达的同一个事务里增量更新两张统计表。
// 日期取“今天”（UTC 自然日），不是下单日期。
func RecordDelivered(tx *gorm.DB, o *model.Order, now time.Time) error {
	if err := bumpDailyRevenue(tx, o, now); err != nil {
		return err
	}
	return bumpProductSales(tx, o.Items, now)
}

// bumpDailyRevenue 按日期 upsert 营收行。
func bumpDailyRevenue(tx *gorm.DB, o *model.Order, now time.Time) error {
	newCustomer, err := isNewCustomer(tx, o)
	if err != nil {
		return err
	}
	delta := 0
	if newCustomer {
		delta = 1
	}

	day := now.UTC().Truncate(24 * time.Hour)
	row := model.DailyRevenueStats{
		Date:         day,
		TotalOrders:  1,
		TotalRevenue: o.TotalAmount,
		NewCustomers: delta,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_orders":  gorm.Expr("total_orders + 1"),
			"total_revenue": gorm.Expr("total_revenue + ?", o.TotalAmount),
			"new_customers": gorm.Expr("new_customers + ?", delta),
			"updated_at":    now,
		}),
	}).Create(&row).Error
}

// isNewCustomer 游客单一律算新客；登录用户看有没有“曾经送达”的历史订单。
// 判断走只追加的状态流水而不是订单当前状态：送达后退货的订单 status 已经是
// returned，但这个用户不因此变回新客。
// 此刻当前订单的 delivered 流水已经写入，所以要把自己排除掉。
// 只看“曾经送达”意味着此前只有取消单的用户首次送达仍算新客。
func isNewCustomer(tx *gorm.DB, o *model.Order) (bool, error) {
	if o.UserID == nil {
		return true, nil
	}
	var n int64
	err := tx.Model(&model.OrderStatusHistory{}).
		Joins("JOIN orders ON orders.id = order_status_histories.order_id").
		Where("orders.user_id = ? AND orders.id <> ? AND order_status_histories.status = ?",
			*o.UserID, o.ID, model.OrderDelivered).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// bumpProductSales 先把同一订单内的多行按 product_id 合并，再逐商品 upsert 一次。
// 同一商品出现在两行，统计行只动一次、动的是合并后的总量。
func bumpProductSales(tx *gorm.DB, items []model.OrderItem, now time.Time) error {
	type bucket struct {
		quantity int
		revenue  decimal.Decimal
	}
	merged := make(map[uint]bucket, len(items))
	for _, item := range items {
		b := merged[item.ProductID]
		b.quantity += item.Quantity
		b.revenue = b.revenue.Add(item.LineTotal)
		merged[item.ProductID] = b
	}

	// 固定遍历顺序，避免多商品订单之间的死锁窗口
	ids := make([]uint, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		b := merged[id]
		row := model.ProductSalesStats{
			ProductID:         id,
			TotalSoldQuantity: b.quantity,
			TotalRevenue:      b.revenue,
			LastSoldAt:        now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_sold_quantity": gorm.Expr("total_sold_quantity + ?", b.quantity),
				"total_revenue":       gorm.Expr("total_revenue + ?", b.revenue),
				"last_sold_at":        now,
				"updated_at":          now,
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}
