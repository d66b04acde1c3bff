package queue

import (
	"fmt"
	"time"
)

// StatusChangedEvent 是状态流转提交后对外广播的事件。
// 事务提交之后才发布，发布失败只记日志不回滚——事件是通知，不是事实来源。
type StatusChangedEvent struct {
	OrderID       uint      `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	PaymentStatus string    `json:"payment_status"`
	Actor         string    `json:"actor"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Validate 做最小字段校验，防止下游消费脏消息。
func (e StatusChangedEvent) Validate() error {
	if e.OrderID == 0 {
		return fmt.Errorf("order_id is required")
	}
	if e.OrderCode == "" {
		return fmt.Errorf("order_code is required")
	}
	if e.FromStatus == "" || e.ToStatus == "" {
		return fmt.Errorf("from_status and to_status are required")
	}
	return nil
}
