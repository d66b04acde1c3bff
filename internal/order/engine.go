package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/invoice"
	"storefront/internal/model"
	"storefront/internal/queue"
	"storefront/internal/stats"
)

// SystemActor 无认证身份（后台任务）流转时写入审计流水的操作者标识。
const SystemActor = "System"

// Engine 负责订单状态流转的编排：校验、变更、流水、副作用，全部在一个事务内。
// events 可以为 nil（未配置 Kafka 时），事件发布在事务提交之后、尽力而为。
type Engine struct {
	db     *gorm.DB
	log    *zap.Logger
	events *queue.Producer
}

func NewEngine(db *gorm.DB, log *zap.Logger, events *queue.Producer) *Engine {
	return &Engine{db: db, log: log, events: events}
}

// TransitionRequest 一次状态流转命令。
// Actor 为空表示无认证来源，流水里记 System。
// CancelReason 仅在目标状态为 cancelled 时有意义，必填校验由入口层负责。
type TransitionRequest struct {
	OrderID      uint
	NewStatus    model.OrderStatus
	Note         string
	CancelReason string
	Actor        string
}

// Summary 流转成功后返回给调用方的订单摘要。
type Summary struct {
	OrderID       uint                `json:"order_id"`
	OrderCode     string              `json:"order_code"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

// Transition 执行一次状态流转。
// 步骤：加载 → 状态机校验 → CAS 写订单 → 追加流水 → 按目标状态触发唯一一个副作用分支 → 提交。
// 任何一步失败整个事务回滚，不存在半次流转。
func (e *Engine) Transition(ctx context.Context, req TransitionRequest) (Summary, error) {
	var (
		summary Summary
		event   queue.StatusChangedEvent
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQLite 没有 SELECT ... FOR UPDATE，并发序列化完全靠订单行上的
		// version 比对：谁的 CAS 写到 0 行谁输，拿 Conflict 回去重试。
		var o model.Order
		err := tx.Preload("Items").
			Preload("Payments").
			First(&o, req.OrderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order %d not found", req.OrderID)
			}
			return err
		}

		if !CanTransition(o.Status, req.NewStatus) {
			return apperr.BusinessRule("order %d cannot go from %s to %s (allowed: %v)",
				o.ID, o.Status, req.NewStatus, AllowedNext(o.Status))
		}

		now := time.Now()
		from := o.Status

		updates := map[string]any{
			"status":     req.NewStatus,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}
		// 支付状态属于各分支的副作用，但和 status 同属订单行，合进同一次 CAS 写。
		switch req.NewStatus {
		case model.OrderDelivered:
			// 货到付款在送达时收款；其他方式必须早在支付捕获环节就已 completed，
			// 这里不替它们补票。
			if o.PaymentMethod == model.MethodCOD {
				updates["payment_status"] = model.PaymentCompleted
				o.PaymentStatus = model.PaymentCompleted
			}
		case model.OrderCancelled:
			updates["payment_status"] = model.PaymentFailed
			updates["cancel_reason"] = req.CancelReason
			o.PaymentStatus = model.PaymentFailed
			o.CancelReason = req.CancelReason
		case model.OrderReturned:
			updates["payment_status"] = model.PaymentRefunded
			o.PaymentStatus = model.PaymentRefunded
		}

		res := tx.Model(&model.Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order %d was modified concurrently", o.ID)
		}
		o.Status = req.NewStatus

		note := req.Note
		if note == "" {
			note = fmt.Sprintf("Order status changed to %s.", req.NewStatus)
		}
		actor := req.Actor
		if actor == "" {
			actor = SystemActor
		}
		if err := tx.Create(&model.OrderStatusHistory{
			OrderID: o.ID,
			Status:  req.NewStatus,
			Note:    note,
			Actor:   actor,
		}).Error; err != nil {
			return err
		}

		// 只触发本条边的副作用，不累计整条路径。
		switch req.NewStatus {
		case model.OrderDelivered:
			if err := upsertPayment(tx, &o, model.PaymentCompleted, o.TotalAmount); err != nil {
				return err
			}
			if err := invoice.Upsert(tx, &o, now); err != nil {
				return err
			}
			if err := stats.RecordDelivered(tx, &o, now); err != nil {
				return err
			}
		case model.OrderCancelled:
			if err := propagatePaymentStatus(tx, &o, model.PaymentFailed); err != nil {
				return err
			}
			if err := Restore(tx, o.Items); err != nil {
				return err
			}
		case model.OrderReturned:
			if err := propagatePaymentStatus(tx, &o, model.PaymentRefunded); err != nil {
				return err
			}
			if err := Restore(tx, o.Items); err != nil {
				return err
			}
		}

		summary = Summary{
			OrderID:       o.ID,
			OrderCode:     o.OrderCode,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
		}
		event = queue.StatusChangedEvent{
			OrderID:       o.ID,
			OrderCode:     o.OrderCode,
			FromStatus:    string(from),
			ToStatus:      string(o.Status),
			PaymentStatus: string(o.PaymentStatus),
			Actor:         actor,
			OccurredAt:    now,
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	// 事务已提交，这之后才允许对外广播；发布失败只告警不影响已完成的流转。
	if e.events != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := e.events.Publish(pubCtx, event); err != nil {
			e.log.Warn("publish status event",
				zap.Uint("order_id", event.OrderID),
				zap.String("to_status", event.ToStatus),
				zap.Error(err))
		}
	}
	return summary, nil
}
