package order

import "storefront/internal/model"

// allowedTransitions 订单状态机的流转表。包级不可变配置，不承载任何请求期状态。
// cancelled / returned 是吸收态，进入后不再流出。
var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:   {model.OrderConfirmed, model.OrderCancelled},
	model.OrderConfirmed: {model.OrderShipping, model.OrderCancelled},
	model.OrderShipping:  {model.OrderDelivered, model.OrderReturned},
	model.OrderDelivered: {model.OrderReturned},
	model.OrderCancelled: {},
	model.OrderReturned:  {},
}

// CanTransition 判断 from -> to 是否合法。
// from == to 一律拒绝：原地流转是错误而不是 no-op 成功。
func CanTransition(from, to model.OrderStatus) bool {
	if from == to {
		return false
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedNext 返回 from 的合法去向，用于拼接错误诊断信息。
func AllowedNext(from model.OrderStatus) []model.OrderStatus {
	allowed := allowedTransitions[from]
	out := make([]model.OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}
