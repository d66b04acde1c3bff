package order

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

var allStatuses = []model.OrderStatus{
	model.OrderPending,
	model.OrderConfirmed,
	model.OrderShipping,
	model.OrderDelivered,
	model.OrderCancelled,
	model.OrderReturned,
}

// 全表穷举：36 个有序对里只有表里列出的 7 条边合法。
func TestCanTransitionFullTable(t *testing.T) {
	t.Parallel()

	legal := map[[2]model.OrderStatus]bool{
		{model.OrderPending, model.OrderConfirmed}:  true,
		{model.OrderPending, model.OrderCancelled}:  true,
		{model.OrderConfirmed, model.OrderShipping}: true,
		{model.OrderConfirmed, model.OrderCancelled}: true,
		{model.OrderShipping, model.OrderDelivered}: true,
		{model.OrderShipping, model.OrderReturned}:  true,
		{model.OrderDelivered, model.OrderReturned}: true,
	}

	pairs := 0
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			pairs++
			want := legal[[2]model.OrderStatus{from, to}]
			require.Equalf(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	require.Equal(t, 36, pairs)
}

func TestCanTransitionRejectsSelf(t *testing.T) {
	t.Parallel()

	for _, s := range allStatuses {
		require.Falsef(t, CanTransition(s, s), "%s -> %s must be rejected", s, s)
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	t.Parallel()

	for _, from := range []model.OrderStatus{model.OrderCancelled, model.OrderReturned} {
		for _, to := range allStatuses {
			require.Falsef(t, CanTransition(from, to), "%s must be terminal", from)
		}
		require.Empty(t, AllowedNext(from))
	}
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	t.Parallel()

	next := AllowedNext(model.OrderPending)
	require.ElementsMatch(t, []model.OrderStatus{model.OrderConfirmed, model.OrderCancelled}, next)

	next[0] = model.OrderDelivered
	require.ElementsMatch(t, []model.OrderStatus{model.OrderConfirmed, model.OrderCancelled},
		AllowedNext(model.OrderPending), "mutating the returned slice must not touch the table")
}
