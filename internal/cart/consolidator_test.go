package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/model"
	"storefront/internal/testutil"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewService(db), db
}

func seedVariant(t *testing.T, db *gorm.DB, stock int, active bool) *model.ProductVariant {
	t.Helper()
	p := &model.Product{Name: "Mug", IsActive: true}
	require.NoError(t, db.Create(p).Error)
	v := &model.ProductVariant{
		ProductID:     p.ID,
		SKU:           "MUG-" + uuid.NewString()[:8],
		Price:         decimal.RequireFromString("12.50"),
		StockQuantity: stock,
		IsActive:      active,
	}
	require.NoError(t, db.Create(v).Error)
	if !active {
		// gorm 对带 default 标签的零值字段不会写入，false 会被 default:true 覆盖，
		// 这里强制落库，保证测试前置条件成立。
		require.NoError(t, db.Model(v).UpdateColumn("is_active", false).Error)
		v.IsActive = false
	}
	return v
}

func TestAddCreatesCartWhenMissing(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 10, true)

	res, err := svc.Mutate(context.Background(), MutateRequest{
		VariantID: v.ID, Quantity: 2, Mode: ModeAdd,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.CartID)
	require.Equal(t, 2, res.Quantity)

	var c model.Cart
	require.NoError(t, db.Preload("Items").First(&c, "id = ?", res.CartID).Error)
	require.Nil(t, c.UserID)
	require.Len(t, c.Items, 1)
}

// 加购是累加，改数量是覆盖；同一变体永远只有一行。
func TestAddMergesAndSetOverwrites(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 10, true)

	res, err := svc.Mutate(context.Background(), MutateRequest{VariantID: v.ID, Quantity: 2, Mode: ModeAdd})
	require.NoError(t, err)

	res, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, VariantID: v.ID, Quantity: 3, Mode: ModeAdd,
	})
	require.NoError(t, err)
	require.Equal(t, 5, res.Quantity)

	var n int64
	require.NoError(t, db.Model(&model.CartItem{}).
		Where("cart_id = ? AND product_variant_id = ?", res.CartID, v.ID).Count(&n).Error)
	require.EqualValues(t, 1, n, "duplicate add must not create a second row")

	res, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, VariantID: v.ID, Quantity: 3, Mode: ModeSet,
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Quantity)
}

func TestStockCeilingRejectsAndLeavesCartUnchanged(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 2, true)

	res, err := svc.Mutate(context.Background(), MutateRequest{VariantID: v.ID, Quantity: 1, Mode: ModeAdd})
	require.NoError(t, err)

	_, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, VariantID: v.ID, Quantity: 5, Mode: ModeSet,
	})
	require.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))

	var line model.CartItem
	require.NoError(t, db.Where("cart_id = ?", res.CartID).First(&line).Error)
	require.Equal(t, 1, line.Quantity, "failed mutation leaves the cart untouched")
}

// 累加超过库存同样拒绝：库存校验看的是合并后的目标数量。
func TestAddBeyondStockRejected(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 3, true)

	res, err := svc.Mutate(context.Background(), MutateRequest{VariantID: v.ID, Quantity: 2, Mode: ModeAdd})
	require.NoError(t, err)

	_, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, VariantID: v.ID, Quantity: 2, Mode: ModeAdd,
	})
	require.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
}

func TestInactiveVariantRejected(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 10, false)

	_, err := svc.Mutate(context.Background(), MutateRequest{VariantID: v.ID, Quantity: 1, Mode: ModeAdd})
	require.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
}

// Set 0 删行；删到空车连车一起删。
func TestSetZeroDeletesLineAndEmptyCart(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 10, true)

	res, err := svc.Mutate(context.Background(), MutateRequest{VariantID: v.ID, Quantity: 2, Mode: ModeAdd})
	require.NoError(t, err)

	_, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, VariantID: v.ID, Quantity: 0, Mode: ModeSet,
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&model.CartItem{}).Where("cart_id = ?", res.CartID).Count(&n).Error)
	require.Zero(t, n)
	require.NoError(t, db.Model(&model.Cart{}).Where("id = ?", res.CartID).Count(&n).Error)
	require.Zero(t, n, "an empty cart is not a valid persisted entity")
}

func TestOwnedCartRequiresMatchingIdentity(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 10, true)

	owner := int64(5)
	res, err := svc.Mutate(context.Background(), MutateRequest{
		UserID: &owner, VariantID: v.ID, Quantity: 1, Mode: ModeAdd,
	})
	require.NoError(t, err)

	// 匿名访问有主车
	_, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, VariantID: v.ID, Quantity: 2, Mode: ModeSet,
	})
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// 别人访问有主车
	stranger := int64(6)
	_, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, UserID: &stranger, VariantID: v.ID, Quantity: 2, Mode: ModeSet,
	})
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// 本人没问题
	_, err = svc.Mutate(context.Background(), MutateRequest{
		CartID: res.CartID, UserID: &owner, VariantID: v.ID, Quantity: 2, Mode: ModeSet,
	})
	require.NoError(t, err)
}

func TestSetOnUnknownCartIsNotFound(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)
	v := seedVariant(t, db, 10, true)

	_, err := svc.Mutate(context.Background(), MutateRequest{
		CartID: uuid.NewString(), VariantID: v.ID, Quantity: 2, Mode: ModeSet,
	})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
