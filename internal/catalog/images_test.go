package catalog

import (
	"context"
	"testing"

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

// mainCount 数一个分组里的主图条数。
func mainCount(t *testing.T, db *gorm.DB, productID, colorID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.ProductImage{}).
		Where("product_id = ? AND color_id = ? AND is_main = ?", productID, colorID, true).
		Count(&n).Error)
	return n
}

func TestFirstImageOfGroupIsForcedMain(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)

	a, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/a.jpg", 0)
	require.NoError(t, err)
	require.True(t, a.IsMain)

	b, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/b.jpg", 1)
	require.NoError(t, err)
	require.False(t, b.IsMain, "later insertions default to non-main")

	require.EqualValues(t, 1, mainCount(t, db, 1, 1))
}

// 夺旗：旧主图让位，目标成为唯一主图。
func TestClaimMovesTheFlag(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)

	a, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/a.jpg", 0)
	require.NoError(t, err)
	b, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/b.jpg", 1)
	require.NoError(t, err)

	got, err := svc.UpdateImage(context.Background(), b.ID, ImageUpdate{
		URL: b.URL, SortOrder: b.SortOrder, IsMain: true,
	})
	require.NoError(t, err)
	require.True(t, got.IsMain)

	var oldMain model.ProductImage
	require.NoError(t, db.First(&oldMain, a.ID).Error)
	require.False(t, oldMain.IsMain)
	require.EqualValues(t, 1, mainCount(t, db, 1, 1))
}

// 让位：[A(main), B, C] 上对 A 让位后恰好一个兄弟接旗。
func TestResignPromotesExactlyOneHeir(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)

	a, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/a.jpg", 0)
	require.NoError(t, err)
	b, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/b.jpg", 1)
	require.NoError(t, err)
	_, err = svc.AddImage(context.Background(), 1, 1, "https://cdn/c.jpg", 2)
	require.NoError(t, err)

	got, err := svc.UpdateImage(context.Background(), a.ID, ImageUpdate{
		URL: a.URL, SortOrder: a.SortOrder, IsMain: false,
	})
	require.NoError(t, err)
	require.False(t, got.IsMain)

	require.EqualValues(t, 1, mainCount(t, db, 1, 1))

	// 继任者取最小 ID，确定性
	var heir model.ProductImage
	require.NoError(t, db.Where("product_id = ? AND color_id = ? AND is_main = ?", 1, 1, true).First(&heir).Error)
	require.Equal(t, b.ID, heir.ID)
}

// 独生图让位被撤销：非空分组永远观察不到零主图。
func TestResignOnOnlyImageIsReverted(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)

	a, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/a.jpg", 0)
	require.NoError(t, err)

	got, err := svc.UpdateImage(context.Background(), a.ID, ImageUpdate{
		URL: a.URL, SortOrder: a.SortOrder, IsMain: false,
	})
	require.NoError(t, err)
	require.True(t, got.IsMain, "a sole image may not resign")
	require.EqualValues(t, 1, mainCount(t, db, 1, 1))
}

// 旗标不变时是纯字段更新。
func TestNoChangeUpdatesFieldsOnly(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)

	a, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/a.jpg", 0)
	require.NoError(t, err)

	got, err := svc.UpdateImage(context.Background(), a.ID, ImageUpdate{
		URL: "https://cdn/a-v2.jpg", SortOrder: 3, IsMain: true,
	})
	require.NoError(t, err)
	require.True(t, got.IsMain)

	var stored model.ProductImage
	require.NoError(t, db.First(&stored, a.ID).Error)
	require.Equal(t, "https://cdn/a-v2.jpg", stored.URL)
	require.Equal(t, 3, stored.SortOrder)
	require.EqualValues(t, 1, mainCount(t, db, 1, 1))
}

// 分组彼此独立：另一组的主图不受影响。
func TestGroupsAreIndependent(t *testing.T) {
	t.Parallel()
	svc, db := newService(t)

	_, err := svc.AddImage(context.Background(), 1, 1, "https://cdn/a.jpg", 0)
	require.NoError(t, err)
	b, err := svc.AddImage(context.Background(), 1, 2, "https://cdn/b.jpg", 0)
	require.NoError(t, err)
	c, err := svc.AddImage(context.Background(), 1, 2, "https://cdn/c.jpg", 1)
	require.NoError(t, err)

	_, err = svc.UpdateImage(context.Background(), c.ID, ImageUpdate{URL: c.URL, IsMain: true})
	require.NoError(t, err)

	require.EqualValues(t, 1, mainCount(t, db, 1, 1))
	require.EqualValues(t, 1, mainCount(t, db, 1, 2))

	var old model.ProductImage
	require.NoError(t, db.First(&old, b.ID).Error)
	require.False(t, old.IsMain)
}

func TestUpdateUnknownImage(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	_, err := svc.UpdateImage(context.Background(), 404, ImageUpdate{URL: "https://cdn/x.jpg"})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
