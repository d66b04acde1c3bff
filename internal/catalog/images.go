package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/model"
)

// reconcileKind 主图旗标的三种处理分支，只由 (当前值, 目标值) 决定。
type reconcileKind int

const (
	reconcileNoChange reconcileKind = iota
	reconcileClaim                  // false -> true：夺旗
	reconcileResign                 // true -> false：让位
)

func kindOf(current, requested bool) reconcileKind {
	switch {
	case !current && requested:
		return reconcileClaim
	case current && !requested:
		return reconcileResign
	default:
		return reconcileNoChange
	}
}

// ImageUpdate 一次图片更新请求。
type ImageUpdate struct {
	URL       string
	SortOrder int
	IsMain    bool
}

// Service 维护“每个商品颜色分组恰好一张主图”的不变式。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AddImage 向分组插入新图。分组首图强制为主图，后续插入默认非主图。
func (s *Service) AddImage(ctx context.Context, productID, colorID uint, url string, sortOrder int) (*model.ProductImage, error) {
	var img *model.ProductImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.ProductImage{}).
			Where("product_id = ? AND color_id = ?", productID, colorID).
			Count(&n).Error; err != nil {
			return err
		}
		img = &model.ProductImage{
			ProductID: productID,
			ColorID:   colorID,
			URL:       url,
			IsMain:    n == 0,
			SortOrder: sortOrder,
		}
		return tx.Create(img).Error
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// UpdateImage 更新图片字段并按分支调和主图旗标。
// 每一小步先落库再走下一步，事务边界之外永远观察不到坏掉的不变式。
func (s *Service) UpdateImage(ctx context.Context, imageID uint, upd ImageUpdate) (*model.ProductImage, error) {
	var out *model.ProductImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var img model.ProductImage
		if err := tx.First(&img, imageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("image %d not found", imageID)
			}
			return err
		}

		if err := tx.Model(&img).Updates(map[string]any{
			"url":        upd.URL,
			"sort_order": upd.SortOrder,
		}).Error; err != nil {
			return err
		}

		switch kindOf(img.IsMain, upd.IsMain) {
		case reconcileClaim:
			if err := claim(tx, &img); err != nil {
				return err
			}
		case reconcileResign:
			if err := resign(tx, &img); err != nil {
				return err
			}
		case reconcileNoChange:
			// 旗标不动，纯字段更新
		}

		out = &img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// claim 先摘掉分组里现任主图的旗标，再给目标挂上。
func claim(tx *gorm.DB, img *model.ProductImage) error {
	if err := tx.Model(&model.ProductImage{}).
		Where("product_id = ? AND color_id = ? AND is_main = ? AND id <> ?",
			img.ProductID, img.ColorID, true, img.ID).
		Update("is_main", false).Error; err != nil {
		return err
	}
	img.IsMain = true
	return tx.Model(img).Update("is_main", true).Error
}

// resign 目标让位后从余下兄弟里挑继任者（最小 ID）晋升。
// 分组里没有别的图时撤销让位：非空分组不允许零主图。
func resign(tx *gorm.DB, img *model.ProductImage) error {
	img.IsMain = false
	if err := tx.Model(img).Update("is_main", false).Error; err != nil {
		return err
	}

	var heir model.ProductImage
	err := tx.Where("product_id = ? AND color_id = ? AND id <> ?",
		img.ProductID, img.ColorID, img.ID).
		Order("id ASC").
		First(&heir).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 独生图不许让位
			img.IsMain = true
			return tx.Model(img).Update("is_main", true).Error
		}
		return err
	}
	return tx.Model(&heir).Update("is_main", true).Error
}
