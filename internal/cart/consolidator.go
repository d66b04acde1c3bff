package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/model"
)

// MergeMode 区分两个入口的合并语义：加购累加，改数量覆盖。
type MergeMode int

const (
	ModeAdd MergeMode = iota
	ModeSet
)

// Service 维护购物车行的唯一性不变式：(cart, variant) 至多一行。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// MutateRequest 一次购物车行变更。CartID 为空时（仅加购路径）新建购物车。
type MutateRequest struct {
	CartID    string
	UserID    *int64
	VariantID uint
	Quantity  int
	Mode      MergeMode
}

// Result 返回给调用方的变更结果。
type Result struct {
	CartID    string `json:"cart_id"`
	VariantID uint   `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Mutate 在一个事务里完成归属校验、库存校验和行合并。
// Set 模式数量为 0 删行；删空整车一并删除（空车不是合法持久化实体）。
func (s *Service) Mutate(ctx context.Context, req MutateRequest) (Result, error) {
	if req.Quantity < 0 {
		return Result{}, apperr.Validation("quantity must not be negative")
	}
	if req.Mode == ModeAdd && req.Quantity == 0 {
		return Result{}, apperr.Validation("quantity must be positive")
	}

	var out Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.loadOrCreate(tx, req)
		if err != nil {
			return err
		}

		var line model.CartItem
		err = tx.Where("cart_id = ? AND product_variant_id = ?", c.ID, req.VariantID).First(&line).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Set 0 = 删行；行本来就不存在时也算成功，幂等。
		if req.Mode == ModeSet && req.Quantity == 0 {
			if exists {
				if err := tx.Delete(&line).Error; err != nil {
					return err
				}
			}
			if err := s.dropCartIfEmpty(tx, c.ID); err != nil {
				return err
			}
			out = Result{CartID: c.ID, VariantID: req.VariantID, Quantity: 0}
			return nil
		}

		target := req.Quantity
		if req.Mode == ModeAdd && exists {
			target = line.Quantity + req.Quantity
		}

		// 库存校验用变更时刻的值，不吃早先读到的缓存。
		if err := checkAvailability(tx, req.VariantID, target); err != nil {
			return err
		}

		if exists {
			if err := tx.Model(&line).Update("quantity", target).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&model.CartItem{
				CartID:           c.ID,
				ProductVariantID: req.VariantID,
				Quantity:         target,
			}).Error; err != nil {
				return err
			}
		}
		out = Result{CartID: c.ID, VariantID: req.VariantID, Quantity: target}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return out, nil
}

// loadOrCreate 解析目标购物车。没有 CartID 且是加购时建新车；
// Set 模式必须指向已有购物车。
func (s *Service) loadOrCreate(tx *gorm.DB, req MutateRequest) (*model.Cart, error) {
	if req.CartID == "" {
		if req.Mode == ModeSet {
			return nil, apperr.NotFound("cart not found")
		}
		c := &model.Cart{ID: uuid.NewString(), UserID: req.UserID}
		if err := tx.Create(c).Error; err != nil {
			return nil, err
		}
		return c, nil
	}
	return LoadOwned(tx, req.CartID, req.UserID)
}

// LoadOwned 加载购物车并做归属校验。
// 游客车只凭 ID 访问；有主车要求身份完全一致，不一致给 Forbidden 而不是 NotFound，
// 避免靠错误码探测购物车是否存在。
func LoadOwned(tx *gorm.DB, cartID string, userID *int64) (*model.Cart, error) {
	var c model.Cart
	err := tx.Preload("Items").First(&c, "id = ?", cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("cart %s not found", cartID)
		}
		return nil, err
	}
	if c.UserID != nil {
		if userID == nil || *userID != *c.UserID {
			return nil, apperr.Forbidden("cart %s does not belong to the caller", cartID)
		}
	}
	return &c, nil
}

// checkAvailability 校验变体在售且库存够 target 件。
func checkAvailability(tx *gorm.DB, variantID uint, target int) error {
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
	if target > v.StockQuantity {
		return apperr.BusinessRule("insufficient stock for variant %d: have %d, want %d",
			variantID, v.StockQuantity, target)
	}
	return nil
}

func (s *Service) dropCartIfEmpty(tx *gorm.DB, cartID string) error {
	var n int64
	if err := tx.Model(&model.CartItem{}).Where("cart_id = ?", cartID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return tx.Delete(&model.Cart{}, "id = ?", cartID).Error
}
