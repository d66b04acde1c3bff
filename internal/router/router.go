package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/order"
)

// Setup 注册全部 HTTP 路由。rdb 为 nil 时写接口不挂限流。
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, eng *order.Engine, carts *cart.Service, images *catalog.Service, cfg config.AppConfig) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	// Products
	r.GET("/api/products", listProducts(db))
	r.POST("/api/products", createProduct(db, cfg.AdminToken))
	r.POST("/api/products/:id/colors/:color_id/images", addImage(images))
	r.PUT("/api/images/:id", updateImage(images))

	// Orders
	r.GET("/api/orders/:id", getOrder(db))
	r.PUT("/api/orders/:id/status", updateOrderStatus(eng))

	// Cart / checkout（写接口挂限流）
	limited := func(h gin.HandlerFunc) gin.HandlersChain {
		if rdb == nil {
			return gin.HandlersChain{h}
		}
		return gin.HandlersChain{middleware.RedisRateLimit(rdb, cfg.WriteRateLimit, cfg.WriteRateWindow), h}
	}
	r.POST("/api/cart/items", limited(addCartItem(carts))...)
	r.PUT("/api/cart/items", limited(updateCartItem(carts))...)
	r.POST("/api/checkout", limited(checkout(eng))...)
}

// currentUser 从 X-User-ID 头解析调用方身份（上游认证网关注入）。
// 解析不到即游客/后台调用。
func currentUser(c *gin.Context) *int64 {
	uid, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || uid <= 0 {
		return nil
	}
	return &uid
}

func actorOf(c *gin.Context) string {
	if uid := currentUser(c); uid != nil {
		return fmt.Sprintf("user:%d", *uid)
	}
	return ""
}

// fail 将核心层错误映射为 HTTP 响应。
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	c.JSON(status, gin.H{"code": status, "msg": err.Error()})
}

// listProducts 查询商品列表（含变体）。
func listProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.Product
		if err := db.Preload("Variants").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// createProduct 创建商品与变体。后台接口，要求简单管理员 token。
func createProduct(db *gorm.DB, adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != adminToken {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "admin token invalid"})
			return
		}

		var req struct {
			Name        string `json:"name" binding:"required"`
			Description string `json:"description"`
			Variants    []struct {
				SKU           string `json:"sku" binding:"required"`
				Price         string `json:"price" binding:"required"`
				StockQuantity int    `json:"stock_quantity" binding:"min=0"`
			} `json:"variants" binding:"required,min=1,dive"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		p := &model.Product{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    true,
		}
		for _, v := range req.Variants {
			price, err := decimal.NewFromString(v.Price)
			if err != nil || price.IsNegative() {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": fmt.Sprintf("invalid price for sku %s", v.SKU)})
				return
			}
			p.Variants = append(p.Variants, model.ProductVariant{
				SKU:           v.SKU,
				Price:         price,
				StockQuantity: v.StockQuantity,
				IsActive:      true,
			})
		}
		if err := db.Create(p).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": p})
	}
}

// getOrder 查询订单详情（含商品行与支付记录）。
func getOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "order id invalid"})
			return
		}
		var o model.Order
		if err := db.Preload("Items").Preload("Payments").First(&o, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": o})
	}
}

// updateOrderStatus 是状态流转入口。
// 入口层只做形状校验（状态字面量、取消必须带原因），规则校验在引擎里。
func updateOrderStatus(eng *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "order id invalid"})
			return
		}

		var req struct {
			Status       string `json:"status" binding:"required"`
			Note         string `json:"note"`
			CancelReason string `json:"cancel_reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		newStatus, err := model.ParseOrderStatus(req.Status)
		if err != nil {
			fail(c, apperr.Validation("%v", err))
			return
		}
		if newStatus == model.OrderCancelled && req.CancelReason == "" {
			fail(c, apperr.BusinessRule("cancel_reason is required when cancelling an order"))
			return
		}

		summary, err := eng.Transition(c.Request.Context(), order.TransitionRequest{
			OrderID:      uint(id),
			NewStatus:    newStatus,
			Note:         req.Note,
			CancelReason: req.CancelReason,
			Actor:        actorOf(c),
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"data": gin.H{
				"order_id":       summary.OrderID,
				"order_code":     summary.OrderCode,
				"status":         summary.Status,
				"payment_status": summary.PaymentStatus,
				"message":        fmt.Sprintf("Order status changed to %s.", summary.Status),
			},
		})
	}
}

type cartItemRequest struct {
	CartID    string `json:"cart_id"`
	VariantID uint   `json:"variant_id" binding:"required,min=1"`
	Quantity  int    `json:"quantity"`
}

// addCartItem 加购：同变体已有行时数量累加。
func addCartItem(carts *cart.Service) gin.HandlerFunc {
	return cartMutation(carts, cart.ModeAdd, "item added to cart")
}

// updateCartItem 改数量：覆盖语义，0 删行。
func updateCartItem(carts *cart.Service) gin.HandlerFunc {
	return cartMutation(carts, cart.ModeSet, "cart item updated")
}

func cartMutation(carts *cart.Service, mode cart.MergeMode, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		res, err := carts.Mutate(c.Request.Context(), cart.MutateRequest{
			CartID:    req.CartID,
			UserID:    currentUser(c),
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			Mode:      mode,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"code": 0,
			"data": gin.H{
				"cart_id":    res.CartID,
				"variant_id": res.VariantID,
				"quantity":   res.Quantity,
				"message":    message,
			},
		})
	}
}

// checkout 购物车结账，生成 pending 订单。
func checkout(eng *order.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			CartID        string `json:"cart_id" binding:"required"`
			PaymentMethod string `json:"payment_method" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		method, err := model.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			fail(c, apperr.Validation("%v", err))
			return
		}

		summary, err := eng.Checkout(c.Request.Context(), order.CheckoutRequest{
			CartID:        req.CartID,
			UserID:        currentUser(c),
			PaymentMethod: method,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": summary})
	}
}

// addImage 上传图片元数据；分组首图自动成为主图。
func addImage(images *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "product id invalid"})
			return
		}
		colorID, err := strconv.ParseUint(c.Param("color_id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "color id invalid"})
			return
		}

		var req struct {
			URL       string `json:"url" binding:"required"`
			SortOrder int    `json:"sort_order"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		img, err := images.AddImage(c.Request.Context(), uint(productID), uint(colorID), req.URL, req.SortOrder)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": img})
	}
}

// updateImage 更新图片，主图旗标变化时由 catalog 层调和分组不变式。
func updateImage(images *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "image id invalid"})
			return
		}

		var req struct {
			URL       string `json:"url" binding:"required"`
			SortOrder int    `json:"sort_order"`
			IsMain    bool   `json:"is_main"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		img, err := images.UpdateImage(c.Request.Context(), uint(id), catalog.ImageUpdate{
			URL:       req.URL,
			SortOrder: req.SortOrder,
			IsMain:    req.IsMain,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": img})
	}
}
