package main

import (
	"log"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/model"
	"storefront/internal/order"
	"storefront/internal/queue"
	"storefront/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 1. 连接 SQLite，自动建表
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	err = db.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.ProductImage{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderPayment{},
		&model.OrderStatusHistory{},
		&model.Invoice{},
		&model.DailyRevenueStats{},
		&model.ProductSalesStats{},
	)
	if err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	// 2. 可选依赖：Redis（限流）、Kafka（状态事件广播）
	var rdb *rd.Client
	if cfg.RedisAddr != "" {
		rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
	}

	var producer *queue.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = producer.Close() }()
	}

	// 3. 组装核心服务与路由
	eng := order.NewEngine(db, logger, producer)
	carts := cart.NewService(db)
	images := catalog.NewService(db)

	r := gin.Default()
	router.Setup(r, db, rdb, eng, carts, images, cfg)

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
