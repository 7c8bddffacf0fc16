package main

import (
	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/handler"
	"shop/internal/infra/cache"
	"shop/internal/infra/db"
	"shop/internal/infra/payment"
	infraRepo "shop/internal/infra/repository"
	"shop/internal/server"
	"shop/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	//.envは無ければ無いでよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
	); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)

	//カート表示のキャッシュ
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cartCache := cache.NewRedisCache(redisClient)

	//決済ゲートウェイ
	gateway := payment.NewStripeGateway(cfg.StripeKey)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo)
	productUC := usecase.NewProductUsecase(productRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo, cartCache, logger)
	checkoutUC := usecase.NewCheckoutUsecase(cartRepo, cartItemRepo, orderRepo, gateway, cartCache, logger, cfg.GatewayTimeout)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	productH := handler.NewProductHandler(productUC)
	cartH := handler.NewCartHandler(cartUC)
	paymentH := handler.NewPaymentHandler(checkoutUC)

	//Server起動
	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.GoEnv))
	if err := server.Start(cfg, authH, productH, cartH, paymentH); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
