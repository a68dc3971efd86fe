package main

import (
	"log"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/gateway/vnpay"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// .envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.ProductSize{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.PaymentCallback{},
		&model.OrderReturn{},
		&model.StockAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)

	//VNPayクライアント
	gateway := vnpay.New(vnpay.Config{
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		PayURL:     cfg.VNPayPayURL,
		ReturnURL:  cfg.VNPayReturnURL,
	})

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := usecase.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	verifier := usecase.NewBcryptPasswordVerifier()

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, hasher, verifier)
	orderUC := usecase.NewOrderUsecase(txManager)
	paymentUC := usecase.NewPaymentUsecase(txManager, gateway)
	returnUC := usecase.NewReturnUsecase(txManager)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager)
	adminReturnUC := usecase.NewAdminReturnUsecase(txManager)
	adminStockUC := usecase.NewAdminStockUsecase(txManager)

	//Handler生成
	h := server.Handlers{
		Auth:        handler.NewAuthHandler(authUC),
		Order:       handler.NewOrderHandler(orderUC),
		Payment:     handler.NewPaymentHandler(paymentUC),
		Return:      handler.NewReturnHandler(returnUC),
		AdminOrder:  handler.NewAdminOrderHandler(adminOrderUC),
		AdminReturn: handler.NewAdminReturnHandler(adminReturnUC),
		AdminStock:  handler.NewAdminStockHandler(adminStockUC),
	}

	//Server起動
	e := server.New(cfg, h)
	if err := server.Start(e, cfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}
