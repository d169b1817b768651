// cmd/api/main.go
package main

import (
	"context"
	"log"
	"time"

	"mfg-backoffice-api-server/config"
	"mfg-backoffice-api-server/internal/api/routes"
	"mfg-backoffice-api-server/internal/auth"
	"mfg-backoffice-api-server/internal/cache"
	"mfg-backoffice-api-server/internal/database"
	"mfg-backoffice-api-server/internal/dispatch"
	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/notify"
	"mfg-backoffice-api-server/internal/pricing"
	"mfg-backoffice-api-server/internal/s3"
	"mfg-backoffice-api-server/internal/socket"
	"mfg-backoffice-api-server/internal/tracking"
	"mfg-backoffice-api-server/internal/workflow"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load .env (nếu có) rồi load configuration
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment and config file")
	}
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	auth.SetSecret(cfg.JWT.Secret)

	jwtExpiration := 24 * time.Hour
	if cfg.JWT.Expiration != "" {
		parsed, err := time.ParseDuration(cfg.JWT.Expiration)
		if err != nil {
			log.Fatalf("Invalid jwt.expiration %q: %v", cfg.JWT.Expiration, err)
		}
		jwtExpiration = parsed
	}

	// 2. Kết nối MongoDB và dựng document store
	db, err := database.Connect(cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		log.Fatalf("Could not connect to MongoDB: %v", err)
	}
	store := ledger.NewMongoStore(db)

	// 3. Redis cache cho bảng giá (server vẫn chạy được khi Redis chết)
	if cfg.Redis.Addr != "" {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Printf("Redis unavailable, pricing cache disabled: %v", err)
		}
	}

	// 4. Seed các tài khoản hệ thống
	if err := database.SeedDefaultUsers(store); err != nil {
		log.Fatalf("Could not seed default users: %v", err)
	}

	// 5. WebSocket hub và outbox thông báo
	wsHub := socket.NewHub()
	outbox := notify.NewOutbox(store)
	notifyDispatcher := notify.NewDispatcher(store, wsHub, cfg.Mobile.PushWebhookURL, 15*time.Second)

	// 6. Các service nghiệp vụ
	wf := workflow.NewService(store, outbox)
	resolver := pricing.NewResolver(store)
	tracker := tracking.NewTracker(store)
	engine := dispatch.NewEngine(store, wf, resolver, tracker, outbox, cfg.Pricing.DefaultUnitPrice)

	// 7. S3 uploader cho ảnh minh chứng giao hàng
	s3Uploader, err := s3.NewUploader(cfg.S3)
	if err != nil {
		log.Fatalf("Could not create S3 uploader: %v", err)
	}

	// 8. Chạy lại các lần xuất dở dang và khởi động vòng giao thông báo
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.ResumePending(ctx)
	go notifyDispatcher.Run(ctx)

	// 9. Router và start server
	router := routes.SetupRouter(cfg, store, wf, engine, resolver, tracker, s3Uploader, wsHub, jwtExpiration)

	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
