// internal/api/routes/routes.go
package routes

import (
	"time"

	"mfg-backoffice-api-server/config"
	"mfg-backoffice-api-server/internal/api/handlers"
	"mfg-backoffice-api-server/internal/api/middleware"
	"mfg-backoffice-api-server/internal/dispatch"
	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/pricing"
	"mfg-backoffice-api-server/internal/s3"
	"mfg-backoffice-api-server/internal/socket"
	"mfg-backoffice-api-server/internal/tracking"
	"mfg-backoffice-api-server/internal/workflow"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter nhận vào các thành phần phụ thuộc và thiết lập các route.
func SetupRouter(
	cfg config.Config,
	store ledger.Store,
	wf *workflow.Service,
	engine *dispatch.Engine,
	resolver *pricing.Resolver,
	tracker *tracking.Tracker,
	s3Uploader *s3.Uploader,
	wsHub *socket.Hub,
	jwtExpiration time.Duration,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Khởi tạo các handlers
	userHandler := &handlers.UserHandler{Store: store, JWTExpiration: jwtExpiration}
	shopRequestHandler := &handlers.ShopRequestHandler{Workflow: wf, Engine: engine}
	salesRequestHandler := &handlers.SalesRequestHandler{Workflow: wf, Engine: engine}
	dispatchHandler := &handlers.ExternalDispatchHandler{Engine: engine, Tracker: tracker, S3Uploader: s3Uploader}
	pricingHandler := &handlers.PricingHandler{Resolver: resolver}
	inventoryHandler := &handlers.InventoryHandler{Store: store}
	notificationHandler := &handlers.NotificationHandler{Store: store}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub}

	apiV1 := router.Group("/api/v1")
	{
		// Route cho WebSocket (token đi trong query string)
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		// === CÁC ROUTE KHÔNG YÊU CẦU XÁC THỰC ===
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
		}

		// Mobile client kéo thông báo theo target key, không cần JWT
		apiV1.GET("/mobile-notifications/:key", notificationHandler.GetMobileNotifications)

		// === CÁC ROUTE YÊU CẦU XÁC THỰC (PROTECTED) ===

		// Nhóm API quản trị, yêu cầu vai trò "superadmin"
		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate())
		admin.Use(middleware.Authorize(models.RoleSuperAdmin))
		{
			admin.POST("/users", userHandler.CreateUser)
		}

		// Nhóm các API nghiệp vụ chính
		businessRoutes := apiV1.Group("/")
		businessRoutes.Use(middleware.Authenticate())
		{
			businessRoutes.GET("/notifications", notificationHandler.GetMyNotifications)

			// Yêu cầu lấy hàng của cửa hàng trực tiếp
			shopRequests := businessRoutes.Group("/shop-requests")
			{
				// Cửa hàng gửi yêu cầu
				createRoutes := shopRequests.Group("/")
				createRoutes.Use(middleware.Authorize(models.RoleShopOwner, models.RoleSuperAdmin))
				{
					createRoutes.POST("/", shopRequestHandler.CreateShopRequest)
				}

				// Mọi vai trò back-office xem được danh sách và chi tiết
				readRoutes := shopRequests.Group("/")
				readRoutes.Use(middleware.Authorize(models.RoleMD, models.RoleHO, models.RoleFGStore, models.RoleShopOwner, models.RoleSuperAdmin))
				{
					readRoutes.GET("/", shopRequestHandler.GetAllShopRequests)
					readRoutes.GET("/:id", shopRequestHandler.GetShopRequest)
				}

				// MD duyệt/từ chối vòng một. Vòng duyệt gắn với vai trò
				// nên superadmin không đi tắt qua đây được.
				mdRoutes := shopRequests.Group("/:id")
				mdRoutes.Use(middleware.Authorize(models.RoleMD))
				{
					mdRoutes.POST("/md-approval", shopRequestHandler.Approve)
					mdRoutes.POST("/md-rejection", shopRequestHandler.Reject)
				}

				// HO duyệt/từ chối vòng hai
				hoRoutes := shopRequests.Group("/:id")
				hoRoutes.Use(middleware.Authorize(models.RoleHO))
				{
					hoRoutes.POST("/ho-approval", shopRequestHandler.Approve)
					hoRoutes.POST("/ho-rejection", shopRequestHandler.Reject)
				}

				// Kho FG xuất hàng
				fgRoutes := shopRequests.Group("/:id")
				fgRoutes.Use(middleware.Authorize(models.RoleFGStore, models.RoleSuperAdmin))
				{
					fgRoutes.POST("/dispatch", shopRequestHandler.Dispatch)
				}
			}

			// Biến thể sales request (MD/HO duyệt gộp một vòng)
			salesRequests := businessRoutes.Group("/sales-requests")
			{
				createSales := salesRequests.Group("/")
				createSales.Use(middleware.Authorize(models.RoleMD, models.RoleHO, models.RoleSuperAdmin))
				{
					createSales.POST("/", salesRequestHandler.CreateSalesRequest)
				}

				readSales := salesRequests.Group("/")
				readSales.Use(middleware.Authorize(models.RoleMD, models.RoleHO, models.RoleFGStore, models.RoleSuperAdmin))
				{
					readSales.GET("/", salesRequestHandler.GetAllSalesRequests)
					readSales.GET("/:id", salesRequestHandler.GetSalesRequest)
				}

				fgSales := salesRequests.Group("/:id")
				fgSales.Use(middleware.Authorize(models.RoleFGStore, models.RoleSuperAdmin))
				{
					fgSales.POST("/dispatch", salesRequestHandler.Dispatch)
				}
			}

			// Phiếu xuất và tracking
			dispatches := businessRoutes.Group("/dispatches")
			dispatches.Use(middleware.Authorize(models.RoleMD, models.RoleHO, models.RoleFGStore, models.RoleSuperAdmin))
			{
				dispatches.POST("/", dispatchHandler.CreateDispatch)
				dispatches.GET("/", dispatchHandler.GetAllDispatches)
				dispatches.GET("/:id", dispatchHandler.GetDispatch)
				dispatches.POST("/:id/proof-photo", dispatchHandler.UploadProofPhoto)

				dispatches.GET("/tracking/:recipientType/:recipientID", dispatchHandler.GetTracking)
				dispatches.GET("/logs/:recipientID", dispatchHandler.GetDispatchLogs)
				dispatches.GET("/logs/:recipientID/trend", dispatchHandler.GetMonthlyTrend)
				dispatches.GET("/logs/:recipientID/top-products", dispatchHandler.GetTopProducts)
			}

			// Bảng giá
			pricingRoutes := businessRoutes.Group("/pricing")
			{
				readPricing := pricingRoutes.Group("/")
				readPricing.Use(middleware.Authorize(models.RoleMD, models.RoleHO, models.RoleFGStore, models.RoleSuperAdmin))
				{
					readPricing.GET("/:key", pricingHandler.GetPrice)
					readPricing.GET("/:key/history", pricingHandler.GetHistory)
				}

				writePricing := pricingRoutes.Group("/")
				writePricing.Use(middleware.Authorize(models.RoleMD, models.RoleHO, models.RoleSuperAdmin))
				{
					writePricing.PUT("/:key", pricingHandler.UpdatePrice)
				}
			}

			// Tồn kho thành phẩm
			inventory := businessRoutes.Group("/inventory")
			inventory.Use(middleware.Authorize(models.RoleFGStore, models.RoleHO, models.RoleSuperAdmin))
			{
				inventory.GET("/", inventoryHandler.GetAllStock)
				inventory.GET("/:key", inventoryHandler.GetStock)
				inventory.GET("/:key/movements", inventoryHandler.GetMovements)
				inventory.POST("/receive", inventoryHandler.ReceiveStock)
			}
		}
	}

	return router
}
