// internal/router/router.go
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/config"
	"github.com/PabloB07/mcshop/internal/flow"
	"github.com/PabloB07/mcshop/internal/handlers"
	"github.com/PabloB07/mcshop/internal/middleware"
	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

// Services bundles the long-lived services so main can reach the ones that
// run outside the request cycle (the dispatch supervisor).
type Services struct {
	Minecraft  *services.MinecraftService
	Supervisor *services.DispatchSupervisor
}

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, *Services, error) {
	flowClient := flow.NewClient(flow.Config{
		APIKey:      cfg.Flow.APIKey,
		SecretKey:   cfg.Flow.SecretKey,
		Environment: cfg.Flow.Environment,
		Timeout:     time.Duration(cfg.Flow.TimeoutSecs) * time.Second,
	})

	// Initialize services
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	mojangService := services.NewMojangService()

	authService := services.NewAuthService(db, cfg, auditService)
	orderService := services.NewOrderService(db, auditService)
	paymentService := services.NewPaymentService(db, cfg, flowClient)
	entitlementService := services.NewEntitlementService(db, notificationService, auditService)
	webhookService := services.NewWebhookService(db, flowClient, entitlementService, auditService)
	productService := services.NewProductService(db, storageService, auditService)
	licenseService := services.NewLicenseService(db, auditService)
	downloadService := services.NewDownloadService(db, storageService, auditService)
	serverService := services.NewServerService(db, auditService)
	minecraftService := services.NewMinecraftService(db, cfg, auditService)
	supervisor := services.NewDispatchSupervisor(db, cfg, minecraftService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.Frontend.BaseURL)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	productHandler := handlers.NewProductHandler(productService)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	downloadHandler := handlers.NewDownloadHandler(downloadService)
	pluginHandler := handlers.NewPluginHandler(minecraftService, licenseService)
	minecraftHandler := handlers.NewMinecraftHandler(mojangService)
	adminHandler := handlers.NewAdminHandler(serverService, productService, licenseService, paymentService, orderService, auditService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))

	generalLimit := middleware.NewRateLimiter(rate.Limit(20), 40)
	authLimit := middleware.NewRateLimiter(rate.Limit(1), 5)
	r.Use(generalLimit.Middleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Download redemption lives outside the API prefix so emailed links stay
	// short.
	r.GET("/downloads/:token", middleware.AuthRequired(), downloadHandler.Redeem)

	v1 := r.Group("/api/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(authLimit.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Catalog
		products := v1.Group("/products")
		{
			products.GET("", productHandler.ListProducts)
			products.GET("/:id", productHandler.GetProduct)
		}

		// Minecraft account validation
		v1.GET("/minecraft/validate/:username", minecraftHandler.ValidateUsername)

		// License verification is public for plugin installs
		v1.GET("/licenses/verify/:key", licenseHandler.Verify)

		// Payment gateway notifications, both delivery styles
		v1.POST("/webhooks/flow", webhookHandler.HandleFlowConfirmation)
		v1.GET("/webhooks/flow", webhookHandler.HandleFlowConfirmation)

		// The gateway's return leg is a browser POST; it expects HTML back.
		v1.POST("/payments/finalize", paymentHandler.FinalizeRedirect)
		v1.GET("/payments/finalize", paymentHandler.FinalizeRedirect)

		// Authenticated storefront routes
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.POST("/orders", orderHandler.CreateOrder)
			protected.GET("/orders", orderHandler.ListMyOrders)
			protected.GET("/orders/:id", orderHandler.GetOrder)

			protected.POST("/payments/:orderId", paymentHandler.CreatePayment)
			protected.GET("/payments/:orderId/status", paymentHandler.GetPaymentStatus)

			protected.GET("/licenses", licenseHandler.ListMyLicenses)
			protected.POST("/downloads/generate/:productId", downloadHandler.Generate)
		}

		// Game-server plugin channel, HMAC gated
		plugin := v1.Group("/plugin")
		plugin.Use(middleware.PluginAuth(serverService))
		{
			plugin.GET("/pending-orders", pluginHandler.PendingOrders)
			plugin.POST("/execute", pluginHandler.ReportExecution)
			plugin.POST("/confirm-order", pluginHandler.ConfirmOrder)
			plugin.GET("/license/:key", pluginHandler.VerifyLicense)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AdminAuditTrail(db))
		{
			admin.POST("/servers", adminHandler.RegisterServer)
			admin.GET("/servers", adminHandler.ListServers)
			admin.PATCH("/servers/:id", adminHandler.UpdateServer)
			admin.POST("/servers/:id/rotate-secret", adminHandler.RotateServerSecret)

			admin.POST("/products", adminHandler.CreateProduct)
			admin.POST("/products/:id/versions", adminHandler.UploadPluginVersion)

			admin.GET("/orders", adminHandler.ListOrders)
			admin.POST("/orders/:id/refund", adminHandler.RefundOrder)

			admin.POST("/licenses/:id/revoke", adminHandler.RevokeLicense)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
		}
	}

	return r, &Services{
		Minecraft:  minecraftService,
		Supervisor: supervisor,
	}, nil
}
