package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/controllers"
	"github.com/devforge-studio/devforge-api/middleware"
	"github.com/devforge-studio/devforge-api/models"
	"github.com/devforge-studio/devforge-api/services"
	"github.com/devforge-studio/devforge-api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	utils.InitLogger(cfg.LogLevel)

	if err := config.ConnectDatabase(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Project{},
		&models.Order{},
		&models.Payment{},
		&models.Offer{},
		&models.Message{},
	); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Msg("Database migration completed successfully")

	services.InitPaymentGateway(cfg)
	if !cfg.HasGatewayCredentials() {
		log.Warn().Msg("Payment gateway credentials not configured; paid checkout will fail with CONFIG_ERROR")
	}

	if cfg.AWSS3Bucket != "" {
		if _, err := services.InitS3Service(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 service")
		}
	} else {
		log.Warn().Msg("AWS_S3_BUCKET not configured; uploads disabled")
	}

	services.InitNotifier(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.GinLogger(), gin.Recovery())
	router.Use(cors.Default())

	registerRoutes(router, cfg)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("Server is running")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

func registerRoutes(router *gin.Engine, cfg *config.Config) {
	v1 := router.Group("/api/v1")

	// Public routes
	v1.GET("/health", healthCheck)
	v1.GET("/catalog/services", controllers.ListServices)
	v1.GET("/catalog/projects", controllers.ListProjects)
	v1.GET("/offers/:code", controllers.ValidateOffer)

	// Authenticated routes
	auth := v1.Group("", middleware.EnsureValidToken(cfg))
	{
		auth.POST("/users", controllers.CreateUser)
		auth.GET("/users/me", controllers.GetCurrentUser)
		auth.PUT("/users/me", controllers.UpdateCurrentUser)

		auth.GET("/orders", controllers.ListOrders)
		auth.GET("/orders/:id", controllers.GetOrder)
		auth.POST("/orders/:id/rating", controllers.RateOrder)

		auth.GET("/orders/:id/messages", controllers.ListMessages)
		auth.POST("/orders/:id/messages", controllers.SendMessage)

		auth.POST("/uploads", controllers.UploadFile)

		// Money flows refuse insecure transport outside development
		pay := auth.Group("", middleware.RequireSecureTransport())
		{
			pay.POST("/checkout/initiate", controllers.InitiateCheckout)
			pay.POST("/checkout/complete", controllers.CompleteCheckout)
			pay.POST("/orders/:id/payments/initiate", controllers.InitiatePayment)
			pay.POST("/orders/:id/payments/confirm", controllers.ConfirmPayment)
			pay.POST("/orders/:id/payments/cancel", controllers.CancelPayment)
		}
	}

	// Staff console; the role claim gate is a fast filter and controllers
	// re-check the stored role before any mutation
	staff := v1.Group("/staff",
		middleware.EnsureValidToken(cfg),
		middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper),
	)
	{
		staff.GET("/orders", controllers.ListOrders)
		staff.PUT("/orders/:id/quote", controllers.IssueQuote)
		staff.PUT("/orders/:id/status", controllers.ChangeStatus)
		staff.POST("/orders/:id/deliverables", controllers.AttachDeliverable)
		staff.POST("/orders/:id/reconcile", controllers.ReconcileOrder)
		staff.GET("/orders/:id/payments", controllers.ListOrderPayments)

		staff.POST("/offers", controllers.CreateOffer)
		staff.DELETE("/offers/:code", controllers.DeleteOffer)

		staff.POST("/projects", controllers.CreateProject)
		staff.DELETE("/projects/:id", controllers.DeleteProject)
		staff.POST("/services", controllers.CreateService)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "DevForge API is running",
	})
}
