package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/database"
	"github.com/swiftparcel/parcel-backend/internal/handlers"
	"github.com/swiftparcel/parcel-backend/internal/middleware"
	"github.com/swiftparcel/parcel-backend/internal/models"
	"github.com/swiftparcel/parcel-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Redis backs logout revocation and the live status feed; the API works
	// without it, so a missing Redis is a warning rather than fatal.
	if err := services.InitRedis(cfg); err != nil {
		log.Printf("Redis initialization warning: %v", err)
	}

	if err := services.InitStorage(cfg); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Live parcel status updates
	hub := services.NewHub()
	go hub.Run()
	go services.SubscribeParcelUpdates(context.Background(), hub)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = cfg.FrontendURL != "*"
	r.Use(cors.New(corsConfig))

	// Serve locally stored parcel images
	r.Static("/uploads", cfg.UploadDir)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"success": true,
			"message": "Welcome to Parcel Delivery API",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api/v1")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(cfg, db))
			auth.POST("/login", handlers.Login(cfg, db))
			auth.POST("/refresh-token", handlers.RefreshToken(cfg, db))
		}

		// Public parcel tracking, no auth required
		api.GET("/parcels/track/:trackingId", handlers.TrackParcel(db))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg, db))
		{
			authed := protected.Group("/auth")
			{
				authed.POST("/logout", handlers.Logout(cfg))
				authed.POST("/change-password", handlers.ChangePassword(cfg, db))
				authed.GET("/profile", handlers.GetProfile(db))
			}

			// WebSocket connection for live status updates
			protected.GET("/ws", handlers.WebSocketHandler(hub))

			parcels := protected.Group("/parcels")
			{
				parcels.POST("", middleware.RequireRoles(models.RoleSender), handlers.CreateParcel(db))
				parcels.GET("/my-sent", middleware.RequireRoles(models.RoleSender), handlers.GetMySentParcels(db))
				parcels.GET("/my-received", middleware.RequireRoles(models.RoleReceiver), handlers.GetMyReceivedParcels(db))
				parcels.GET("/:id", handlers.GetParcelByID(db))
				parcels.PATCH("/:id/cancel", middleware.RequireRoles(models.RoleSender), handlers.CancelParcel(db))
				parcels.PATCH("/:id/confirm-delivery", middleware.RequireRoles(models.RoleReceiver), handlers.ConfirmDelivery(db))

				// Admin parcel management
				parcels.GET("", middleware.RequireRoles(models.RoleAdmin), handlers.GetAllParcels(db))
				parcels.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin), handlers.UpdateParcelStatus(cfg, db))
				parcels.PATCH("/:id/toggle-block", middleware.RequireRoles(models.RoleAdmin), handlers.ToggleBlockParcel(db))
			}

			users := protected.Group("/users")
			users.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				users.GET("", handlers.GetAllUsers(db))
				users.PATCH("/:id/toggle-block", handlers.ToggleBlockUser(db))
				users.DELETE("/:id", handlers.DeleteUser(db))
			}
		}
	}

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
