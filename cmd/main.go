package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"smartroom/config"
	"smartroom/internal/handler"
	"smartroom/internal/repository"
	"smartroom/internal/service"
	"smartroom/internal/storage"
	"smartroom/utils"
	"smartroom/utils/mongodb"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Error parsing configs: %v", err)
	}

	mongoClient, err := mongodb.NewMongoDBConnection(cfg.MongoDB)
	if err != nil {
		log.Fatalf("Error connecting to MongoDB: %v", err)
	}
	db := mongoClient.Database(cfg.MongoDB.DBName)

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})

	redisClient, err := utils.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis connection...")
		return redisClient.Close()
	})

	blobStore, err := storage.NewMinioStorage(cfg.Minio)
	if err != nil {
		log.Fatalf("Error initializing MinIO storage: %v", err)
	}

	jwtUtil := utils.NewJWTUtil(cfg.JWT.Secret, cfg.JWT.TTL)

	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	roomService := service.NewRoomService(roomRepo, blobStore, redisClient)
	authService := service.NewAuthService(userRepo, blobStore, jwtUtil, redisClient, cfg.Media)
	bookingService := service.NewBookingService(bookingRepo, roomRepo)
	adminService := service.NewAdminService(roomRepo, userRepo, bookingRepo, redisClient)

	roomHandler := handler.NewRoomHandler(roomService, authService, blobStore)
	authHandler := handler.NewAuthHandler(authService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	adminHandler := handler.NewAdminHandler(adminService)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	authRequired := utils.AuthMiddleware(jwtUtil, redisClient)
	ownerOrAdmin := utils.RequireRoles("owner", "admin")
	adminOnly := utils.RequireRoles("admin")

	api := router.Group("/api/v1")

	rooms := api.Group("/rooms")
	{
		rooms.GET("", roomHandler.Search)
		rooms.PUT("/review", authRequired, roomHandler.SubmitReview)
		rooms.GET("/owner/me", authRequired, ownerOrAdmin, roomHandler.GetOwnerRooms)
		rooms.GET("/:id", roomHandler.GetDetails)
		rooms.POST("", authRequired, ownerOrAdmin, roomHandler.Create)
		rooms.PUT("/:id", authRequired, ownerOrAdmin, roomHandler.Update)
		rooms.DELETE("/:id", authRequired, ownerOrAdmin, roomHandler.Delete)
		rooms.PATCH("/:id/status", authRequired, ownerOrAdmin, roomHandler.UpdateStatus)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/logout", authRequired, authHandler.Logout)
		auth.GET("/me", authRequired, authHandler.GetProfile)
		auth.PUT("/me/update", authRequired, authHandler.UpdateProfile)
	}

	bookings := api.Group("/bookings", authRequired)
	{
		bookings.POST("", bookingHandler.Create)
		bookings.GET("/me", bookingHandler.ListMine)
		bookings.GET("/owner", ownerOrAdmin, bookingHandler.ListForOwner)
		bookings.PATCH("/:id/status", ownerOrAdmin, bookingHandler.UpdateStatus)
	}

	admin := api.Group("/admin", authRequired, adminOnly)
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.PUT("/room/:id", adminHandler.SetRoomApproval)
		admin.PUT("/user/verify/:id", adminHandler.VerifyOwner)
	}

	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("SmartRoom API running on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	<-ctx.Done()
	select {}
}
