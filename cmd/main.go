package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"catalog-import-service/internal/clients"
	"catalog-import-service/internal/config"
	"catalog-import-service/internal/events"
	"catalog-import-service/internal/handlers"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/repository"
	"catalog-import-service/internal/storage"
)

// @title Catalog Import API
// @version 1.0.0
// @description Bulk product import, variant batches, stock status and exports with multi-tenant support

// @host localhost:8087
// @BasePath /api/v1

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	logger := cfg.NewLogger()

	db, err := config.InitDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	redisClient := connectRedis(cfg.RedisURL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	productsRepo := repository.NewProductsRepository(db, redisClient, logger)
	if categoriesClient := clients.NewCategoriesClient(cfg.CategoriesServiceURL, logger); categoriesClient != nil {
		productsRepo.WithCategoryFallback(categoriesClient)
		logger.WithField("url", cfg.CategoriesServiceURL).Info("✓ Categories service fallback enabled")
	}
	importLocker := repository.NewImportLocker(redisClient, cfg.ImportLockTTL, logger)

	// Event publishing is optional
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize events publisher (continuing without event publishing)")
		} else {
			logger.Info("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		logger.Info("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	var archiver storage.Archiver
	if cfg.ExportS3Bucket != "" {
		s3Archive, err := storage.NewS3Archive(context.Background(), storage.S3Config{
			Bucket:    cfg.ExportS3Bucket,
			Prefix:    cfg.ExportS3Prefix,
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.AWSEndpoint,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			URLTTL:    cfg.ExportURLTTL,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize export archive (archiving disabled)")
		} else {
			archiver = s3Archive
			logger.WithField("bucket", cfg.ExportS3Bucket).Info("✓ Export archive initialized")
		}
	}

	importHandler := handlers.NewImportHandler(productsRepo, importLocker, eventsPublisher, cfg.MaxImportRows, logger)
	variantsHandler := handlers.NewVariantsHandler(productsRepo, eventsPublisher, cfg.MaxVariantOperations, logger)
	exportHandler := handlers.NewExportHandler(productsRepo, archiver, logger)
	categoriesHandler := handlers.NewCategoriesHandler(productsRepo, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	api.Use(middleware.TenantMiddleware())
	api.Use(middleware.ActorMiddleware())
	{
		products := api.Group("/products")
		{
			products.GET("/import/template", importHandler.GetImportTemplate)
			products.POST("/import/validate", importHandler.ValidateImport)
			products.POST("/import", importHandler.ImportProducts)

			products.POST("/export", exportHandler.ExportProducts)
			products.GET("/export/fields", exportHandler.ListExportFields)

			products.GET("/:id/variants", variantsHandler.ListVariants)
			products.POST("/:id/variants/batch", variantsHandler.BatchVariants)
			products.GET("/:id/stock-status", variantsHandler.GetProductStockStatus)
		}

		api.GET("/stock-status", handlers.DeriveStockStatus)

		categories := api.Group("/categories")
		{
			categories.GET("", categoriesHandler.GetCategories)
			categories.POST("", categoriesHandler.CreateCategory)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Catalog import service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down catalog-import-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Catalog import service stopped")
}

// connectRedis returns nil when no URL is configured or the server is not
// reachable; caching and import locking are then disabled.
func connectRedis(url string, logger *logrus.Logger) *redis.Client {
	if url == "" {
		logger.Info("REDIS_URL not set, caching and import locking disabled")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL (continuing without Redis)")
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis (caching will be disabled)")
		client.Close()
		return nil
	}
	logger.Info("✓ Redis connected successfully")
	return client
}
