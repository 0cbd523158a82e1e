package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kedesh11/oka-transport-api/api/swagger"
	"github.com/Kedesh11/oka-transport-api/internal/handler"
	"github.com/Kedesh11/oka-transport-api/internal/middleware"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	"github.com/Kedesh11/oka-transport-api/internal/recommender"
	"github.com/Kedesh11/oka-transport-api/internal/repository"
	"github.com/Kedesh11/oka-transport-api/internal/service"
	"github.com/Kedesh11/oka-transport-api/pkg/cache"
	"github.com/Kedesh11/oka-transport-api/pkg/config"
	"github.com/Kedesh11/oka-transport-api/pkg/database"
	"github.com/Kedesh11/oka-transport-api/pkg/jobs"
	"github.com/Kedesh11/oka-transport-api/pkg/logger"
	corsmiddleware "github.com/Kedesh11/oka-transport-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Kedesh11/oka-transport-api/pkg/middleware/requestid"
	"github.com/Kedesh11/oka-transport-api/pkg/storage"
)

// @title Oka Transport API
// @version 1.0.0
// @description Bus ticket reservation platform with automatic seat assignment
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, seat map cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	busRepo := repository.NewBusRepository(db)
	seatRepo := repository.NewSeatRepository(db)
	voyageRepo := repository.NewVoyageRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	passengerRepo := repository.NewPassengerRepository(db)
	assignmentRepo := repository.NewSeatAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	seatMapCache := repository.NewSeatMapCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	busSvc := service.NewBusService(busRepo, seatRepo, validate, logr)
	voyageSvc := service.NewVoyageService(voyageRepo, busRepo, seatRepo, assignmentRepo, seatMapCache, cfg.Assignment.SeatMapCacheTTL, validate, logr)
	reservationSvc := service.NewReservationService(reservationRepo, passengerRepo, voyageRepo, validate, logr)
	allocatorSvc := service.NewSeatAllocationService(voyageRepo, seatRepo, reservationRepo, passengerRepo, assignmentRepo, db, seatMapCache, metricsSvc, logr)

	var proposalSvc *service.SeatProposalService
	if cfg.Recommender.Enabled {
		recClient := recommender.NewClient(cfg.Recommender, logr)
		proposalSvc = service.NewSeatProposalService(voyageRepo, seatRepo, reservationRepo, passengerRepo, assignmentRepo, recClient, db, seatMapCache, metricsSvc, validate, logr)
	} else {
		proposalSvc = service.NewSeatProposalService(voyageRepo, seatRepo, reservationRepo, passengerRepo, assignmentRepo, nil, db, seatMapCache, metricsSvc, validate, logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var manifestSvc *service.ManifestService
	var manifestQueue *jobs.Queue
	if cfg.Manifests.Enabled {
		manifestRepo := repository.NewManifestJobRepository(db)
		localStore, err := storage.NewLocalStorage(cfg.Manifests.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init manifest storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Manifests.SignedURLSecret, cfg.Manifests.SignedURLTTL)
		worker := service.NewManifestWorker(manifestRepo, voyageRepo, seatRepo, reservationRepo, passengerRepo, assignmentRepo, localStore, metricsSvc, cfg.Manifests.WorkerRetries, logr)
		manifestQueue = jobs.NewQueue("manifests", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Manifests.WorkerConcurrency,
			MaxRetries: cfg.Manifests.WorkerRetries,
			Logger:     logr,
		})
		manifestQueue.Start(ctx)
		defer manifestQueue.Stop()
		manifestSvc = service.NewManifestService(manifestRepo, voyageRepo, manifestQueue, localStore, signer, validate, logr)

		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					removed, err := localStore.CleanupOlderThan(cfg.Manifests.Retention)
					if err != nil {
						logr.Sugar().Warnw("manifest retention sweep failed", "error", err)
						continue
					}
					if len(removed) > 0 {
						logr.Sugar().Infow("expired manifests removed", "count", len(removed))
					}
				}
			}
		}()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	busHandler := handler.NewBusHandler(busSvc)
	voyageHandler := handler.NewVoyageHandler(voyageSvc, allocatorSvc, proposalSvc)
	reservationHandler := handler.NewReservationHandler(reservationSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/auth/login", authHandler.Login)

	r.GET("/voyages", voyageHandler.ListByRoute)
	r.GET("/voyages/:id", voyageHandler.Get)
	r.POST("/reservations", reservationHandler.Create)
	r.GET("/reservations/:id", reservationHandler.Get)
	r.DELETE("/reservations/:id", reservationHandler.Delete)

	staff := r.Group("/", middleware.JWT(authSvc))
	staff.POST("/buses", middleware.RequireRoles(models.RoleAdmin), busHandler.Create)
	staff.GET("/buses", busHandler.List)
	staff.GET("/buses/:id", busHandler.Get)
	staff.PUT("/buses/:id/seats", middleware.RequireRoles(models.RoleAdmin), busHandler.SetSeats)
	staff.POST("/voyages", middleware.RequireRoles(models.RoleAdmin), voyageHandler.Create)
	staff.POST("/voyages/:id/auto-assign", voyageHandler.AutoAssign)
	staff.GET("/voyages/:id/assignment-proposals", voyageHandler.PreviewProposals)
	staff.POST("/voyages/:id/assignment-proposals", voyageHandler.ApplyProposals)

	if manifestSvc != nil {
		manifestHandler := handler.NewManifestHandler(manifestSvc)
		staff.POST("/voyages/:id/manifest", manifestHandler.Create)
		staff.GET("/manifests/:jobId", manifestHandler.Status)
		r.GET("/manifests/download/:token", manifestHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
