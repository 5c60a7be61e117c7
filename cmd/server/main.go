package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskforge/backend/api/handler"
	"github.com/taskforge/backend/internal/auth"
	"github.com/taskforge/backend/internal/config"
	"github.com/taskforge/backend/internal/infrastructure/blob"
	"github.com/taskforge/backend/internal/infrastructure/monitor"
	pgInfra "github.com/taskforge/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskforge/backend/internal/infrastructure/redis"
	"github.com/taskforge/backend/internal/middleware"
	"github.com/taskforge/backend/internal/router"
	"github.com/taskforge/backend/internal/services"
	"github.com/taskforge/backend/internal/services/lifecycle"
	"github.com/taskforge/backend/pkg/httpcontext"
	"github.com/taskforge/backend/pkg/logger"
	"github.com/taskforge/backend/repository/postgres"
	redisRepo "github.com/taskforge/backend/repository/redis"
	identityUC "github.com/taskforge/backend/usecase/identity"
	reportUC "github.com/taskforge/backend/usecase/report"
	taskUC "github.com/taskforge/backend/usecase/task"
	userUC "github.com/taskforge/backend/usecase/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	uploadStore, err := blob.Open(cfg.Uploads.Path, cfg.Uploads.MaxSize)
	if err != nil {
		zapLogger.Fatal("failed to open upload store", zap.Error(err))
	}
	manager.Register("uploads", func(ctx context.Context) error {
		return uploadStore.Close()
	})

	mon := monitor.New(pool, redisClient, uploadStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	denylist := redisRepo.NewTokenDenylist(redisClient)

	sweeper := services.NewUploadSweeper(uploadStore, userRepo, zapLogger, services.SweeperConfig{
		Interval:  cfg.Uploads.SweepInterval,
		Retention: time.Duration(cfg.Uploads.RetentionHours) * time.Hour,
	})
	sweeper.Start()
	manager.Register("upload_sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	tokenService := auth.NewTokenService(auth.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	invites := auth.NewSharedSecretInviteValidator(cfg.Auth.AdminInviteToken)

	serializer := identityUC.NewSerializer(cfg.Auth.IdentityQueueDepth)
	identityUseCase := identityUC.New(userRepo, tokenService, invites, denylist, serializer, zapLogger)
	manager.Register("identity_queue", identityUseCase.Close)

	taskUseCase := taskUC.New(taskRepo, userRepo, zapLogger)
	userUseCase := userUC.New(userRepo, taskRepo, zapLogger)
	reportUseCase := reportUC.New(taskRepo, userRepo, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	cookieCfg := apiHandler.CookieConfig{
		Secure: cfg.IsProduction(),
		MaxAge: cfg.JWT.RefreshTTL,
	}

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(identityUseCase, uploadStore, cookieCfg, ctxAdapter, zapLogger),
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		User:   apiHandler.NewUserHandler(userUseCase, ctxAdapter, zapLogger),
		Report: apiHandler.NewReportHandler(reportUseCase, ctxAdapter, zapLogger),
		Upload: apiHandler.NewUploadHandler(uploadStore, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	protected := middleware.Authenticate(tokenService, userRepo, zapLogger)
	r := router.New(handlers, protected)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxBodySize,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
