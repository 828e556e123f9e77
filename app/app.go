package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	appsvc "transcribe-service/ddd/application/app"
	"transcribe-service/ddd/infrastructure/executor"
	"transcribe-service/internal/resource"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
	"transcribe-service/pkg/manager"
	"transcribe-service/pkg/middleware"
	"transcribe-service/pkg/registry"
	"transcribe-service/pkg/task"

	_ "transcribe-service/ddd/adapter/component"
	_ "transcribe-service/ddd/adapter/http"
	_ "transcribe-service/ddd/infrastructure/worker"
)

const serviceName = "transcribe-service"

func Run() {
	fmt.Println("[STARTUP] Starting transcribe service...")

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Infof("Transcribe service starting config=%s", cfgPath)

	// ffmpeg is a hard dependency of every job; fail at boot, not per-job.
	normalizer := executor.NewFFmpegNormalizer(cfg.Whisper.FFmpegPath, cfg.Whisper.FFprobePath)
	if err := normalizer.CheckBinaries(); err != nil {
		logger.Fatal(fmt.Sprintf("media toolchain missing error=%v", err))
	}

	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	transcribeAppService := appsvc.DefaultTranscribeApp()

	deps := &manager.Dependencies{
		DB:                   resource.DefaultMysqlResource().MainDB(),
		Config:               cfg,
		TranscribeAppService: transcribeAppService,
	}

	logger.Infof("Initializing components...")
	manager.MustInitComponents(deps)
	logger.Infof("All components initialized")

	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()
	if err := task.StartAll(taskCtx); err != nil {
		logger.Fatal(fmt.Sprintf("failed to start background tasks error=%v", err))
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestContextMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().Unix(),
		})
	})

	logger.Infof("Registering routes...")
	manager.RegisterAllRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started address=%s service=%s", addr, serviceName)

	serviceRegistry := registerService(cfg, addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	if serviceRegistry != nil {
		if err := serviceRegistry.Deregister(); err != nil {
			logger.Warnf("service deregistration failed error=%v", err)
		}
	}

	// Stop intake first, then let in-flight jobs settle under the grace period.
	manager.Shutdown()
	task.StopAll()
	taskCancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to close error=%v", err)
	}

	logger.Infof("Server exited safely")
	if logService != nil {
		logService.Close()
	}
	fmt.Println("[SHUTDOWN] Transcribe service exited safely")
}

// registerService announces the instance in etcd when enabled. Failure to
// register is logged, not fatal: the HTTP API still works addressed directly.
func registerService(cfg *config.Config, addr string) *registry.ServiceRegistry {
	srCfg := cfg.ServiceRegistry
	if !srCfg.Enabled {
		return nil
	}

	registerAddr := addr
	if srCfg.RegisterHost != "" {
		registerAddr = fmt.Sprintf("%s:%d", srCfg.RegisterHost, cfg.Server.Port)
	}

	sr, err := registry.NewServiceRegistry(
		registry.RegistryConfig{Endpoints: srCfg.Endpoints},
		registry.ServiceConfig{
			ServiceName: srCfg.ServiceName,
			ServiceID:   srCfg.ServiceID,
			TTL:         srCfg.TTL,
		},
		registerAddr,
	)
	if err != nil {
		logger.Warnf("service registry unavailable error=%v", err)
		return nil
	}
	if err := sr.Register(); err != nil {
		logger.Warnf("service registration failed error=%v", err)
		return nil
	}
	logger.Infof("service registered name=%s id=%s addr=%s", srCfg.ServiceName, srCfg.ServiceID, registerAddr)
	return sr
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Worker.ShutdownGracePeriod > 0 {
		return cfg.Worker.ShutdownGracePeriod
	}
	return 5 * time.Second
}

// resolveConfigPath picks the config file, honoring CONFIG_PATH and CONFIG_ENV.
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
