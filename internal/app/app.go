package app

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/controller"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/service"
	"assessment_backend/pkg/configwatcher"
	"assessment_backend/pkg/database"
	"assessment_backend/pkg/logger"
	"assessment_backend/pkg/monitoring"
	"assessment_backend/pkg/security"
	"assessment_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	client       *repository.ClientRepository
	response     *repository.ResponseRepository
	draft        *repository.DraftRepository
	access       *repository.AccessRepository
	insightCache *repository.InsightCacheRepository
}

type services struct {
	registry *service.ToolRegistry
	scoring  *service.ScoringService
	insight  *service.InsightService
	session  *service.SessionService
	access   *service.AccessService
}

type controllers struct {
	form   *controller.FormController
	access *controller.AccessController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	draftTTL := time.Duration(cfg.Assessment.DraftTTLHours) * time.Hour
	insightTTL := time.Duration(cfg.Assessment.InsightTTLHours) * time.Hour

	return &repositories{
		client:       repository.NewClientRepository(db),
		response:     repository.NewResponseRepository(db),
		draft:        repository.NewDraftRepository(rdb, draftTTL),
		access:       repository.NewAccessRepository(db),
		insightCache: repository.NewInsightCacheRepository(rdb, insightTTL),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	enricher := service.NewChatEnricher(cfg.Enrichment)

	s.insight = service.NewInsightService(
		enricher,
		repos.insightCache,
		cfg.Enrichment.Workers,
		cfg.Enrichment.QueueSize,
		time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Assessment.SynthesisWaitSecond)*time.Second,
	)
	s.insight.Start()

	registry, err := service.NewToolRegistry(service.DefaultTools(s.insight)...)
	if err != nil {
		logger.Log.Fatal("Invalid tool registry", zap.Error(err))
		log.Fatalf("Invalid tool registry: %v", err)
	}
	s.registry = registry

	s.scoring = service.NewScoringService()
	s.session = service.NewSessionService(registry, repos.response, repos.draft, s.scoring, s.insight)
	s.access = service.NewAccessService(registry, repos.access, repos.response)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		form:   controller.NewFormController(s.session, s.access, s.registry),
		access: controller.NewAccessController(s.access),
		health: controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("assessment-engine", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.Log.Info("Configuration reloaded", zap.String("mode", c.Server.Mode))
	})
	go configwatcher.WatchConfig(filepath.Join("configs", "config.yaml"), cfg, func(raw interface{}) {
		newCfg, ok := raw.(*config.Config)
		if !ok {
			return
		}
		for _, callback := range app.configCallbacks {
			callback(newCfg)
		}
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Drain in-flight enrichment work before the process exits.
	if a.services != nil && a.services.insight != nil {
		a.services.insight.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
