package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"ai-diagnosis-be/internal/config"
	"ai-diagnosis-be/internal/controller"
	"ai-diagnosis-be/internal/pkg/logger"
	"ai-diagnosis-be/internal/repository/memory"
	"ai-diagnosis-be/internal/service"
	"ai-diagnosis-be/pkg/classifier"
	"ai-diagnosis-be/pkg/classifier/modelserver"
	"ai-diagnosis-be/pkg/diagnosis"
	"ai-diagnosis-be/pkg/store"
	"ai-diagnosis-be/pkg/textnorm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	DiagnosisController controller.IDiagnosisController

	// Background Services (Exposed for main.go to run)
	AuditService service.IAuditService
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	engineLogger := initEngineLogger()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Evidence Sources
	normalizer := textnorm.New()

	var clf classifier.Provider
	if cfg.Model.BaseURL != "" {
		clf = modelserver.NewProvider(cfg.Model.BaseURL, time.Duration(cfg.Model.TimeoutSeconds)*time.Second)
		log.Printf("[INFO] Using model server at %s", cfg.Model.BaseURL)
	} else {
		log.Printf("[WARN] MODEL_SERVER_URL not set, classifier predictions disabled")
	}

	kb, err := diagnosis.LoadKnowledgeBase(cfg.Data.KnowledgeBasePath, engineLogger)
	if err != nil {
		log.Printf("[WARN] Knowledge base unavailable, rule matching disabled: %v", err)
		kb = diagnosis.EmptyKnowledgeBase()
	}

	fallback, err := diagnosis.LoadFallbackDataset(cfg.Data.FallbackDatasetPath, engineLogger)
	if err != nil {
		log.Printf("[WARN] Fallback dataset unavailable, overlap scoring disabled: %v", err)
		fallback = diagnosis.EmptyFallbackDataset()
	}

	engine := diagnosis.NewEngine(clf, kb, fallback, engineLogger)

	// 4. Session Storage
	sessionTTL := time.Duration(cfg.Engine.SessionTTLMinutes) * time.Minute
	sessionRepo := memory.NewSessionRepository(sessionTTL)

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	} else {
		log.Printf("[WARN] REDIS_URL not set, sessions are memory-only")
	}
	snapshots := store.NewSnapshotStore(rdb, sessionTTL)

	// 5. Services
	diagnosisService := service.NewDiagnosisService(
		engine,
		normalizer,
		sessionRepo,
		snapshots,
		pubSub,
		cfg.Engine.EventTopic,
		sysLogger,
		cfg.Engine.DefaultTopK,
		cfg.Engine.NegativeBoostMultiplier,
		cfg.Engine.FallbackToGlobalPop,
	)

	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)
	auditService := service.NewAuditService(pubSub, cfg.Engine.EventTopic, auditLogger)

	// 6. Controllers
	return &Container{
		DiagnosisController: controller.NewDiagnosisController(diagnosisService),
		AuditService:        auditService,
	}
}

func initEngineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "engine.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[ENGINE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
