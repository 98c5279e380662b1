// Package main - точка входа для фоновых процессов (Worker) движка прогрессии.
//
// Worker отвечает за периодические задачи:
// - Подготовка ежедневного задания сразу после смены даты
// - Плановая перестройка Redis-проекции лидерборда
//
// Worker используется в деплоях, где фоновые джобы изолируют от
// API-трафика; в остальных случаях те же джобы исполняет встроенный
// планировщик бинаря engine (SCHEDULER_ENABLED=true).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codequest-hub/codequest-progression/config"
	"github.com/codequest-hub/codequest-progression/internal/application/command"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/messaging"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/persistence/postgres"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/persistence/redis"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/scheduler"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/scheduler/jobs"
	"github.com/codequest-hub/codequest-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting CodeQuest progression worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ (Worker также должен иметь актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := retry.DatabaseRetrier().Do(ctx, migrator.Migrate); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var leaderboardCache *redis.LeaderboardCache

	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureLeaderboardCache, nil) {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard rebuild disabled", "error", err)
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ И КОМАНД
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	progressRepo := postgres.NewProgressRepository(dbConn)
	catalogRepo := postgres.NewCatalogRepository(dbConn)
	challengeRepo := postgres.NewDailyChallengeRepository(dbConn)

	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		_ = eventBus.Close()
	}()

	prepareChallenge := command.NewPrepareDailyChallengeHandler(
		challengeRepo, catalogRepo, eventBus, nil)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. РЕГИСТРАЦИЯ ДЖОБОВ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:        log,
		Timezone:      time.UTC, // дни заданий переключаются в полночь UTC
		EnableMetrics: true,
	})

	if leaderboardCache != nil {
		rebuildJob := jobs.NewRebuildLeaderboardJob(progressRepo, leaderboardCache, log,
			jobs.RebuildLeaderboardConfig{
				MaxUsers: cfg.Scheduler.LeaderboardMaxUsers,
				Timeout:  cfg.Scheduler.JobTimeout,
			})
		schedule := scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)
		if err := sched.Register(rebuildJob, schedule); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}
	}

	if cfg.Features.ChallengeFeaturesEnabled(nil) {
		cron, err := scheduler.ParseCronExpression(cfg.Scheduler.PrepareChallengeCron)
		if err != nil {
			log.Warn("invalid challenge cron, using default",
				"cron", cfg.Scheduler.PrepareChallengeCron, "error", err)
			cron = scheduler.MustParseCronExpression(scheduler.ShortlyAfterMidnight)
		}
		prepareJob := jobs.NewPrepareDailyChallengeJob(prepareChallenge, log)
		if err := sched.Register(prepareJob, cron); err != nil {
			return fmt.Errorf("failed to register challenge job: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("CodeQuest progression worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
