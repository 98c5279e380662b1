// Package main - точка входа движка прогрессии CodeQuest.
//
// Движок принимает вебхуки о проверенных попытках от платформы,
// ведёт журнал начислений XP, дерево навыков, ежедневные задания
// и лидерборд.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: реализация репозиториев, кеши, планировщик
// - Interface: HTTP endpoints и приём вебхуков
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codequest-hub/codequest-progression/config"

	// Application layer
	"github.com/codequest-hub/codequest-progression/internal/application/command"
	"github.com/codequest-hub/codequest-progression/internal/application/eventhandler"
	"github.com/codequest-hub/codequest-progression/internal/application/query"

	// Domain layer
	"github.com/codequest-hub/codequest-progression/internal/domain/progression"

	// Infrastructure layer
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/messaging"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/persistence/postgres"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/persistence/redis"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/scheduler"
	"github.com/codequest-hub/codequest-progression/internal/infrastructure/scheduler/jobs"

	// Interface layer
	httpserver "github.com/codequest-hub/codequest-progression/internal/interface/http"

	"github.com/codequest-hub/codequest-progression/internal/interface/http/handlers"

	// Packages
	"github.com/codequest-hub/codequest-progression/pkg/logger"
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
	// .env используется только в development; отсутствие файла - не ошибка.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting CodeQuest progression engine",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
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
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	// При одновременном старте обоих бинарников миграции может применять
	// сосед; повторная попытка видит уже готовую схему.
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := retry.DatabaseRetrier().Do(ctx, migrator.Migrate); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Лидерборд читается из Redis-проекции; при недоступном Redis все
	// запросы падают обратно на PostgreSQL.
	var redisCache *redis.Cache
	var leaderboardCache *redis.LeaderboardCache

	cacheEnabled := cfg.Features.IsEnabled(config.FeatureLeaderboardCache, nil)
	if !cfg.Redis.Disabled && cacheEnabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard served from Postgres", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	progressRepo := postgres.NewProgressRepository(dbConn)
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	catalogRepo := postgres.NewCatalogRepository(dbConn)
	nodeRepo := postgres.NewSkillNodeRepository(dbConn)
	unlockRepo := postgres.NewSkillUnlockRepository(dbConn)
	challengeRepo := postgres.NewDailyChallengeRepository(dbConn)
	completionRepo := postgres.NewCompletionRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	awardHandler := command.NewAwardXPHandler(progressRepo, ledgerRepo, eventBus)
	streakHandler := command.NewUpdateStreakHandler(progressRepo, awardHandler, eventBus)
	nodeProgressHandler := command.NewUpdateNodeProgressHandler(
		nodeRepo, unlockRepo, catalogRepo, catalogRepo, awardHandler, eventBus)
	processCompletion := command.NewProcessCompletionHandler(
		catalogRepo, catalogRepo, progressRepo,
		awardHandler, streakHandler, nodeProgressHandler, eventBus)
	unlockNode := command.NewUnlockSkillNodeHandler(
		nodeRepo, unlockRepo, progressRepo, nodeProgressHandler, eventBus)
	prepareChallenge := command.NewPrepareDailyChallengeHandler(
		challengeRepo, catalogRepo, eventBus, nil)
	completeChallenge := command.NewCompleteDailyChallengeHandler(
		challengeRepo, completionRepo, awardHandler, eventBus)

	// Интерфейсное значение присваивается только при живом кеше,
	// иначе внутри хендлера typed-nil пройдёт проверку на nil.
	var lbCache progression.LeaderboardCache
	if leaderboardCache != nil {
		lbCache = leaderboardCache
	}

	progressQuery := query.NewGetUserProgressHandler(progressRepo, ledgerRepo)
	leaderboardQuery := query.NewGetLeaderboardHandler(progressRepo, lbCache, nil)
	skillTreeQuery := query.NewGetSkillTreeHandler(nodeRepo, unlockRepo, progressRepo)
	challengeQuery := query.NewGetDailyChallengeHandler(prepareChallenge, completionRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	// Каждое начисление XP инкрементально обновляет Redis-проекцию
	// лидерборда; плановый rebuild чинит дрейф.
	if leaderboardCache != nil {
		xpAwarded := eventhandler.NewOnXPAwardedHandler(
			progressRepo, leaderboardCache, log, eventhandler.DefaultXPAwardedConfig())
		if err := eventBus.Subscribe(xpAwarded.EventType(), xpAwarded.Handle); err != nil {
			return fmt.Errorf("failed to subscribe event handler: %w", err)
		}
		log.Info("event handlers registered", "handlers", 1)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ИНИЦИАЛИЗАЦИЯ ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{
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
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.WebhookSecret = cfg.HTTP.WebhookSecret

	httpDeps := httpserver.Dependencies{
		GetUserProgressHandler:        progressQuery,
		GetLeaderboardHandler:         leaderboardQuery,
		GetSkillTreeHandler:           skillTreeQuery,
		GetDailyChallengeHandler:      challengeQuery,
		UnlockSkillNodeHandler:        unlockNode,
		CompleteDailyChallengeHandler: completeChallenge,
		Logger:                        logger.Default(),
		HealthChecker:                 healthChecker,
		WebhookHandler:                handlers.NewAttemptWebhookHandler(processCompletion),
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 2)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	if sched != nil {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("CodeQuest progression engine is running",
		"http_address", httpServer.Address(),
		"scheduler_enabled", sched != nil,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	// 1. Останавливаем планировщик (дожидаемся текущих джобов)
	if sched != nil {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler gracefully", "error", err)
			shutdownErr = err
		}
	}

	// 2. Останавливаем HTTP сервер
	log.Info("stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		shutdownErr = err
	}

	// 3. Event bus и база данных закроются через defer

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// parseLogLevel преобразует строковый уровень в slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
