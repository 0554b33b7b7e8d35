// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: открывает хранилище уважения, лимитер запросов,
// метрики, обработчики и собирает всё в один объект Bot.
package app

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/respect-bot/internal/bot"
	"serotonyl.ru/respect-bot/internal/bot/filters"
	"serotonyl.ru/respect-bot/internal/bot/middleware"
	"serotonyl.ru/respect-bot/internal/config"
	"serotonyl.ru/respect-bot/internal/db/postgres"
	"serotonyl.ru/respect-bot/internal/db/sqlite"
	"serotonyl.ru/respect-bot/internal/features/respect"
	"serotonyl.ru/respect-bot/internal/jobs"
	"serotonyl.ru/respect-bot/internal/metrics"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Store     respect.Store
	Metrics   *metrics.Metrics
	BotAPI    *tgbotapi.BotAPI

	limiter middleware.Limiter
	redis   *redis.Client
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === 1. Хранилище уважения ===
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	a.BotAPI = botAPI
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Лимитер запросов ===
	a.limiter, a.redis = newLimiter(ctx, cfg)

	// === 4. Сервис и обработчик ===
	service := respect.NewService(store, nil)
	handler := respect.NewHandler(service, botAPI)

	// === 5. Фильтры и метрики ===
	chatFilter := filters.NewChatFilter(cfg.IsChatAllowed)
	a.Metrics = metrics.New()

	// === 6. Собираем бота ===
	a.Bot = bot.New(botAPI, cfg, handler, chatFilter, a.limiter, a.Metrics)

	// === 7. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(store, cfg.JobsHealthcheckSpec, cfg.JobsDailyReportSpec)

	return a, nil
}

// openStore открывает хранилище по LEDGER_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (respect.Store, error) {
	switch cfg.LedgerDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		return respect.NewPostgresRepository(pool), nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, cfg.AppEnv == "development")
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
		}
		repo, err := respect.NewSQLiteRepository(db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
			return nil, fmt.Errorf("ошибка миграций SQLite: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("неизвестный LEDGER_DRIVER %q", cfg.LedgerDriver)
}

// newLimiter создаёт лимитер по RATE_LIMIT_BACKEND.
// Недоступный Redis на старте не фатален: лимитер пропускает запросы.
func newLimiter(ctx context.Context, cfg *config.Config) (middleware.Limiter, *redis.Client) {
	if cfg.RateLimitBackend != config.RateLimitRedis {
		return middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Redis недоступен, лимит запросов временно не действует")
	} else {
		log.WithField("addr", cfg.RedisAddr).Info("Лимит запросов хранится в Redis")
	}
	return middleware.NewRedisRateLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow), rdb
}

// Close освобождает ресурсы: лимитер, Redis и хранилище.
func (a *App) Close() error {
	var errs []error
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("хранилище: %w", err))
		}
	}
	return errors.Join(errs...)
}
