package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/grouppromo/adbot/internal/app"
	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/config"
	"github.com/grouppromo/adbot/internal/controller"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/dialog/flows"
	"github.com/grouppromo/adbot/internal/repository"
	"github.com/grouppromo/adbot/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Sugar().Infow("Starting ad marketplace bot",
		"environment", cfg.Environment,
		"token_length", len(cfg.BotToken))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// База данных
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Миграции
	migrator, err := app.NewMigrator(pool, "migrations")
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Хранилище состояний диалогов: Redis когда настроен,
	// иначе память процесса
	var store dialog.Store = dialog.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		store = dialog.NewRedisStore(rdb)
		logger.Info("✅ Using redis session store", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("✅ Using in-memory session store")
	}

	// Репозитории
	userRepo := repository.NewUserRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	postRepo := repository.NewPostRepository(pool)

	// Удалённый каталог
	catalogClient := catalog.NewClient(cfg.APIBaseURL, logger)

	// Сервисы
	userService := service.NewUserService(userRepo, logger)
	groupService := service.NewGroupService(groupRepo, messageRepo, userRepo, logger)
	statsService := service.NewStatsService(postRepo, messageRepo, catalogClient, logger)

	// Диалоги и движок
	deps := &flows.Deps{
		Users:       userService,
		Groups:      groupService,
		Stats:       statsService,
		Catalog:     catalogClient,
		Logger:      logger,
		PageSize:    cfg.PageLimit,
		CalendarURL: cfg.CalendarURL,
	}

	engine, err := dialog.NewEngine(store, userService, flows.All(deps), logger)
	if err != nil {
		logger.Fatal("Failed to build dialog engine", zap.Error(err))
	}

	// Бот: default handler закрывается на контроллер, который
	// создаётся после экземпляра бота
	var ctrl *controller.BotController
	b, err := bot.New(cfg.BotToken, bot.WithDefaultHandler(
		func(ctx context.Context, b *bot.Bot, update *models.Update) {
			ctrl.HandleUpdate(ctx, b, update)
		},
	))
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	ctrl = controller.NewBotController(b, engine, userService, groupService, catalogClient, cfg, logger)

	if err := ctrl.RegisterHandlers(ctx); err != nil {
		logger.Warn("Failed to register command menu", zap.Error(err))
	}

	ctrl.NotifyAdmins(ctx, "✅ Бот запущен")

	if err := ctrl.Start(ctx); err != nil {
		logger.Error("Bot stopped with error", zap.Error(err))
	}

	// Контекст уже отменён, прощаемся на свежем
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctrl.NotifyAdmins(shutdownCtx, "🛑 Бот остановлен")

	logger.Info("Bot stopped")
}
