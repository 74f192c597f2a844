package controller

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/config"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/service"
	"go.uber.org/zap"
)

const (
	adminGroupQuota  = 100
	clientGroupQuota = 3
)

type BotController struct {
	bot     *bot.Bot
	engine  *dialog.Engine
	users   *service.UserService
	groups  *service.GroupService
	catalog *catalog.Client
	cfg     *config.Config
	logger  *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	engine *dialog.Engine,
	userService *service.UserService,
	groupService *service.GroupService,
	catalogClient *catalog.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:     botInstance,
		engine:  engine,
		users:   userService,
		groups:  groupService,
		catalog: catalogClient,
		cfg:     cfg,
		logger:  logger,
	}
}

// RegisterHandlers регистрирует обработчики команд. Все остальные
// обновления попадают в default handler и уходят в движок диалогов.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.HandleStart)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "cancel", Description: "❌ Отменить текущую операцию"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// HandleStart обрабатывает команду /start
func (c *BotController) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From
	chatID := update.Message.Chat.ID

	role := model.RoleClient
	quota := clientGroupQuota
	if c.cfg.IsAdminID(from.ID) {
		role = model.RoleAdmin
		quota = adminGroupQuota
	}

	user, err := c.users.RegisterUser(ctx, from.ID, from.Username, from.FirstName, from.LastName, role, quota)
	if err != nil {
		c.logger.Error("Failed to register user", zap.Int64("telegram_id", from.ID), zap.Error(err))
		c.sendError(ctx, b, chatID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	// Заводим пользователя и в каталоге; сбой не ломает регистрацию
	if err := c.catalog.CreateUser(ctx, user.Role, from.ID); err != nil {
		c.logger.Warn("Failed to create catalog user", zap.Int64("telegram_id", from.ID), zap.Error(err))
	}

	if !user.Role.Vendor() {
		c.sendMessage(ctx, b, chatID, c.cfg.DefaultClientMessage, nil)
		return
	}

	c.sendMessage(ctx, b, chatID,
		"👋 Добро пожаловать!\n\nВыберите действие в меню ниже.",
		keyboardFor(user.Role, dialog.Effect{MainMenu: true}))
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}

// NotifyAdmins рассылает служебное сообщение всем админам из конфига
func (c *BotController) NotifyAdmins(ctx context.Context, text string) {
	for _, id := range c.cfg.AdminTelegramIDs {
		_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: id,
			Text:   text,
		})
		if err != nil {
			c.logger.Warn("Failed to notify admin", zap.Int64("admin_id", id), zap.Error(err))
		}
	}
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (c *BotController) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	c.sendMessage(ctx, b, chatID, text, nil)
}

// sendMessage отправляет сообщение и логирует если не удалось
func (c *BotController) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
