package controller

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/controller/keyboard"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
	"go.uber.org/zap"
)

// HandleUpdate принимает все обновления, не разобранные командами,
// и скармливает их движку диалогов. Паника в обработке одного
// обновления не роняет процесс.
func (c *BotController) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic while handling update",
				zap.Int64("update_id", update.ID),
				zap.Any("panic", r),
			)
		}
	}()

	switch {
	case update.Message != nil:
		c.handleMessage(ctx, b, update.Message)
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, b, update.CallbackQuery)
	}
}

func (c *BotController) handleMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	// Сообщения в группах только считаем для статистики
	if msg.Chat.Type == models.ChatTypeGroup || msg.Chat.Type == models.ChatTypeSupergroup {
		if err := c.groups.RecordGroupMessage(ctx, msg.Chat.ID); err != nil {
			c.logger.Warn("Failed to record group message",
				zap.Int64("chat_id", msg.Chat.ID),
				zap.Error(err),
			)
		}
		return
	}

	if msg.From == nil {
		return
	}

	event := eventFromMessage(msg)
	effect := c.engine.Advance(ctx, msg.From.ID, event)
	c.render(ctx, b, msg.From.ID, msg.Chat.ID, effect)
}

func (c *BotController) handleCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	identity := callback.From.ID

	chatID := identity
	if callback.Message.Message != nil {
		chatID = callback.Message.Message.Chat.ID
	}

	effect := c.engine.Advance(ctx, identity, dialog.Event{
		Kind:     dialog.KindCallback,
		Callback: callback.Data,
	})

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            effect.Notice,
	})

	if effect.Text == "" {
		return
	}

	// Ответ на нажатие кнопки показываем в том же сообщении. Новое
	// сообщение нужно только когда эффекту требуется reply-клавиатура.
	if callback.Message.Message != nil && !effect.RequestChat && !effect.MainMenu {
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   callback.Message.Message.ID,
			Text:        effect.Text,
			ReplyMarkup: keyboard.FromEffect(effect.Rows),
		})
		if err == nil || isMessageNotModified(err) {
			return
		}
		c.logger.Warn("Failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	c.render(ctx, b, identity, chatID, effect)
}

// isMessageNotModified распознаёт ошибку Telegram о редактировании без
// изменений, она не настоящая
func isMessageNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// eventFromMessage классифицирует личное сообщение в событие диалога
func eventFromMessage(msg *models.Message) dialog.Event {
	switch {
	case msg.ChatShared != nil:
		return dialog.Event{
			Kind: dialog.KindChatShared,
			Chat: &dialog.SharedChat{
				ChatID:   msg.ChatShared.ChatID,
				Title:    msg.ChatShared.Title,
				Username: msg.ChatShared.Username,
			},
		}
	case msg.WebAppData != nil:
		return dialog.Event{
			Kind:   dialog.KindWebApp,
			WebApp: msg.WebAppData.Data,
		}
	case len(msg.Photo) > 0:
		return dialog.Event{
			Kind: dialog.KindMedia,
			Media: &dialog.Media{
				Type:    catalog.PublicationPhoto,
				FileID:  msg.Photo[len(msg.Photo)-1].FileID,
				Caption: msg.Caption,
			},
		}
	case msg.Video != nil:
		return dialog.Event{
			Kind: dialog.KindMedia,
			Media: &dialog.Media{
				Type:    catalog.PublicationVideo,
				FileID:  msg.Video.FileID,
				Caption: msg.Caption,
			},
		}
	case msg.Animation != nil:
		return dialog.Event{
			Kind: dialog.KindMedia,
			Media: &dialog.Media{
				Type:    catalog.PublicationAnimation,
				FileID:  msg.Animation.FileID,
				Caption: msg.Caption,
			},
		}
	default:
		return dialog.Event{Kind: dialog.KindText, Text: msg.Text}
	}
}

// render показывает эффект движка пользователю
func (c *BotController) render(ctx context.Context, b *bot.Bot, identity, chatID int64, effect dialog.Effect) {
	if effect.Text == "" {
		return
	}

	role := model.RoleGuest
	if effect.MainMenu {
		resolved, err := c.users.ResolveRole(ctx, identity)
		if err != nil {
			c.logger.Warn("Failed to resolve role", zap.Int64("telegram_id", identity), zap.Error(err))
		} else {
			role = resolved
		}
	}

	c.sendMessage(ctx, b, chatID, effect.Text, keyboardFor(role, effect))
}

// keyboardFor выбирает клавиатуру эффекта. Inline-кнопки имеют
// приоритет; reply-клавиатура остаётся от предыдущего сообщения.
func keyboardFor(role model.Role, effect dialog.Effect) models.ReplyMarkup {
	switch {
	case effect.RequestChat:
		return keyboard.RequestChatMenu()
	case len(effect.Rows) > 0:
		return keyboard.FromEffect(effect.Rows)
	case effect.MainMenu:
		if menu := keyboard.MainMenu(role); menu != nil {
			return menu
		}
		return nil
	case effect.BackMenu:
		return keyboard.BackMenu()
	}
	return nil
}
