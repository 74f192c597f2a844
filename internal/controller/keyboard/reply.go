package keyboard

import (
	"github.com/go-telegram/bot/models"
	"github.com/grouppromo/adbot/internal/model"
)

// RequestID кнопки выбора группы; в chat_shared возвращается тот же id
const GroupRequestID = 1

// MainMenu строит главную reply-клавиатуру по роли пользователя.
// Клиентам меню не показывается.
func MainMenu(role model.Role) *models.ReplyKeyboardMarkup {
	if !role.Vendor() {
		return nil
	}

	rows := [][]models.KeyboardButton{
		{
			{Text: "✏️ Создать объявление"},
			{Text: "💬 Мои группы"},
		},
		{
			{Text: "📊 Статистика"},
			{Text: "🆕 Добавить группу"},
		},
	}
	if role == model.RoleAdmin {
		rows = append(rows, []models.KeyboardButton{{Text: "🌟 Админка"}})
	}

	return &models.ReplyKeyboardMarkup{
		Keyboard:       rows,
		ResizeKeyboard: true,
	}
}

// BackMenu reply-клавиатура с одной кнопкой возврата
func BackMenu() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: "⬅️ Назад"}},
		},
		ResizeKeyboard: true,
	}
}

// RequestChatMenu reply-клавиатура с кнопкой выбора группы.
// Telegram присылает выбранный чат отдельным сообщением chat_shared.
func RequestChatMenu() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{
				{
					Text: "💬 Выбрать группу",
					RequestChat: &models.KeyboardButtonRequestChat{
						RequestID:     GroupRequestID,
						ChatIsChannel: false,
					},
				},
			},
			{{Text: "⬅️ Назад"}},
		},
		ResizeKeyboard: true,
	}
}
