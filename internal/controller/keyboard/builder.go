package keyboard

import (
	"github.com/go-telegram/bot/models"
	"github.com/grouppromo/adbot/internal/dialog"
)

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{
		rows: make([][]models.InlineKeyboardButton, 0),
	}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton создаёт кнопку с URL
func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

// WebAppButton создаёт кнопку, открывающую mini-app
func WebAppButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:   text,
		WebApp: &models.WebAppInfo{URL: url},
	}
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: b.rows,
	}
}

// FromEffect превращает ряды кнопок эффекта движка в inline клавиатуру.
// Возвращает nil когда кнопок нет.
func FromEffect(rows [][]dialog.Button) *models.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	b := NewBuilder()
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			switch {
			case btn.WebAppURL != "":
				buttons = append(buttons, WebAppButton(btn.Text, btn.WebAppURL))
			case btn.URL != "":
				buttons = append(buttons, URLButton(btn.Text, btn.URL))
			default:
				buttons = append(buttons, Button(btn.Text, btn.Data))
			}
		}
		b.Row(buttons...)
	}
	return b.Build()
}
