package flows

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
	"go.uber.org/zap"
)

const (
	statePostGroup        dialog.StateName = "post_group"
	statePostContent      dialog.StateName = "post_content"
	statePostButtonChoice dialog.StateName = "post_button_choice"
	statePostButtonLabel  dialog.StateName = "post_button_label"
	statePostButtonURL    dialog.StateName = "post_button_url"
	statePostCalendar     dialog.StateName = "post_calendar"
	statePostConfirm      dialog.StateName = "post_confirm"
)

// calendarSlot один слот публикации, выбранный в mini-app календаре
type calendarSlot struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Time    string `json:"time"` // HH:MM:SS
	WithPin bool   `json:"withPin"`
}

// calendarPayload сырой ответ календаря. Сумму считает календарь,
// бот её не пересчитывает и показывает как есть, включая дробную.
type calendarPayload struct {
	Posts      []calendarSlot `json:"posts"`
	TotalPrice json.Number    `json:"totalPrice"`
}

// CreatePost создание объявления: группа, содержимое, кнопка,
// календарь слотов, подтверждение
func CreatePost(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "create_post",
		Entry:   statePostGroup,
		Trigger: dialog.TextContains("создать объявление"),
		Roles:   []model.Role{model.RoleVendor, model.RoleAdmin},
		States: map[dialog.StateName]*dialog.StateDef{
			statePostGroup: {
				Name:   statePostGroup,
				Back:   dialog.StateNone,
				Prompt: d.postGroupPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("post_group:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"group_id": ev.CallbackArg("post_group:")}, nil
						},
						Next: statePostContent,
					},
				},
			},
			statePostContent: {
				Name: statePostContent,
				Back: statePostGroup,
				Prompt: textPrompt("Отправьте содержимое объявления: текст, фото, видео или гифку\n\n" +
					"Либо пришлите ссылку на ранее опубликованный пост, чтобы повторить его"),
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindText,
						Match: func(ev dialog.Event) bool { return dialog.LooksLikePostLink(ev.Text) },
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							messageID, verr := dialog.ParsePostLink(ev.Text)
							if verr != nil {
								return nil, verr
							}
							return map[string]string{"clone_message_id": itoa(messageID)}, nil
						},
						Next: statePostCalendar,
					},
					{
						Kind: dialog.KindMedia,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{
								"content_type": ev.Media.Type,
								"file_id":      ev.Media.FileID,
								"text":         ev.Media.Caption,
							}, nil
						},
						Next: statePostButtonChoice,
					},
					{
						Kind: dialog.KindText,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							if ev.Text == "" {
								return nil, &dialog.ValidationError{Message: "Отправьте текст или вложение"}
							}
							return map[string]string{
								"content_type": catalog.PublicationText,
								"text":         ev.Text,
							}, nil
						},
						Next: statePostButtonChoice,
					},
				},
			},
			statePostButtonChoice: {
				Name: statePostButtonChoice,
				Back: statePostContent,
				Prompt: func(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
					return dialog.Effect{
						Text: "Добавить к объявлению кнопку-ссылку?",
						Rows: [][]dialog.Button{dialog.Row(
							dialog.Button{Text: "Да", Data: "button:yes"},
							dialog.Button{Text: "Нет", Data: "button:no"},
						)},
						BackMenu: true,
					}, nil
				},
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "button:yes" },
						Next:  statePostButtonLabel,
					},
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "button:no" },
						Next:  statePostCalendar,
					},
				},
			},
			statePostButtonLabel: {
				Name:   statePostButtonLabel,
				Back:   statePostButtonChoice,
				Prompt: textPrompt(fmt.Sprintf("Отправьте текст кнопки (до %d символов)", dialog.ButtonLabelMaxLen)),
				Transitions: []dialog.Transition{
					{
						Kind: dialog.KindText,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							label, verr := dialog.ValidateButtonLabel(ev.Text)
							if verr != nil {
								return nil, verr
							}
							return map[string]string{"button_text": label}, nil
						},
						Next: statePostButtonURL,
					},
				},
			},
			statePostButtonURL: {
				Name:   statePostButtonURL,
				Back:   statePostButtonLabel,
				Prompt: textPrompt("Отправьте ссылку для кнопки\n\nМожно @username, t.me/... или полный адрес"),
				Transitions: []dialog.Transition{
					{
						Kind: dialog.KindText,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							link, verr := dialog.NormalizeButtonURL(ev.Text)
							if verr != nil {
								return nil, verr
							}
							return map[string]string{"button_url": link}, nil
						},
						Next: statePostCalendar,
					},
				},
			},
			statePostCalendar: {
				Name:   statePostCalendar,
				Back:   statePostContent,
				Prompt: d.postCalendarPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:     dialog.KindWebApp,
						Validate: validateCalendarPayload,
						Next:     statePostConfirm,
					},
				},
			},
			statePostConfirm: {
				Name:   statePostConfirm,
				Back:   statePostCalendar,
				Prompt: postConfirmPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "confirm" },
						Next:  dialog.StateTerminal,
					},
				},
			},
		},
		Terminal: d.createPostTerminal,
	}
}

func (d *Deps) postGroupPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	user, err := d.vendorUser(ctx, s.Identity)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	groups, err := d.Groups.ListByOwner(ctx, user.ID)
	if err != nil {
		return dialog.Effect{}, err
	}
	if len(groups) == 0 {
		return dialog.Effect{}, &dialog.UserError{Text: "У вас пока нет групп. Нажмите «🆕 Добавить группу»"}
	}

	var rows [][]dialog.Button
	for _, group := range groups {
		rows = append(rows, dialog.Row(dialog.Button{
			Text: group.Name,
			Data: "post_group:" + itoa(group.ID),
		}))
	}

	return dialog.Effect{Text: "В какой группе разместить объявление?", Rows: rows, BackMenu: true}, nil
}

func (d *Deps) postCalendarPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	url := fmt.Sprintf("%s?groupId=%s", d.CalendarURL, s.Field("group_id"))
	return dialog.Effect{
		Text: "Выберите даты и время публикации в календаре",
		Rows: [][]dialog.Button{dialog.Row(
			dialog.Button{Text: "📅 Открыть календарь", WebAppURL: url},
		)},
		BackMenu: true,
	}, nil
}

func validateCalendarPayload(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
	var payload calendarPayload
	if err := json.Unmarshal([]byte(ev.WebApp), &payload); err != nil {
		return nil, &dialog.ValidationError{Message: "Не удалось прочитать данные календаря, попробуйте еще раз"}
	}
	if len(payload.Posts) == 0 {
		return nil, &dialog.ValidationError{Message: "Не выбрано ни одного слота публикации"}
	}
	if _, err := payload.TotalPrice.Float64(); err != nil {
		return nil, &dialog.ValidationError{Message: "Не удалось прочитать данные календаря, попробуйте еще раз"}
	}
	return map[string]string{
		"slots":       ev.WebApp,
		"total_price": payload.TotalPrice.String(),
	}, nil
}

func postConfirmPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	var payload calendarPayload
	if err := json.Unmarshal([]byte(s.Field("slots")), &payload); err != nil {
		return dialog.Effect{}, fmt.Errorf("decode calendar slots: %w", err)
	}

	return dialog.Effect{
		Text: fmt.Sprintf("Публикаций: %d\nИтоговая стоимость: %s ₽\n\nПодтверждаете размещение?",
			len(payload.Posts), s.Field("total_price")),
		Rows: [][]dialog.Button{dialog.Row(
			dialog.Button{Text: "✅ Подтвердить", Data: "confirm"},
		)},
		BackMenu: true,
	}, nil
}

// createPostTerminal создаёт по одному посту каталога на каждый слот
// и записывает продажу в локальную статистику
func (d *Deps) createPostTerminal(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	user, err := d.vendorUser(ctx, s.Identity)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	group, err := d.ownedGroup(ctx, s)
	if err != nil {
		return dialog.Effect{}, err
	}

	remote, err := d.remoteGroup(ctx, user.Role, group)
	if err != nil {
		return dialog.Effect{}, err
	}

	publication, err := d.buildPublication(ctx, user.Role, s)
	if err != nil {
		return dialog.Effect{}, err
	}

	var payload calendarPayload
	if err := json.Unmarshal([]byte(s.Field("slots")), &payload); err != nil {
		return dialog.Effect{}, fmt.Errorf("decode calendar slots: %w", err)
	}

	for _, slot := range payload.Posts {
		post := catalog.Post{
			Publication: *publication,
			GroupID:     remote.ID,
			PublishDate: slot.Date,
			PublishTime: slot.Time,
			WithPin:     slot.WithPin,
		}
		if err := d.Catalog.CreatePost(ctx, user.Role, post); err != nil {
			return dialog.Effect{}, surface(err)
		}
	}

	if err := d.Stats.RecordSale(ctx, group.ID, saleAmount(payload.TotalPrice)); err != nil {
		// Посты уже созданы, пользователю продажу не ломаем
		d.Logger.Error("Не удалось записать продажу", zap.Error(err), zap.Int64("group_id", group.ID))
	}

	return dialog.Effect{
		Text: fmt.Sprintf("✅ Объявление запланировано\n\nПубликаций: %d\nИтоговая стоимость: %s ₽",
			len(payload.Posts), s.Field("total_price")),
	}, nil
}

// saleAmount округляет сумму календаря до целых рублей для локальной
// статистики; пользователю показывается исходное значение
func saleAmount(n json.Number) int {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return int(math.Round(f))
}

// buildPublication собирает содержимое объявления из аккумулятора;
// при повторе существующего поста содержимое берётся из каталога
func (d *Deps) buildPublication(ctx context.Context, as model.Role, s *dialog.Session) (*catalog.Publication, error) {
	if raw := s.Field("clone_message_id"); raw != "" {
		messageID, err := fieldInt64(s, "clone_message_id")
		if err != nil {
			return nil, err
		}
		original, err := d.Catalog.FindPostByMessageID(ctx, as, messageID)
		if err != nil {
			return nil, surface(err)
		}
		if original == nil {
			return nil, &dialog.UserError{Text: "❌ Пост по этой ссылке не найден"}
		}
		return &original.Publication, nil
	}

	publication := &catalog.Publication{
		Type:   s.Field("content_type"),
		FileID: s.Field("file_id"),
		Text:   s.Field("text"),
	}
	if s.Field("button_text") != "" {
		publication.Button = &catalog.Button{
			Text: s.Field("button_text"),
			URL:  s.Field("button_url"),
		}
	}
	return publication, nil
}
