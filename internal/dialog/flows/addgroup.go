package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
)

// Шаги диалога добавления группы
const (
	stateAddGroupSubject       dialog.StateName = "add_group_subject"
	stateAddGroupCity          dialog.StateName = "add_group_city"
	stateAddGroupChat          dialog.StateName = "add_group_chat"
	stateAddGroupPriceDay      dialog.StateName = "add_group_price_day"
	stateAddGroupPriceWeek     dialog.StateName = "add_group_price_week"
	stateAddGroupPriceTwoWeeks dialog.StateName = "add_group_price_two_weeks"
	stateAddGroupPriceMonth    dialog.StateName = "add_group_price_month"
)

// AddGroup диалог регистрации группы: направление → город → чат →
// прайс. Прайс принимается либо по шагам, либо одним сообщением из
// четырёх строк — это альтернативный валидатор первого ценового шага,
// завершающийся в тот же терминал.
func AddGroup(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "add_group",
		Entry:   stateAddGroupSubject,
		Trigger: dialog.TextContains("добавить группу"),
		Roles:   []model.Role{model.RoleVendor, model.RoleAdmin},
		Precheck: func(ctx context.Context, identity int64) (*dialog.Effect, error) {
			user, err := d.vendorUser(ctx, identity)
			if err != nil {
				return nil, surface(err)
			}

			exhausted, err := d.Groups.QuotaExhausted(ctx, user)
			if err != nil {
				return nil, err
			}
			if exhausted {
				return &dialog.Effect{
					Text: fmt.Sprintf("❌ Вы уже добавили максимум групп (%d). Обратитесь к администратору для расширения лимита.", user.AllowedGroupsCount),
				}, nil
			}
			return nil, nil
		},
		States: map[dialog.StateName]*dialog.StateDef{
			stateAddGroupSubject: {
				Name:   stateAddGroupSubject,
				Back:   dialog.StateNone,
				Prompt: d.subjectListPrompt("Добавление группы\n\nВыберите направление"),
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("subject:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"subject_id": ev.CallbackArg("subject:")}, nil
						},
						Next: stateAddGroupCity,
					},
				},
			},
			stateAddGroupCity: {
				Name:   stateAddGroupCity,
				Back:   stateAddGroupSubject,
				Prompt: d.cityListPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("city:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"city_id": ev.CallbackArg("city:")}, nil
						},
						Next: stateAddGroupChat,
					},
				},
			},
			stateAddGroupChat: {
				Name: stateAddGroupChat,
				Back: stateAddGroupCity,
				Prompt: func(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
					return dialog.Effect{
						Text:        "Выберите группу",
						RequestChat: true,
						BackMenu:    true,
					}, nil
				},
				Transitions: []dialog.Transition{
					{
						Kind: dialog.KindChatShared,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{
								"group_tg_id":    itoa(ev.Chat.ChatID),
								"group_name":     ev.Chat.Title,
								"group_username": ev.Chat.Username,
							}, nil
						},
						Next: stateAddGroupPriceDay,
					},
				},
			},
			stateAddGroupPriceDay: {
				Name: stateAddGroupPriceDay,
				Back: stateAddGroupChat,
				Prompt: func(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
					return dialog.Effect{
						Text: "Отправьте мне прайс-лист в формате:\n" +
							"кол-во дней - цена без закрепа/цена с закрепом\n\n" +
							"Пример:\n1 - 10/15\n7 - 50/75\n14 - 90/140\n30 - 170/270\n\n" +
							"Либо отправляйте цены по одной, начиная с цены за 1 день (например: 10/15)",
						BackMenu: true,
					}, nil
				},
				Transitions: []dialog.Transition{
					{
						// Легаси-формат: весь прайс одним сообщением
						Kind:  dialog.KindText,
						Match: func(ev dialog.Event) bool { return strings.Contains(ev.Text, "\n") },
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							quad, verr := dialog.ParsePriceList(ev.Text)
							if verr != nil {
								return nil, verr
							}
							return map[string]string{
								"price_1d":  pairField(quad[0]),
								"price_7d":  pairField(quad[1]),
								"price_14d": pairField(quad[2]),
								"price_30d": pairField(quad[3]),
							}, nil
						},
						Next: dialog.StateTerminal,
					},
					{
						Kind:     dialog.KindText,
						Validate: pricePairValidator("price_1d"),
						Next:     stateAddGroupPriceWeek,
					},
				},
			},
			stateAddGroupPriceWeek: {
				Name:   stateAddGroupPriceWeek,
				Back:   stateAddGroupPriceDay,
				Prompt: textPrompt("Цена за 7 дней (без закрепа/с закрепом):"),
				Transitions: []dialog.Transition{
					{
						Kind:     dialog.KindText,
						Validate: pricePairValidator("price_7d"),
						Next:     stateAddGroupPriceTwoWeeks,
					},
				},
			},
			stateAddGroupPriceTwoWeeks: {
				Name:   stateAddGroupPriceTwoWeeks,
				Back:   stateAddGroupPriceWeek,
				Prompt: textPrompt("Цена за 14 дней (без закрепа/с закрепом):"),
				Transitions: []dialog.Transition{
					{
						Kind:     dialog.KindText,
						Validate: pricePairValidator("price_14d"),
						Next:     stateAddGroupPriceMonth,
					},
				},
			},
			stateAddGroupPriceMonth: {
				Name:   stateAddGroupPriceMonth,
				Back:   stateAddGroupPriceTwoWeeks,
				Prompt: textPrompt("Цена за 30 дней (без закрепа/с закрепом):"),
				Transitions: []dialog.Transition{
					{
						Kind:     dialog.KindText,
						Validate: pricePairValidator("price_30d"),
						Next:     dialog.StateTerminal,
					},
				},
			},
		},
		Terminal: d.addGroupTerminal,
	}
}

// pairField сериализует пару цен обратно в поле аккумулятора
func pairField(p dialog.PricePair) string {
	return fmt.Sprintf("%d/%d", p.WithoutPin, p.WithPin)
}

func pricePairValidator(field string) dialog.Validator {
	return func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
		pair, verr := dialog.ParsePricePair(ev.Text)
		if verr != nil {
			return nil, verr
		}
		return map[string]string{field: pairField(pair)}, nil
	}
}

func textPrompt(text string) dialog.Prompt {
	return func(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
		return dialog.Effect{Text: text, BackMenu: true}, nil
	}
}

// subjectListPrompt приглашение с направлениями из каталога
func (d *Deps) subjectListPrompt(header string) dialog.Prompt {
	return func(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
		role, err := d.Users.ResolveRole(ctx, s.Identity)
		if err != nil {
			return dialog.Effect{}, err
		}

		subjects, err := d.Catalog.ListSubjects(ctx, role)
		if err != nil {
			return dialog.Effect{}, surface(err)
		}
		if len(subjects) == 0 {
			return dialog.Effect{}, &dialog.UserError{Text: "Направления не добавлены"}
		}

		var rows [][]dialog.Button
		for _, subject := range subjects {
			rows = append(rows, dialog.Row(dialog.Button{
				Text: subject.Name,
				Data: "subject:" + itoa(subject.ID),
			}))
		}

		return dialog.Effect{Text: header, Rows: rows, BackMenu: true}, nil
	}
}

// cityListPrompt приглашение с городами выбранного направления
func (d *Deps) cityListPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	role, err := d.Users.ResolveRole(ctx, s.Identity)
	if err != nil {
		return dialog.Effect{}, err
	}

	subjectID, err := fieldInt64(s, "subject_id")
	if err != nil {
		return dialog.Effect{}, err
	}

	cities, err := d.Catalog.ListCities(ctx, role, subjectID)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}
	if len(cities) == 0 {
		return dialog.Effect{}, &dialog.UserError{Text: "Города не добавлены"}
	}

	var rows [][]dialog.Button
	for _, city := range cities {
		rows = append(rows, dialog.Row(dialog.Button{
			Text: city.City,
			Data: "city:" + itoa(city.ID),
		}))
	}

	return dialog.Effect{Text: "Выберите город", Rows: rows, BackMenu: true}, nil
}

// addGroupTerminal собирает накопленные поля и регистрирует группу
// локально и в каталоге
func (d *Deps) addGroupTerminal(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	user, err := d.vendorUser(ctx, s.Identity)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	subjectID, err := fieldInt64(s, "subject_id")
	if err != nil {
		return dialog.Effect{}, err
	}
	cityID, err := fieldInt64(s, "city_id")
	if err != nil {
		return dialog.Effect{}, err
	}
	groupTelegramID, err := fieldInt64(s, "group_tg_id")
	if err != nil {
		return dialog.Effect{}, err
	}

	var quad [4]dialog.PricePair
	for i, key := range []string{"price_1d", "price_7d", "price_14d", "price_30d"} {
		pair, verr := dialog.ParsePricePair(s.Field(key))
		if verr != nil {
			return dialog.Effect{}, fmt.Errorf("incomplete price quad: missing %s", key)
		}
		quad[i] = pair
	}

	group := &model.Group{
		UserID:     user.ID,
		TelegramID: groupTelegramID,
		Name:       s.Field("group_name"),
		CityID:     cityID,
		SubjectID:  subjectID,
	}
	if err := d.Groups.Register(ctx, group); err != nil {
		return dialog.Effect{}, err
	}

	link := ""
	if username := s.Field("group_username"); username != "" {
		link = "https://t.me/" + username
	}

	err = d.Catalog.CreateGroup(ctx, user.Role, catalog.Group{
		Name:                  s.Field("group_name"),
		GroupTelegramID:       groupTelegramID,
		UserTelegramID:        s.Identity,
		CityID:                cityID,
		WorkingHoursStart:     "00:00",
		WorkingHoursEnd:       "24:00",
		PostIntervalInMinutes: 60,
		Link:                  link,
		PriceForOneDay:        catalogPrice(quad[0]),
		PriceForOneWeek:       catalogPrice(quad[1]),
		PriceForTwoWeeks:      catalogPrice(quad[2]),
		PriceForOneMonth:      catalogPrice(quad[3]),
	})
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	return dialog.Effect{
		Text: "Группа добавлена, теперь добавьте бота в эту группу и сделайте администратором",
	}, nil
}

func catalogPrice(p dialog.PricePair) catalog.Price {
	return catalog.Price{WithoutPin: p.WithoutPin, WithPin: p.WithPin}
}
