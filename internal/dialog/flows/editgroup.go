package flows

import (
	"context"
	"fmt"
	"strconv"

	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
)

const (
	stateMyGroupsList dialog.StateName = "my_groups_list"

	stateEditGroupMenu     dialog.StateName = "edit_group_menu"
	stateEditGroupHours    dialog.StateName = "edit_group_hours"
	stateEditGroupInterval dialog.StateName = "edit_group_interval"
	stateEditGroupPrices   dialog.StateName = "edit_group_prices"
)

// MyGroups просмотр своих групп со страничной навигацией
func MyGroups(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "my_groups",
		Entry:   stateMyGroupsList,
		Trigger: dialog.TextContains("мои группы"),
		Roles:   []model.Role{model.RoleVendor, model.RoleAdmin},
		States: map[dialog.StateName]*dialog.StateDef{
			stateMyGroupsList: {
				Name:   stateMyGroupsList,
				Back:   dialog.StateNone,
				Prompt: d.myGroupsPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("groups_page:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"page": ev.CallbackArg("groups_page:")}, nil
						},
						Next: stateMyGroupsList,
					},
				},
			},
		},
	}
}

func (d *Deps) myGroupsPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
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

	page, _ := strconv.Atoi(s.Field("page"))
	p := dialog.Paginate(len(groups), page, d.PageSize)

	var rows [][]dialog.Button
	for _, group := range groups[p.Start:p.End] {
		rows = append(rows, dialog.Row(dialog.Button{
			Text: group.Name,
			Data: "edit_group:" + itoa(group.ID),
		}))
	}
	rows = appendPageRow(rows, "groups_page:", p)

	text := "💬 Ваши группы"
	if p.OutRange {
		text = "Такой страницы нет\n\n" + text
	}

	return dialog.Effect{Text: text, Rows: rows, BackMenu: true}, nil
}

// appendPageRow добавляет ряд перелистывания, когда страниц больше одной
func appendPageRow(rows [][]dialog.Button, prefix string, p dialog.Page) [][]dialog.Button {
	if p.Prev == p.Index && p.Next == p.Index {
		return rows
	}
	return append(rows, dialog.Row(
		dialog.Button{Text: "⬅️", Data: prefix + strconv.Itoa(p.Prev)},
		dialog.Button{Text: "➡️", Data: prefix + strconv.Itoa(p.Next)},
	))
}

// EditGroup изменение одной настройки группы: рабочие часы,
// интервал постов или прайс-лист
func EditGroup(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "edit_group",
		Entry:   stateEditGroupMenu,
		Trigger: func(ev dialog.Event) bool { return dialog.HasCallbackPrefix("edit_group:")(ev) },
		Roles:   []model.Role{model.RoleVendor, model.RoleAdmin},
		Seed: func(ev dialog.Event) map[string]string {
			return map[string]string{"group_id": ev.CallbackArg("edit_group:")}
		},
		States: map[dialog.StateName]*dialog.StateDef{
			stateEditGroupMenu: {
				Name:   stateEditGroupMenu,
				Back:   dialog.StateNone,
				Prompt: d.editGroupMenuPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "setting:hours" },
						Validate: func(dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"setting": "hours"}, nil
						},
						Next: stateEditGroupHours,
					},
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "setting:interval" },
						Validate: func(dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"setting": "interval"}, nil
						},
						Next: stateEditGroupInterval,
					},
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "setting:prices" },
						Validate: func(dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"setting": "prices"}, nil
						},
						Next: stateEditGroupPrices,
					},
				},
			},
			stateEditGroupHours: {
				Name:   stateEditGroupHours,
				Back:   stateEditGroupMenu,
				Prompt: textPrompt("Отправьте рабочие часы группы в формате 08:00-22:00\n\nВ эти часы бот будет публиковать объявления"),
				Transitions: []dialog.Transition{
					{
						Kind: dialog.KindText,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							start, end, verr := dialog.ParseWorkHours(ev.Text)
							if verr != nil {
								return nil, verr
							}
							return map[string]string{"work_start": start, "work_end": end}, nil
						},
						Next: dialog.StateTerminal,
					},
				},
			},
			stateEditGroupInterval: {
				Name:   stateEditGroupInterval,
				Back:   stateEditGroupMenu,
				Prompt: textPrompt("Отправьте интервал между объявлениями в минутах (кратно 30, не больше 300)"),
				Transitions: []dialog.Transition{
					{
						Kind: dialog.KindText,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							interval, verr := dialog.ParseInterval(ev.Text)
							if verr != nil {
								return nil, verr
							}
							return map[string]string{"interval": strconv.Itoa(interval)}, nil
						},
						Next: dialog.StateTerminal,
					},
				},
			},
			stateEditGroupPrices: {
				Name: stateEditGroupPrices,
				Back: stateEditGroupMenu,
				Prompt: textPrompt("Отправьте новый прайс-лист в формате:\n" +
					"кол-во дней - цена без закрепа/цена с закрепом\n\n" +
					"Пример:\n1 - 10/15\n7 - 50/75\n14 - 90/140\n30 - 170/270"),
				Transitions: []dialog.Transition{
					{
						Kind: dialog.KindText,
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
				},
			},
		},
		Terminal: d.editGroupTerminal,
	}
}

func (d *Deps) editGroupMenuPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	group, err := d.ownedGroup(ctx, s)
	if err != nil {
		return dialog.Effect{}, err
	}

	return dialog.Effect{
		Text: fmt.Sprintf("⚙️ Группа «%s»\n\nЧто изменить?", group.Name),
		Rows: [][]dialog.Button{
			dialog.Row(dialog.Button{Text: "🕐 Рабочие часы", Data: "setting:hours"}),
			dialog.Row(dialog.Button{Text: "⏲ Интервал постов", Data: "setting:interval"}),
			dialog.Row(dialog.Button{Text: "💰 Прайс-лист", Data: "setting:prices"}),
		},
		BackMenu: true,
	}, nil
}

// ownedGroup загружает группу из аккумулятора и проверяет владение
func (d *Deps) ownedGroup(ctx context.Context, s *dialog.Session) (*model.Group, error) {
	user, err := d.vendorUser(ctx, s.Identity)
	if err != nil {
		return nil, surface(err)
	}

	groupID, err := fieldInt64(s, "group_id")
	if err != nil {
		return nil, err
	}

	group, err := d.Groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, &dialog.UserError{Text: "❌ Группа не найдена"}
	}
	if group.UserID != user.ID && user.Role != model.RoleAdmin {
		return nil, &dialog.UserError{Text: "❌ У вас нет доступа к этой группе"}
	}

	return group, nil
}

// editGroupTerminal переносит изменённую настройку в каталог
func (d *Deps) editGroupTerminal(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	group, err := d.ownedGroup(ctx, s)
	if err != nil {
		return dialog.Effect{}, err
	}

	user, err := d.vendorUser(ctx, s.Identity)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	remote, err := d.remoteGroup(ctx, user.Role, group)
	if err != nil {
		return dialog.Effect{}, err
	}

	switch s.Field("setting") {
	case "hours":
		remote.WorkingHoursStart = s.Field("work_start")
		remote.WorkingHoursEnd = s.Field("work_end")
	case "interval":
		interval, err := fieldInt(s, "interval")
		if err != nil {
			return dialog.Effect{}, err
		}
		remote.PostIntervalInMinutes = interval
	case "prices":
		for i, key := range []string{"price_1d", "price_7d", "price_14d", "price_30d"} {
			pair, verr := dialog.ParsePricePair(s.Field(key))
			if verr != nil {
				return dialog.Effect{}, fmt.Errorf("incomplete price quad: missing %s", key)
			}
			switch i {
			case 0:
				remote.PriceForOneDay = catalogPrice(pair)
			case 1:
				remote.PriceForOneWeek = catalogPrice(pair)
			case 2:
				remote.PriceForTwoWeeks = catalogPrice(pair)
			case 3:
				remote.PriceForOneMonth = catalogPrice(pair)
			}
		}
	default:
		return dialog.Effect{}, fmt.Errorf("unknown group setting %q", s.Field("setting"))
	}

	if err := d.Catalog.UpdateGroup(ctx, user.Role, *remote); err != nil {
		return dialog.Effect{}, surface(err)
	}

	return dialog.Effect{Text: "✅ Настройки группы обновлены"}, nil
}

// remoteGroup находит карточку группы в каталоге по локальному зеркалу
func (d *Deps) remoteGroup(ctx context.Context, as model.Role, group *model.Group) (*catalog.Group, error) {
	groups, err := d.Catalog.ListGroups(ctx, as, map[string]any{"groupTelegramId": group.TelegramID})
	if err != nil {
		return nil, surface(err)
	}
	for i := range groups {
		if groups[i].GroupTelegramID == group.TelegramID {
			return &groups[i], nil
		}
	}
	return nil, &dialog.UserError{Text: "❌ Группа не найдена в каталоге"}
}
