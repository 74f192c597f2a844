package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
)

const (
	stateAdminMenu dialog.StateName = "admin_menu"

	stateAdminSubjectsMenu dialog.StateName = "admin_subjects_menu"
	stateAdminSubjectName  dialog.StateName = "admin_subject_name"

	stateAdminCitiesSubject dialog.StateName = "admin_cities_subject"
	stateAdminCitiesMenu    dialog.StateName = "admin_cities_menu"
	stateAdminCityName      dialog.StateName = "admin_city_name"

	stateAdminUsersList dialog.StateName = "admin_users_list"
	stateAdminUserMenu  dialog.StateName = "admin_user_menu"
	stateAdminUserQuota dialog.StateName = "admin_user_quota"
)

var adminOnly = []model.Role{model.RoleAdmin}

// AdminPanel корневое меню админки. Пункты меню открывают
// собственные диалоги через свои callback-триггеры.
func AdminPanel(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "admin_panel",
		Entry:   stateAdminMenu,
		Trigger: dialog.TextContains("админка"),
		Roles:   adminOnly,
		States: map[dialog.StateName]*dialog.StateDef{
			stateAdminMenu: {
				Name: stateAdminMenu,
				Back: dialog.StateNone,
				Prompt: func(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
					return dialog.Effect{
						Text: "🌟 Админка",
						Rows: [][]dialog.Button{
							dialog.Row(dialog.Button{Text: "📚 Направления", Data: "admin_subjects"}),
							dialog.Row(dialog.Button{Text: "🏙 Города", Data: "admin_cities"}),
							dialog.Row(dialog.Button{Text: "👥 Пользователи", Data: "admin_users"}),
						},
						BackMenu: true,
					}, nil
				},
			},
		},
	}
}

// AdminSubjects список направлений с добавлением и удалением
func AdminSubjects(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "admin_subjects",
		Entry:   stateAdminSubjectsMenu,
		Trigger: func(ev dialog.Event) bool { return ev.Callback == "admin_subjects" },
		Roles:   adminOnly,
		States: map[dialog.StateName]*dialog.StateDef{
			stateAdminSubjectsMenu: {
				Name:   stateAdminSubjectsMenu,
				Back:   dialog.StateNone,
				Prompt: d.adminSubjectsPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("del_subject:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{
								"admin_action": "delete_subject",
								"subject_id":   ev.CallbackArg("del_subject:"),
							}, nil
						},
						Next: dialog.StateTerminal,
					},
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "add_subject" },
						Next:  stateAdminSubjectName,
					},
				},
			},
			stateAdminSubjectName: {
				Name:   stateAdminSubjectName,
				Back:   stateAdminSubjectsMenu,
				Prompt: textPrompt("Отправьте название нового направления"),
				Transitions: []dialog.Transition{
					{
						Kind:     dialog.KindText,
						Validate: nameValidator("add_subject"),
						Next:     dialog.StateTerminal,
					},
				},
			},
		},
		Terminal: d.adminTaxonomyTerminal,
	}
}

// AdminCities города внутри выбранного направления
func AdminCities(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "admin_cities",
		Entry:   stateAdminCitiesSubject,
		Trigger: func(ev dialog.Event) bool { return ev.Callback == "admin_cities" },
		Roles:   adminOnly,
		States: map[dialog.StateName]*dialog.StateDef{
			stateAdminCitiesSubject: {
				Name:   stateAdminCitiesSubject,
				Back:   dialog.StateNone,
				Prompt: d.adminCitySubjectPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("city_subject:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"subject_id": ev.CallbackArg("city_subject:")}, nil
						},
						Next: stateAdminCitiesMenu,
					},
				},
			},
			stateAdminCitiesMenu: {
				Name:   stateAdminCitiesMenu,
				Back:   stateAdminCitiesSubject,
				Prompt: d.adminCitiesPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("del_city:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{
								"admin_action": "delete_city",
								"city_id":      ev.CallbackArg("del_city:"),
							}, nil
						},
						Next: dialog.StateTerminal,
					},
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "add_city" },
						Next:  stateAdminCityName,
					},
				},
			},
			stateAdminCityName: {
				Name:   stateAdminCityName,
				Back:   stateAdminCitiesMenu,
				Prompt: textPrompt("Отправьте название нового города"),
				Transitions: []dialog.Transition{
					{
						Kind:     dialog.KindText,
						Validate: nameValidator("add_city"),
						Next:     dialog.StateTerminal,
					},
				},
			},
		},
		Terminal: d.adminTaxonomyTerminal,
	}
}

// nameValidator принимает непустое название и помечает действие
func nameValidator(action string) dialog.Validator {
	return func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
		name := strings.TrimSpace(ev.Text)
		if name == "" {
			return nil, &dialog.ValidationError{Message: "Название не может быть пустым"}
		}
		return map[string]string{"admin_action": action, "name": name}, nil
	}
}

func (d *Deps) adminSubjectsPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	subjects, err := d.Catalog.ListSubjects(ctx, model.RoleAdmin)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	var rows [][]dialog.Button
	for _, subject := range subjects {
		rows = append(rows, dialog.Row(dialog.Button{
			Text: "🗑 " + subject.Name,
			Data: "del_subject:" + itoa(subject.ID),
		}))
	}
	rows = append(rows, dialog.Row(dialog.Button{Text: "➕ Добавить", Data: "add_subject"}))

	return dialog.Effect{Text: "📚 Направления\n\nНажмите, чтобы удалить", Rows: rows, BackMenu: true}, nil
}

func (d *Deps) adminCitySubjectPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	subjects, err := d.Catalog.ListSubjects(ctx, model.RoleAdmin)
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
			Data: "city_subject:" + itoa(subject.ID),
		}))
	}

	return dialog.Effect{Text: "В каком направлении смотреть города?", Rows: rows, BackMenu: true}, nil
}

func (d *Deps) adminCitiesPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	subjectID, err := fieldInt64(s, "subject_id")
	if err != nil {
		return dialog.Effect{}, err
	}

	cities, err := d.Catalog.ListCities(ctx, model.RoleAdmin, subjectID)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	var rows [][]dialog.Button
	for _, city := range cities {
		rows = append(rows, dialog.Row(dialog.Button{
			Text: "🗑 " + city.City,
			Data: "del_city:" + itoa(city.ID),
		}))
	}
	rows = append(rows, dialog.Row(dialog.Button{Text: "➕ Добавить", Data: "add_city"}))

	return dialog.Effect{Text: "🏙 Города направления\n\nНажмите, чтобы удалить", Rows: rows, BackMenu: true}, nil
}

// adminTaxonomyTerminal выполняет действие над справочниками каталога
func (d *Deps) adminTaxonomyTerminal(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	switch s.Field("admin_action") {
	case "add_subject":
		if err := d.Catalog.CreateSubject(ctx, model.RoleAdmin, s.Field("name")); err != nil {
			return dialog.Effect{}, surface(err)
		}
		return dialog.Effect{Text: "✅ Направление добавлено"}, nil

	case "delete_subject":
		id, err := fieldInt64(s, "subject_id")
		if err != nil {
			return dialog.Effect{}, err
		}
		if err := d.Catalog.DeleteSubject(ctx, model.RoleAdmin, id); err != nil {
			return dialog.Effect{}, surface(err)
		}
		return dialog.Effect{Text: "✅ Направление удалено"}, nil

	case "add_city":
		subjectID, err := fieldInt64(s, "subject_id")
		if err != nil {
			return dialog.Effect{}, err
		}
		if err := d.Catalog.CreateCity(ctx, model.RoleAdmin, subjectID, s.Field("name")); err != nil {
			return dialog.Effect{}, surface(err)
		}
		return dialog.Effect{Text: "✅ Город добавлен"}, nil

	case "delete_city":
		id, err := fieldInt64(s, "city_id")
		if err != nil {
			return dialog.Effect{}, err
		}
		if err := d.Catalog.DeleteCity(ctx, model.RoleAdmin, id); err != nil {
			return dialog.Effect{}, surface(err)
		}
		return dialog.Effect{Text: "✅ Город удален"}, nil
	}

	return dialog.Effect{}, fmt.Errorf("unknown admin action %q", s.Field("admin_action"))
}

// AdminUsers управление пользователями: роль и лимит групп
func AdminUsers(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "admin_users",
		Entry:   stateAdminUsersList,
		Trigger: func(ev dialog.Event) bool { return ev.Callback == "admin_users" },
		Roles:   adminOnly,
		States: map[dialog.StateName]*dialog.StateDef{
			stateAdminUsersList: {
				Name:   stateAdminUsersList,
				Back:   dialog.StateNone,
				Prompt: d.adminUsersPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("users_page:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"page": ev.CallbackArg("users_page:")}, nil
						},
						Next: stateAdminUsersList,
					},
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("user:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"user_id": ev.CallbackArg("user:")}, nil
						},
						Next: stateAdminUserMenu,
					},
				},
			},
			stateAdminUserMenu: {
				Name:   stateAdminUserMenu,
				Back:   stateAdminUsersList,
				Prompt: d.adminUserMenuPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("role:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							role := ev.CallbackArg("role:")
							switch model.Role(role) {
							case model.RoleClient, model.RoleVendor, model.RoleAdmin:
							default:
								return nil, &dialog.ValidationError{Message: "Неизвестная роль"}
							}
							return map[string]string{"admin_action": "set_role", "role": role}, nil
						},
						Next: dialog.StateTerminal,
					},
					{
						Kind:  dialog.KindCallback,
						Match: func(ev dialog.Event) bool { return ev.Callback == "set_quota" },
						Next:  stateAdminUserQuota,
					},
				},
			},
			stateAdminUserQuota: {
				Name:   stateAdminUserQuota,
				Back:   stateAdminUserMenu,
				Prompt: textPrompt("Отправьте новый лимит групп (целое число больше нуля)"),
				Transitions: []dialog.Transition{
					{
						Kind: dialog.KindText,
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							quota, err := strconv.Atoi(strings.TrimSpace(ev.Text))
							if err != nil || quota <= 0 {
								return nil, &dialog.ValidationError{Message: "Нужно целое число больше нуля"}
							}
							return map[string]string{"admin_action": "set_quota", "quota": strconv.Itoa(quota)}, nil
						},
						Next: dialog.StateTerminal,
					},
				},
			},
		},
		Terminal: d.adminUserTerminal,
	}
}

func (d *Deps) adminUsersPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	users, err := d.Users.List(ctx)
	if err != nil {
		return dialog.Effect{}, err
	}
	if len(users) == 0 {
		return dialog.Effect{}, &dialog.UserError{Text: "Пользователей пока нет"}
	}

	page, _ := strconv.Atoi(s.Field("page"))
	p := dialog.Paginate(len(users), page, d.PageSize)

	var rows [][]dialog.Button
	for _, user := range users[p.Start:p.End] {
		rows = append(rows, dialog.Row(dialog.Button{
			Text: userLabel(user),
			Data: "user:" + itoa(user.ID),
		}))
	}
	rows = appendPageRow(rows, "users_page:", p)

	text := "👥 Пользователи"
	if p.OutRange {
		text = "Такой страницы нет\n\n" + text
	}

	return dialog.Effect{Text: text, Rows: rows, BackMenu: true}, nil
}

func userLabel(user *model.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if user.Username != "" {
		name = "@" + user.Username
	}
	if name == "" {
		name = itoa(user.TelegramID)
	}
	return fmt.Sprintf("%s (%s)", name, user.Role)
}

func (d *Deps) adminUserMenuPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	user, err := d.selectedUser(ctx, s)
	if err != nil {
		return dialog.Effect{}, err
	}

	text := fmt.Sprintf("👤 %s\n\nРоль: %s\nЛимит групп: %d",
		userLabel(user), user.Role, user.AllowedGroupsCount)

	return dialog.Effect{
		Text: text,
		Rows: [][]dialog.Button{
			dialog.Row(
				dialog.Button{Text: "Клиент", Data: "role:" + string(model.RoleClient)},
				dialog.Button{Text: "Продавец", Data: "role:" + string(model.RoleVendor)},
				dialog.Button{Text: "Админ", Data: "role:" + string(model.RoleAdmin)},
			),
			dialog.Row(dialog.Button{Text: "✏️ Изменить лимит групп", Data: "set_quota"}),
		},
		BackMenu: true,
	}, nil
}

func (d *Deps) selectedUser(ctx context.Context, s *dialog.Session) (*model.User, error) {
	userID, err := fieldInt64(s, "user_id")
	if err != nil {
		return nil, err
	}
	user, err := d.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &dialog.UserError{Text: "❌ Пользователь не найден"}
	}
	return user, nil
}

// adminUserTerminal применяет выбранное действие к пользователю
func (d *Deps) adminUserTerminal(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
	user, err := d.selectedUser(ctx, s)
	if err != nil {
		return dialog.Effect{}, err
	}

	switch s.Field("admin_action") {
	case "set_role":
		role := model.Role(s.Field("role"))
		if err := d.Users.SetRole(ctx, user.ID, role); err != nil {
			return dialog.Effect{}, err
		}
		return dialog.Effect{Text: fmt.Sprintf("✅ Роль пользователя изменена на %s", role)}, nil

	case "set_quota":
		quota, err := fieldInt(s, "quota")
		if err != nil {
			return dialog.Effect{}, err
		}
		if err := d.Users.SetAllowedGroupsCount(ctx, user.ID, quota); err != nil {
			return dialog.Effect{}, err
		}
		return dialog.Effect{Text: fmt.Sprintf("✅ Лимит групп изменен: %d", quota)}, nil
	}

	return dialog.Effect{}, fmt.Errorf("unknown admin action %q", s.Field("admin_action"))
}
