package flows

import (
	"context"
	"fmt"

	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
)

const stateStatsGroup dialog.StateName = "stats_group"

// Statistics показ сводки по одной группе: заработок, сообщения,
// заполненность расписания за неделю
func Statistics(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:    "statistics",
		Entry:   stateStatsGroup,
		Trigger: dialog.TextContains("статистика"),
		Roles:   []model.Role{model.RoleVendor, model.RoleAdmin},
		States: map[dialog.StateName]*dialog.StateDef{
			stateStatsGroup: {
				Name:   stateStatsGroup,
				Back:   dialog.StateNone,
				Prompt: d.statsGroupPrompt,
				Transitions: []dialog.Transition{
					{
						Kind:  dialog.KindCallback,
						Match: dialog.HasCallbackPrefix("stats_group:"),
						Validate: func(ev dialog.Event) (map[string]string, *dialog.ValidationError) {
							return map[string]string{"group_id": ev.CallbackArg("stats_group:")}, nil
						},
						Next: dialog.StateTerminal,
					},
				},
			},
		},
		Terminal: d.statsTerminal,
	}
}

func (d *Deps) statsGroupPrompt(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
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
			Data: "stats_group:" + itoa(group.ID),
		}))
	}

	return dialog.Effect{Text: "📊 По какой группе показать статистику?", Rows: rows, BackMenu: true}, nil
}

func (d *Deps) statsTerminal(ctx context.Context, s *dialog.Session) (dialog.Effect, error) {
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

	stats, err := d.Stats.GroupStats(ctx, user.Role, group, remote)
	if err != nil {
		return dialog.Effect{}, surface(err)
	}

	text := fmt.Sprintf(
		"📊 Статистика группы «%s»\n\n"+
			"💰 Заработок:\n"+
			"за 7 дней: %d ₽\n"+
			"за 30 дней: %d ₽\n"+
			"за все время: %d ₽\n\n"+
			"💬 Сообщений за 7 дней: %d\n"+
			"📅 Заполненность расписания за неделю: %d%%",
		group.Name,
		stats.Earnings7d, stats.Earnings30d, stats.EarningsTotal,
		stats.Messages7d, stats.CoveragePercent,
	)

	return dialog.Effect{Text: text}, nil
}
