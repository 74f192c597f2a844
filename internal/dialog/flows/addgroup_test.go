package flows

import (
	"context"
	"strings"
	"testing"

	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
	"go.uber.org/zap"
)

func addGroupDeps(exhausted bool) (*Deps, *fakeGroups, *fakeCatalog) {
	groups := &fakeGroups{exhausted: exhausted}
	remote := &fakeCatalog{
		subjects: []catalog.Subject{{ID: 1, Name: "Курсы"}},
		cities:   []catalog.City{{ID: 2, City: "Казань", SubjectID: 1}},
	}
	deps := &Deps{
		Users:    &fakeUsers{user: &model.User{ID: 1, TelegramID: 100, Role: model.RoleVendor, AllowedGroupsCount: 3}},
		Groups:   groups,
		Stats:    &fakeStats{},
		Catalog:  remote,
		Logger:   zap.NewNop(),
		PageSize: 10,
	}
	return deps, groups, remote
}

func TestAddGroupQuotaRejectedBeforeEntry(t *testing.T) {
	ctx := context.Background()
	deps, _, _ := addGroupDeps(true)
	engine, store := newFlowsEngine(t, deps)

	eff := engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindText, Text: "🆕 Добавить группу"})
	if !strings.Contains(eff.Text, "максимум групп (3)") {
		t.Fatalf("quota rejection effect = %q", eff.Text)
	}

	// Отказ по квоте случается до входа: сессия не создана
	state, _ := store.GetState(ctx, 100)
	if state != dialog.StateNone {
		t.Errorf("session created despite quota rejection: %q", state)
	}
}

func TestAddGroupFlowRegistersGroup(t *testing.T) {
	ctx := context.Background()
	deps, groups, remote := addGroupDeps(false)
	engine, store := newFlowsEngine(t, deps)

	eff := engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindText, Text: "🆕 Добавить группу"})
	if !strings.Contains(eff.Text, "Выберите направление") {
		t.Fatalf("subject prompt = %q", eff.Text)
	}
	if len(eff.Rows) != 1 || eff.Rows[0][0].Data != "subject:1" {
		t.Fatalf("subject rows = %v", eff.Rows)
	}

	eff = engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindCallback, Callback: "subject:1"})
	if eff.Text != "Выберите город" || eff.Rows[0][0].Data != "city:2" {
		t.Fatalf("city prompt = %q rows %v", eff.Text, eff.Rows)
	}

	eff = engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindCallback, Callback: "city:2"})
	if eff.Text != "Выберите группу" || !eff.RequestChat {
		t.Fatalf("chat prompt = %+v", eff)
	}

	eff = engine.Advance(ctx, 100, dialog.Event{
		Kind: dialog.KindChatShared,
		Chat: &dialog.SharedChat{ChatID: -100500, Title: "Барахолка", Username: "baraholka"},
	})
	if !strings.Contains(eff.Text, "прайс-лист") {
		t.Fatalf("price prompt = %q", eff.Text)
	}

	// Легаси-формат: весь прайс одним сообщением ведёт сразу в терминал
	eff = engine.Advance(ctx, 100, dialog.Event{
		Kind: dialog.KindText,
		Text: "1 - 10/15\n7 - 50/75\n14 - 90/140\n30 - 170/270",
	})
	if !strings.Contains(eff.Text, "Группа добавлена") || !eff.MainMenu {
		t.Fatalf("terminal effect = %+v", eff)
	}

	if len(groups.groups) != 1 {
		t.Fatalf("local groups = %d", len(groups.groups))
	}
	local := groups.groups[0]
	if local.TelegramID != -100500 || local.Name != "Барахолка" || local.CityID != 2 || local.SubjectID != 1 {
		t.Errorf("local mirror = %+v", local)
	}

	if len(remote.groups) != 1 {
		t.Fatalf("catalog groups = %d", len(remote.groups))
	}
	created := remote.groups[0]
	if created.GroupTelegramID != -100500 || created.UserTelegramID != 100 {
		t.Errorf("catalog group ids = %+v", created)
	}
	if created.WorkingHoursStart != "00:00" || created.WorkingHoursEnd != "24:00" || created.PostIntervalInMinutes != 60 {
		t.Errorf("default settings = %+v", created)
	}
	if created.PriceForOneDay != (catalog.Price{WithoutPin: 10, WithPin: 15}) ||
		created.PriceForOneMonth != (catalog.Price{WithoutPin: 170, WithPin: 270}) {
		t.Errorf("prices = %+v", created)
	}
	if created.Link != "https://t.me/baraholka" {
		t.Errorf("link = %q", created.Link)
	}

	state, _ := store.GetState(ctx, 100)
	if state != dialog.StateNone {
		t.Errorf("session not cleared after terminal: %q", state)
	}
}
