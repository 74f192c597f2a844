package flows

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
	"go.uber.org/zap"
)

func TestCalendarPayloadValidation(t *testing.T) {
	raw := `{"posts":[{"date":"2026-09-05","time":"12:00:00","withPin":true}],"totalPrice":99.5}`
	fields, verr := validateCalendarPayload(dialog.Event{Kind: dialog.KindWebApp, WebApp: raw})
	if verr != nil {
		t.Fatalf("valid payload rejected: %v", verr)
	}
	if fields["slots"] != raw {
		t.Errorf("slots field = %q", fields["slots"])
	}
	// Дробная сумма календаря проходит как есть, без пересчёта
	if fields["total_price"] != "99.5" {
		t.Errorf("total_price = %q, want 99.5", fields["total_price"])
	}

	rejected := []string{
		`не json`,
		`{"posts":[],"totalPrice":100}`,
		`{"posts":[{"date":"2026-09-05","time":"12:00:00","withPin":false}],"totalPrice":"дорого"}`,
		`{"posts":[{"date":"2026-09-05","time":"12:00:00","withPin":false}]}`,
	}
	for _, payload := range rejected {
		if _, verr := validateCalendarPayload(dialog.Event{Kind: dialog.KindWebApp, WebApp: payload}); verr == nil {
			t.Errorf("payload %q accepted", payload)
		}
	}
}

func TestSaleAmountRoundsToRubles(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"100", 100},
		{"99.5", 100},
		{"99.4", 99},
		{"0", 0},
	}
	for _, tt := range tests {
		fields, verr := validateCalendarPayload(dialog.Event{
			Kind:   dialog.KindWebApp,
			WebApp: `{"posts":[{"date":"2026-09-05","time":"12:00:00","withPin":false}],"totalPrice":` + tt.raw + `}`,
		})
		if verr != nil {
			t.Fatalf("totalPrice %s rejected: %v", tt.raw, verr)
		}
		if got := saleAmount(json.Number(fields["total_price"])); got != tt.want {
			t.Errorf("saleAmount(%s) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func createPostDeps() (*Deps, *fakeGroups, *fakeCatalog, *fakeStats) {
	groups := &fakeGroups{groups: []*model.Group{
		{ID: 5, UserID: 1, TelegramID: -100500, Name: "Барахолка", CityID: 2, SubjectID: 1},
	}}
	remote := &fakeCatalog{groups: []catalog.Group{
		{ID: 77, Name: "Барахолка", GroupTelegramID: -100500, UserTelegramID: 100},
	}}
	stats := &fakeStats{}
	deps := &Deps{
		Users:       &fakeUsers{user: &model.User{ID: 1, TelegramID: 100, Role: model.RoleVendor, AllowedGroupsCount: 3}},
		Groups:      groups,
		Stats:       stats,
		Catalog:     remote,
		Logger:      zap.NewNop(),
		PageSize:    10,
		CalendarURL: "https://example.com/calendar",
	}
	return deps, groups, remote, stats
}

// Прогоняет диалог создания объявления до шага подтверждения
func driveToConfirm(t *testing.T, engine *dialog.Engine) {
	t.Helper()
	ctx := context.Background()

	eff := engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindText, Text: "✏️ Создать объявление"})
	if len(eff.Rows) != 1 || eff.Rows[0][0].Data != "post_group:5" {
		t.Fatalf("group prompt rows = %v", eff.Rows)
	}

	engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindCallback, Callback: "post_group:5"})
	engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindText, Text: "Реклама курса"})

	eff = engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindCallback, Callback: "button:no"})
	if len(eff.Rows) != 1 || !strings.Contains(eff.Rows[0][0].WebAppURL, "groupId=5") {
		t.Fatalf("calendar prompt rows = %v", eff.Rows)
	}

	eff = engine.Advance(ctx, 100, dialog.Event{
		Kind: dialog.KindWebApp,
		WebApp: `{"posts":[{"date":"2026-09-05","time":"12:00:00","withPin":false},` +
			`{"date":"2026-09-06","time":"13:00:00","withPin":true}],"totalPrice":99.5}`,
	})
	if !strings.Contains(eff.Text, "Публикаций: 2") || !strings.Contains(eff.Text, "99.5 ₽") {
		t.Fatalf("confirm prompt = %q", eff.Text)
	}
}

func TestCreatePostFlowSchedulesPosts(t *testing.T) {
	ctx := context.Background()
	deps, _, remote, stats := createPostDeps()
	engine, store := newFlowsEngine(t, deps)

	driveToConfirm(t, engine)

	eff := engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindCallback, Callback: "confirm"})
	if !strings.Contains(eff.Text, "✅ Объявление запланировано") || !strings.Contains(eff.Text, "99.5 ₽") {
		t.Fatalf("terminal effect = %q", eff.Text)
	}
	if !eff.MainMenu {
		t.Error("terminal effect should return to main menu")
	}

	// По посту каталога на каждый слот
	if len(remote.posts) != 2 {
		t.Fatalf("catalog posts = %d", len(remote.posts))
	}
	first := remote.posts[0]
	if first.GroupID != 77 || first.PublishDate != "2026-09-05" || first.PublishTime != "12:00:00" || first.WithPin {
		t.Errorf("first post = %+v", first)
	}
	if !remote.posts[1].WithPin {
		t.Errorf("second post lost withPin: %+v", remote.posts[1])
	}
	if first.Publication.Type != catalog.PublicationText || first.Publication.Text != "Реклама курса" {
		t.Errorf("publication = %+v", first.Publication)
	}

	// Продажа записана с округлением до рубля
	if stats.sales[5] != 100 {
		t.Errorf("recorded sale = %d", stats.sales[5])
	}

	state, _ := store.GetState(ctx, 100)
	if state != dialog.StateNone {
		t.Errorf("session not cleared after terminal: %q", state)
	}
}

func TestCreatePostTerminalFailureClearsSession(t *testing.T) {
	ctx := context.Background()
	deps, _, remote, stats := createPostDeps()
	remote.postErr = &catalog.APIError{Kind: catalog.KindServer, Code: 500, Message: "Internal Server Error"}
	engine, store := newFlowsEngine(t, deps)

	driveToConfirm(t, engine)

	eff := engine.Advance(ctx, 100, dialog.Event{Kind: dialog.KindCallback, Callback: "confirm"})
	if eff.Text != "Internal Server Error" {
		t.Fatalf("failure effect = %q", eff.Text)
	}
	if !eff.MainMenu {
		t.Error("failure effect should still return to main menu")
	}

	// Сессия очищена даже при сбое каталога, продажа не записана
	state, _ := store.GetState(ctx, 100)
	if state != dialog.StateNone {
		t.Errorf("session survived terminal failure: %q", state)
	}
	if len(stats.sales) != 0 {
		t.Errorf("sale recorded despite failure: %v", stats.sales)
	}
}
