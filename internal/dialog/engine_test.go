package dialog

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/grouppromo/adbot/internal/model"
	"go.uber.org/zap"
)

// roleFunc фиксированный резолвер ролей для тестов
type roleFunc func(identity int64) model.Role

func (f roleFunc) ResolveRole(_ context.Context, identity int64) (model.Role, error) {
	return f(identity), nil
}

func staticPrompt(text string) Prompt {
	return func(context.Context, *Session) (Effect, error) {
		return Effect{Text: text}, nil
	}
}

// orderFlow трёхшаговый тестовый диалог: товар, количество, отправка
func orderFlow(terminal Terminal) *Flow {
	return &Flow{
		Name:    "order",
		Entry:   "order_item",
		Trigger: TextContains("оформить заказ"),
		Roles:   []model.Role{model.RoleVendor, model.RoleAdmin},
		States: map[StateName]*StateDef{
			"order_item": {
				Name:   "order_item",
				Back:   StateNone,
				Prompt: staticPrompt("Что заказываем?"),
				Transitions: []Transition{
					{
						Kind: KindText,
						Validate: func(ev Event) (map[string]string, *ValidationError) {
							return map[string]string{"item": ev.Text}, nil
						},
						Next: "order_qty",
					},
				},
			},
			"order_qty": {
				Name:   "order_qty",
				Back:   "order_item",
				Prompt: staticPrompt("Сколько штук?"),
				Transitions: []Transition{
					{
						Kind: KindText,
						Validate: func(ev Event) (map[string]string, *ValidationError) {
							qty, err := strconv.Atoi(ev.Text)
							if err != nil || qty <= 0 {
								return nil, &ValidationError{Message: "Нужно целое число больше нуля"}
							}
							return map[string]string{"qty": ev.Text}, nil
						},
						Next: StateTerminal,
					},
				},
			},
		},
		Terminal: terminal,
	}
}

func okTerminal(captured *Session) Terminal {
	return func(_ context.Context, s *Session) (Effect, error) {
		if captured != nil {
			*captured = *s
		}
		return Effect{Text: "Заказ принят"}, nil
	}
}

func newTestEngine(t *testing.T, store Store, roles RoleResolver, flows ...*Flow) *Engine {
	t.Helper()
	engine, err := NewEngine(store, roles, flows, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func vendorResolver() roleFunc {
	return func(int64) model.Role { return model.RoleVendor }
}

func TestEngineHappyPath(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var final Session
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(okTerminal(&final)))

	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "Оформить заказ"})
	if eff.Text != "Что заказываем?" {
		t.Fatalf("entry effect = %q", eff.Text)
	}

	eff = engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})
	if eff.Text != "Сколько штук?" {
		t.Fatalf("second step effect = %q", eff.Text)
	}

	eff = engine.Advance(ctx, 1, Event{Kind: KindText, Text: "3"})
	if eff.Text != "Заказ принят" {
		t.Fatalf("terminal effect = %q", eff.Text)
	}
	if !eff.MainMenu {
		t.Error("terminal effect should return to main menu")
	}

	if final.Field("item") != "стул" || final.Field("qty") != "3" {
		t.Errorf("accumulated fields = %v", final.Fields)
	}

	state, _ := store.GetState(ctx, 1)
	if state != StateNone {
		t.Errorf("session not cleared after terminal: %q", state)
	}
}

func TestEngineCancel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(okTerminal(nil)))

	// Отмена без активного диалога
	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "/cancel"})
	if eff.Text != msgNothingToDo {
		t.Errorf("cancel while idle = %q", eff.Text)
	}

	// Отмена из любой глубины диалога чистит сессию
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	eff = engine.Advance(ctx, 1, Event{Kind: KindText, Text: "Отмена"})
	if eff.Text != msgCancelled {
		t.Errorf("cancel mid-flow = %q", eff.Text)
	}

	state, _ := store.GetState(ctx, 1)
	if state != StateNone {
		t.Errorf("state after cancel = %q", state)
	}

	// Повторная отмена идемпотентна
	eff = engine.Advance(ctx, 1, Event{Kind: KindText, Text: "/cancel"})
	if eff.Text != msgNothingToDo {
		t.Errorf("second cancel = %q", eff.Text)
	}
}

func TestEngineBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(okTerminal(nil)))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	// Назад повторяет приглашение предыдущего шага
	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "⬅️ Назад"})
	if eff.Text != "Что заказываем?" {
		t.Fatalf("back effect = %q", eff.Text)
	}
	state, _ := store.GetState(ctx, 1)
	if state != StateName("order_item") {
		t.Errorf("state after back = %q", state)
	}

	// Накопленные поля не теряются
	fields, _ := store.GetData(ctx, 1)
	if fields["item"] != "стул" {
		t.Errorf("fields after back = %v", fields)
	}

	// Назад с первого шага выходит в главное меню
	eff = engine.Advance(ctx, 1, Event{Kind: KindText, Text: "назад"})
	if eff.Text != msgMainMenu || !eff.MainMenu {
		t.Errorf("back from entry = %+v", eff)
	}
	state, _ = store.GetState(ctx, 1)
	if state != StateNone {
		t.Errorf("state after back from entry = %q", state)
	}
}

func TestEngineBackOutsideFlow(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, NewMemoryStore(), vendorResolver(), orderFlow(okTerminal(nil)))

	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "назад"})
	if eff.Text != msgMainMenu || !eff.MainMenu {
		t.Errorf("back while idle = %+v", eff)
	}
}

func TestEngineValidationFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(okTerminal(nil)))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "много"})
	if eff.Text != "Нужно целое число больше нуля" {
		t.Fatalf("validation failure effect = %q", eff.Text)
	}

	state, _ := store.GetState(ctx, 1)
	if state != StateName("order_qty") {
		t.Errorf("state after validation failure = %q", state)
	}

	// Исправленный ввод принимается
	eff = engine.Advance(ctx, 1, Event{Kind: KindText, Text: "2"})
	if eff.Text != "Заказ принят" {
		t.Errorf("retry effect = %q", eff.Text)
	}
}

func TestEngineUnrecognizedInputNoMutation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(okTerminal(nil)))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})

	// Callback не подходит ни одному переходу текстового шага
	eff := engine.Advance(ctx, 1, Event{Kind: KindCallback, Callback: "stray"})
	if eff.Text != msgUnknownInput {
		t.Errorf("unmatched event effect = %q", eff.Text)
	}

	state, _ := store.GetState(ctx, 1)
	if state != StateName("order_item") {
		t.Errorf("state mutated by unmatched event: %q", state)
	}
	fields, _ := store.GetData(ctx, 1)
	if len(fields) != 0 {
		t.Errorf("fields mutated by unmatched event: %v", fields)
	}
}

func TestEngineRoleGate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var mu sync.Mutex
	role := model.RoleClient
	resolver := roleFunc(func(int64) model.Role {
		mu.Lock()
		defer mu.Unlock()
		return role
	})

	engine := newTestEngine(t, store, resolver, orderFlow(okTerminal(nil)))

	// Клиенту вход закрыт
	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	if eff.Text != msgNoAccess {
		t.Fatalf("client entry effect = %q", eff.Text)
	}
	state, _ := store.GetState(ctx, 1)
	if state != StateNone {
		t.Fatalf("session created despite role rejection: %q", state)
	}

	// Повышение до продавца открывает вход
	mu.Lock()
	role = model.RoleVendor
	mu.Unlock()
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})

	// Понижение посреди диалога выбрасывает и чистит сессию
	mu.Lock()
	role = model.RoleClient
	mu.Unlock()
	eff = engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})
	if eff.Text != msgNoAccess {
		t.Fatalf("demoted mid-flow effect = %q", eff.Text)
	}
	state, _ = store.GetState(ctx, 1)
	if state != StateNone {
		t.Errorf("session survived mid-flow demotion: %q", state)
	}
}

func TestEngineBackRechecksRole(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var mu sync.Mutex
	role := model.RoleVendor
	resolver := roleFunc(func(int64) model.Role {
		mu.Lock()
		defer mu.Unlock()
		return role
	})

	engine := newTestEngine(t, store, resolver, orderFlow(okTerminal(nil)))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	// Разжалованный не может продолжать диалог даже шагом назад
	mu.Lock()
	role = model.RoleClient
	mu.Unlock()
	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "назад"})
	if eff.Text != msgNoAccess {
		t.Fatalf("back after demotion effect = %q", eff.Text)
	}
	state, _ := store.GetState(ctx, 1)
	if state != StateNone {
		t.Errorf("session survived demotion on back: %q", state)
	}
}

func TestEnginePrecheckRejection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	flow := orderFlow(okTerminal(nil))
	flow.Precheck = func(context.Context, int64) (*Effect, error) {
		return &Effect{Text: "Лимит исчерпан"}, nil
	}

	engine := newTestEngine(t, store, vendorResolver(), flow)

	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	if eff.Text != "Лимит исчерпан" {
		t.Fatalf("precheck rejection effect = %q", eff.Text)
	}

	// Отказ до входа: сессия не создана
	state, _ := store.GetState(ctx, 1)
	if state != StateNone {
		t.Errorf("session created despite precheck rejection: %q", state)
	}
}

func TestEngineTerminalFailureClearsSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	failing := func(context.Context, *Session) (Effect, error) {
		return Effect{}, errors.New("catalog unavailable")
	}
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(failing))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "3"})
	if eff.Text != msgInternal {
		t.Fatalf("terminal failure effect = %q", eff.Text)
	}
	if !eff.MainMenu {
		t.Error("terminal failure should still return to main menu")
	}

	// Сессия очищена даже при сбое завершающего действия
	state, _ := store.GetState(ctx, 1)
	if state != StateNone {
		t.Errorf("session survived terminal failure: %q", state)
	}
}

func TestEngineTerminalUserErrorSurfaced(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	failing := func(context.Context, *Session) (Effect, error) {
		return Effect{}, &UserError{Text: "❌ Такая группа уже есть"}
	}
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(failing))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "3"})
	if eff.Text != "❌ Такая группа уже есть" {
		t.Errorf("user error not surfaced: %q", eff.Text)
	}
}

func TestEngineEntryTriggerBeatsTransition(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(okTerminal(nil)))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	// Повторный вход перезапускает диалог с чистым аккумулятором
	eff := engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	if eff.Text != "Что заказываем?" {
		t.Fatalf("re-entry effect = %q", eff.Text)
	}

	state, _ := store.GetState(ctx, 1)
	if state != StateName("order_item") {
		t.Errorf("state after re-entry = %q", state)
	}
	fields, _ := store.GetData(ctx, 1)
	if len(fields) != 0 {
		t.Errorf("accumulator survived re-entry: %v", fields)
	}
}

func TestEngineSeedFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	flow := orderFlow(okTerminal(nil))
	flow.Trigger = HasCallbackPrefix("reorder:")
	flow.Seed = func(ev Event) map[string]string {
		return map[string]string{"item": ev.CallbackArg("reorder:")}
	}

	engine := newTestEngine(t, store, vendorResolver(), flow)

	engine.Advance(ctx, 1, Event{Kind: KindCallback, Callback: "reorder:стол"})

	fields, _ := store.GetData(ctx, 1)
	if fields["item"] != "стол" {
		t.Errorf("seeded fields = %v", fields)
	}
}

func TestEngineIdentitiesIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := newTestEngine(t, store, vendorResolver(), orderFlow(okTerminal(nil)))

	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 2, Event{Kind: KindText, Text: "оформить заказ"})
	engine.Advance(ctx, 1, Event{Kind: KindText, Text: "стул"})

	state1, _ := store.GetState(ctx, 1)
	state2, _ := store.GetState(ctx, 2)
	if state1 != StateName("order_qty") || state2 != StateName("order_item") {
		t.Errorf("identities interfere: %q / %q", state1, state2)
	}
}

func TestNewEngineRejectsBrokenGraph(t *testing.T) {
	store := NewMemoryStore()
	roles := vendorResolver()

	// Неизвестный back
	broken := orderFlow(okTerminal(nil))
	broken.States["order_qty"].Back = "ghost"
	if _, err := NewEngine(store, roles, []*Flow{broken}, zap.NewNop()); err == nil {
		t.Error("engine accepted unknown back target")
	}

	// Переход в неизвестное состояние
	broken = orderFlow(okTerminal(nil))
	broken.States["order_item"].Transitions[0].Next = "ghost"
	if _, err := NewEngine(store, roles, []*Flow{broken}, zap.NewNop()); err == nil {
		t.Error("engine accepted transition to unknown state")
	}

	// Терминальный переход без завершающего действия
	broken = orderFlow(nil)
	if _, err := NewEngine(store, roles, []*Flow{broken}, zap.NewNop()); err == nil {
		t.Error("engine accepted terminal transition without terminal action")
	}

	// Дубликат имени состояния между диалогами
	a := orderFlow(okTerminal(nil))
	b := orderFlow(okTerminal(nil))
	b.Name = "order_copy"
	if _, err := NewEngine(store, roles, []*Flow{a, b}, zap.NewNop()); err == nil {
		t.Error("engine accepted duplicate state names across flows")
	}
}
