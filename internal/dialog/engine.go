package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/grouppromo/adbot/internal/model"
	"go.uber.org/zap"
)

// RoleResolver определяет роль по identity разговора.
// Роль перепроверяется на каждом переходе: админ может разжаловать
// пользователя посреди диалога.
type RoleResolver interface {
	ResolveRole(ctx context.Context, identity int64) (model.Role, error)
}

// Тексты универсальных ответов движка
const (
	msgCancelled    = "✅ Операция отменена."
	msgNothingToDo  = "❌ Нет активных операций для отмены."
	msgMainMenu     = "Главное меню"
	msgUnknownInput = "Неизвестная команда"
	msgNoAccess     = "У вас недостаточно прав"
	msgInternal     = "❌ Произошла ошибка. Попробуйте позже."
)

// Engine навигационный движок: по (текущее состояние, событие)
// выбирает переход, валидирует ввод, копит поля и двигает сессию
type Engine struct {
	store  Store
	roles  RoleResolver
	flows  []*Flow
	byName map[StateName]*Flow // индекс состояние -> диалог
	logger *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine собирает движок. Имена состояний обязаны быть уникальны
// между диалогами; дубликат — ошибка конфигурации процесса.
func NewEngine(store Store, roles RoleResolver, flows []*Flow, logger *zap.Logger) (*Engine, error) {
	byName := make(map[StateName]*Flow)
	for _, flow := range flows {
		if _, ok := flow.States[flow.Entry]; !ok {
			return nil, fmt.Errorf("flow %s: entry state %q is not defined", flow.Name, flow.Entry)
		}
		needsTerminal := false
		for name, def := range flow.States {
			if name == StateNone || name == StateTerminal {
				return nil, fmt.Errorf("flow %s: reserved state name %q", flow.Name, name)
			}
			if def.Back != StateNone {
				if _, ok := flow.States[def.Back]; !ok {
					return nil, fmt.Errorf("flow %s: state %q has unknown back target %q", flow.Name, name, def.Back)
				}
			}
			for _, tr := range def.Transitions {
				if tr.Next == StateTerminal {
					needsTerminal = true
					continue
				}
				if _, ok := flow.States[tr.Next]; !ok {
					return nil, fmt.Errorf("flow %s: state %q has transition to unknown state %q", flow.Name, name, tr.Next)
				}
			}
			if other, ok := byName[name]; ok {
				return nil, fmt.Errorf("state %q defined in both %s and %s", name, other.Name, flow.Name)
			}
			byName[name] = flow
		}
		if needsTerminal && flow.Terminal == nil {
			return nil, fmt.Errorf("flow %s: no terminal action", flow.Name)
		}
	}

	return &Engine{
		store:  store,
		roles:  roles,
		flows:  flows,
		byName: byName,
		logger: logger,
		locks:  make(map[int64]*sync.Mutex),
	}, nil
}

// identityLock сериализует события одного разговора; разные
// разговоры обрабатываются параллельно
func (e *Engine) identityLock(identity int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[identity] = lock
	}
	return lock
}

func isCancel(ev Event) bool {
	if ev.Kind == KindCallback {
		return ev.Callback == "cancel"
	}
	if ev.Kind != KindText {
		return false
	}
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	return text == "/cancel" || strings.Contains(text, "отмена")
}

func isBack(ev Event) bool {
	if ev.Kind == KindCallback {
		return ev.Callback == "back"
	}
	return ev.Kind == KindText && strings.Contains(strings.ToLower(ev.Text), "назад")
}

// Advance обрабатывает одно событие разговора и возвращает эффект
func (e *Engine) Advance(ctx context.Context, identity int64, ev Event) Effect {
	lock := e.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.store.GetState(ctx, identity)
	if err != nil {
		e.logger.Error("Failed to read session state", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}

	// Универсальные команды обгоняют переходы диалога

	if isCancel(ev) {
		return e.handleCancel(ctx, identity, state)
	}

	if flow := e.matchEntry(ev); flow != nil {
		return e.enterFlow(ctx, identity, flow, ev)
	}

	if isBack(ev) {
		return e.handleBack(ctx, identity, state)
	}

	if state == StateNone {
		return Effect{Text: msgUnknownInput, MainMenu: true}
	}

	return e.advanceFlow(ctx, identity, state, ev)
}

func (e *Engine) handleCancel(ctx context.Context, identity int64, state StateName) Effect {
	if state == StateNone {
		return Effect{Text: msgNothingToDo, MainMenu: true}
	}

	if err := e.store.Clear(ctx, identity); err != nil {
		e.logger.Error("Failed to clear session", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}

	return Effect{Text: msgCancelled, MainMenu: true}
}

func (e *Engine) matchEntry(ev Event) *Flow {
	for _, flow := range e.flows {
		if flow.Trigger != nil && flow.Trigger(ev) {
			return flow
		}
	}
	return nil
}

func (e *Engine) enterFlow(ctx context.Context, identity int64, flow *Flow, ev Event) Effect {
	role, err := e.roles.ResolveRole(ctx, identity)
	if err != nil {
		e.logger.Error("Failed to resolve role", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}

	if !flow.Allowed(role) {
		return Effect{Text: msgNoAccess, Notice: msgNoAccess}
	}

	if flow.Precheck != nil {
		reject, err := flow.Precheck(ctx, identity)
		if err != nil {
			return e.effectForError(identity, err)
		}
		if reject != nil {
			// Отказ до входа: диалог не начат, сессия не создана
			return *reject
		}
	}

	// Смена диалога всегда начинается с чистого аккумулятора
	if err := e.store.Clear(ctx, identity); err != nil {
		e.logger.Error("Failed to clear session on entry", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}

	session := &Session{Identity: identity, State: flow.Entry, Fields: map[string]string{}}
	if flow.Seed != nil {
		session.Fields = flow.Seed(ev)
	}

	eff, err := flow.States[flow.Entry].Prompt(ctx, session)
	if err != nil {
		// Вход не состоялся, пользователь остаётся в главном меню
		return e.effectForError(identity, err)
	}

	if err := e.store.SetState(ctx, identity, flow.Entry); err != nil {
		e.logger.Error("Failed to set entry state", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}
	if err := e.store.MergeData(ctx, identity, session.Fields); err != nil {
		e.logger.Error("Failed to seed session data", zap.Int64("identity", identity), zap.Error(err))
	}

	e.logger.Info("Flow entered",
		zap.Int64("identity", identity),
		zap.String("flow", flow.Name),
		zap.String("state", string(flow.Entry)))

	return eff
}

func (e *Engine) handleBack(ctx context.Context, identity int64, state StateName) Effect {
	if state == StateNone {
		return Effect{Text: msgMainMenu, MainMenu: true}
	}

	flow, ok := e.byName[state]
	if !ok {
		// Состояние из прошлой версии графа: сбрасываем
		e.logger.Warn("Unknown session state, clearing", zap.Int64("identity", identity), zap.String("state", string(state)))
		_ = e.store.Clear(ctx, identity)
		return Effect{Text: msgMainMenu, MainMenu: true}
	}

	// Шаг назад тоже продолжает диалог: роль перепроверяется
	role, err := e.roles.ResolveRole(ctx, identity)
	if err != nil {
		e.logger.Error("Failed to resolve role", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}
	if !flow.Allowed(role) {
		if err := e.store.Clear(ctx, identity); err != nil {
			e.logger.Error("Failed to clear session", zap.Int64("identity", identity), zap.Error(err))
		}
		return Effect{Text: msgNoAccess, MainMenu: true}
	}

	def := flow.States[state]
	if def.NoBack {
		return Effect{Text: msgUnknownInput}
	}

	if def.Back == StateNone {
		if err := e.store.Clear(ctx, identity); err != nil {
			e.logger.Error("Failed to clear session", zap.Int64("identity", identity), zap.Error(err))
			return Effect{Text: msgInternal}
		}
		return Effect{Text: msgMainMenu, MainMenu: true}
	}

	// Назад — это повтор приглашения предыдущего шага.
	// Аккумулятор не трогаем: повторное прохождение шага перезапишет поля.
	session, err := e.loadSession(ctx, identity, def.Back)
	if err != nil {
		return Effect{Text: msgInternal}
	}

	eff, err := flow.States[def.Back].Prompt(ctx, session)
	if err != nil {
		return e.effectForError(identity, err)
	}

	if err := e.store.SetState(ctx, identity, def.Back); err != nil {
		e.logger.Error("Failed to set state on back", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}

	return eff
}

func (e *Engine) advanceFlow(ctx context.Context, identity int64, state StateName, ev Event) Effect {
	flow, ok := e.byName[state]
	if !ok {
		e.logger.Warn("Unknown session state, clearing", zap.Int64("identity", identity), zap.String("state", string(state)))
		_ = e.store.Clear(ctx, identity)
		return Effect{Text: msgUnknownInput, MainMenu: true}
	}

	// Роль могла поменяться посреди диалога
	role, err := e.roles.ResolveRole(ctx, identity)
	if err != nil {
		e.logger.Error("Failed to resolve role", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}
	if !flow.Allowed(role) {
		if err := e.store.Clear(ctx, identity); err != nil {
			e.logger.Error("Failed to clear session", zap.Int64("identity", identity), zap.Error(err))
		}
		return Effect{Text: msgNoAccess, MainMenu: true}
	}

	def := flow.States[state]
	tr := matchTransition(def, ev)
	if tr == nil {
		// Ввод не подходит ни одному переходу: состояние не меняется
		return Effect{Text: msgUnknownInput, Notice: msgUnknownInput}
	}

	var fields map[string]string
	if tr.Validate != nil {
		var verr *ValidationError
		fields, verr = tr.Validate(ev)
		if verr != nil {
			// Повторное приглашение с причиной; накопленное не теряется
			return Effect{Text: verr.Message}
		}
	}

	if err := e.store.MergeData(ctx, identity, fields); err != nil {
		e.logger.Error("Failed to merge session data", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}

	if tr.Next == StateTerminal {
		return e.runTerminal(ctx, identity, flow)
	}

	session, err := e.loadSession(ctx, identity, tr.Next)
	if err != nil {
		return Effect{Text: msgInternal}
	}

	eff, err := flow.States[tr.Next].Prompt(ctx, session)
	if err != nil {
		// Ошибка коллаборатора на не-терминальном шаге:
		// состояние не меняется, пользователь может повторить
		return e.effectForError(identity, err)
	}

	if err := e.store.SetState(ctx, identity, tr.Next); err != nil {
		e.logger.Error("Failed to advance state", zap.Int64("identity", identity), zap.Error(err))
		return Effect{Text: msgInternal}
	}

	return eff
}

func (e *Engine) runTerminal(ctx context.Context, identity int64, flow *Flow) Effect {
	session, err := e.loadSession(ctx, identity, StateTerminal)
	if err != nil {
		_ = e.store.Clear(ctx, identity)
		return Effect{Text: msgInternal, MainMenu: true}
	}

	eff, terr := flow.Terminal(ctx, session)

	// Сессия очищается всегда, даже при ошибке отправки:
	// диалог считается израсходованным
	if err := e.store.Clear(ctx, identity); err != nil {
		e.logger.Error("Failed to clear session after terminal", zap.Int64("identity", identity), zap.Error(err))
	}

	if terr != nil {
		e.logger.Warn("Terminal action failed",
			zap.Int64("identity", identity),
			zap.String("flow", flow.Name),
			zap.Error(terr))
		out := e.effectForError(identity, terr)
		out.MainMenu = true
		return out
	}

	e.logger.Info("Flow completed", zap.Int64("identity", identity), zap.String("flow", flow.Name))
	eff.MainMenu = true
	return eff
}

func matchTransition(def *StateDef, ev Event) *Transition {
	for i := range def.Transitions {
		tr := &def.Transitions[i]
		if tr.Kind != ev.Kind {
			continue
		}
		if tr.Match != nil && !tr.Match(ev) {
			continue
		}
		return tr
	}
	return nil
}

func (e *Engine) loadSession(ctx context.Context, identity int64, state StateName) (*Session, error) {
	fields, err := e.store.GetData(ctx, identity)
	if err != nil {
		e.logger.Error("Failed to read session data", zap.Int64("identity", identity), zap.Error(err))
		return nil, err
	}
	return &Session{Identity: identity, State: state, Fields: fields}, nil
}

// effectForError превращает ошибку коллаборатора в сообщение пользователю,
// не протаскивая внутренние детали
func (e *Engine) effectForError(identity int64, err error) Effect {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return Effect{Text: userErr.Text}
	}

	e.logger.Error("Collaborator error", zap.Int64("identity", identity), zap.Error(err))
	return Effect{Text: msgInternal}
}
