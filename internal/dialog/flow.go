package dialog

import (
	"context"
	"strings"

	"github.com/grouppromo/adbot/internal/model"
)

// EventKind форма входящего события
type EventKind int

const (
	KindText EventKind = iota
	KindCallback
	KindChatShared
	KindMedia
	KindWebApp
)

// SharedChat чат, которым поделились через кнопку выбора группы
type SharedChat struct {
	ChatID   int64
	Title    string
	Username string
}

// Media вложение сообщения: фото, видео или гифка
type Media struct {
	Type    string // PHOTO, VIDEO, ANIMATION
	FileID  string
	Caption string
}

// Event одно входящее событие разговора
type Event struct {
	Kind     EventKind
	Text     string      // текст сообщения (KindText) или подпись
	Callback string      // payload нажатой inline-кнопки (KindCallback)
	Chat     *SharedChat // KindChatShared
	Media    *Media      // KindMedia
	WebApp   string      // сырой JSON из mini-app (KindWebApp)
}

// CallbackArg возвращает аргумент callback вида "prefix:arg"
func (e Event) CallbackArg(prefix string) string {
	return strings.TrimPrefix(e.Callback, prefix)
}

// HasCallbackPrefix истинно когда событие — callback с данным префиксом
func HasCallbackPrefix(prefix string) func(Event) bool {
	return func(e Event) bool {
		return strings.HasPrefix(e.Callback, prefix)
	}
}

// TextContains истинно когда текст события содержит подстроку (без учёта регистра)
func TextContains(sub string) func(Event) bool {
	return func(e Event) bool {
		return strings.Contains(strings.ToLower(e.Text), sub)
	}
}

// Button кнопка эффекта; транспортно-нейтральная, контроллер
// превращает её в inline-кнопку нужного вида
type Button struct {
	Text      string
	Data      string // callback payload
	URL       string
	WebAppURL string
}

// Row ряд кнопок
func Row(buttons ...Button) []Button { return buttons }

// Effect ответ движка на событие: что показать пользователю
type Effect struct {
	Text        string
	Rows        [][]Button // inline-клавиатура
	MainMenu    bool       // показать главное меню (reply-клавиатуру по роли)
	BackMenu    bool       // показать reply-кнопку "Назад"
	RequestChat bool       // показать reply-кнопку выбора группы
	Notice      string     // короткий тост для callback
}

// ValidationError ошибка валидации пользовательского ввода.
// Не является error: ожидаемый исход, а не сбой.
type ValidationError struct {
	Message string
}

// UserError ошибка с готовым текстом для пользователя
type UserError struct {
	Text string
}

func (e *UserError) Error() string { return e.Text }

// Validator проверяет событие и возвращает поля для аккумулятора
type Validator func(Event) (map[string]string, *ValidationError)

// Prompt строит эффект входа в состояние. Может ходить во внешние
// системы (списки направлений, городов); ошибка не меняет состояние.
type Prompt func(ctx context.Context, s *Session) (Effect, error)

// Terminal завершающее действие диалога. Сессия очищается всегда,
// даже если Terminal вернул ошибку.
type Terminal func(ctx context.Context, s *Session) (Effect, error)

// Precondition проверка перед входом в диалог (квоты и т.п.).
// Непустой Effect — отказ во входе с этим сообщением.
type Precondition func(ctx context.Context, identity int64) (*Effect, error)

// StateTerminal псевдосостояние: переход в него запускает Terminal
const StateTerminal StateName = "__terminal__"

// Transition один разрешённый переход из состояния
type Transition struct {
	Kind     EventKind
	Match    func(Event) bool // nil — любое событие этого вида
	Validate Validator        // nil — принять без полей
	Next     StateName
}

// StateDef описание одного шага диалога
type StateDef struct {
	Name        StateName
	Back        StateName // StateNone — назад означает выход в главное меню
	NoBack      bool      // шаг необратим (сразу после отправки)
	Prompt      Prompt
	Transitions []Transition
}

// Flow статичное описание диалога: граф шагов, собранный один раз
// на старте процесса и неизменяемый после
type Flow struct {
	Name     string
	Entry    StateName
	Trigger  func(Event) bool
	Roles    []model.Role
	Seed     func(Event) map[string]string // поля из события входа
	Precheck Precondition
	States   map[StateName]*StateDef
	Terminal Terminal
}

// Allowed проверяет может ли роль пользоваться диалогом
func (f *Flow) Allowed(role model.Role) bool {
	for _, r := range f.Roles {
		if r == role {
			return true
		}
	}
	return false
}
