// Package flows содержит статические описания всех диалогов бота.
// Каждый диалог — граф шагов для навигационного движка; сами описания
// собираются один раз на старте и дальше не меняются.
package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/dialog"
	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/service"
	"go.uber.org/zap"
)

// UserDirectory операции с пользователями, нужные диалогам
type UserDirectory interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	ResolveRole(ctx context.Context, identity int64) (model.Role, error)
	SetRole(ctx context.Context, userID int64, role model.Role) error
	SetAllowedGroupsCount(ctx context.Context, userID int64, count int) error
}

// GroupDirectory операции с локальным зеркалом групп
type GroupDirectory interface {
	Register(ctx context.Context, group *model.Group) error
	ListByOwner(ctx context.Context, userID int64) ([]*model.Group, error)
	GetByID(ctx context.Context, id int64) (*model.Group, error)
	QuotaExhausted(ctx context.Context, user *model.User) (bool, error)
}

// StatsKeeper сводки и запись продаж
type StatsKeeper interface {
	GroupStats(ctx context.Context, as model.Role, group *model.Group, remote *catalog.Group) (*service.GroupStats, error)
	RecordSale(ctx context.Context, groupID int64, totalPrice int) error
}

// Catalog часть клиента удалённого каталога, которой пользуются диалоги
type Catalog interface {
	ListSubjects(ctx context.Context, as model.Role) ([]catalog.Subject, error)
	CreateSubject(ctx context.Context, as model.Role, name string) error
	DeleteSubject(ctx context.Context, as model.Role, id int64) error
	ListCities(ctx context.Context, as model.Role, subjectID int64) ([]catalog.City, error)
	CreateCity(ctx context.Context, as model.Role, subjectID int64, name string) error
	DeleteCity(ctx context.Context, as model.Role, id int64) error
	ListGroups(ctx context.Context, as model.Role, restrict map[string]any) ([]catalog.Group, error)
	CreateGroup(ctx context.Context, as model.Role, group catalog.Group) error
	UpdateGroup(ctx context.Context, as model.Role, group catalog.Group) error
	CreatePost(ctx context.Context, as model.Role, post catalog.Post) error
	FindPostByMessageID(ctx context.Context, as model.Role, messageID int64) (*catalog.Post, error)
}

// Deps коллабораторы, которые захватывают замыкания шагов
type Deps struct {
	Users    UserDirectory
	Groups   GroupDirectory
	Stats    StatsKeeper
	Catalog  Catalog
	Logger   *zap.Logger
	PageSize int

	// CalendarURL адрес mini-app календаря для выбора слотов публикации
	CalendarURL string
}

// All собирает полный набор диалогов бота
func All(d *Deps) []*dialog.Flow {
	return []*dialog.Flow{
		AddGroup(d),
		MyGroups(d),
		EditGroup(d),
		CreatePost(d),
		Statistics(d),
		AdminPanel(d),
		AdminSubjects(d),
		AdminCities(d),
		AdminUsers(d),
	}
}

// surface переводит ошибку каталога в текст для пользователя.
// Сообщение удалённого API показывается как есть; всё прочее
// остаётся внутренней ошибкой с общим текстом.
func surface(err error) error {
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		return &dialog.UserError{Text: apiErr.Message}
	}
	return err
}

// vendorUser загружает пользователя-продавца по identity
func (d *Deps) vendorUser(ctx context.Context, identity int64) (*model.User, error) {
	user, err := d.Users.GetByTelegramID(ctx, identity)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &dialog.UserError{Text: "❌ Пользователь не найден. Используйте /start"}
	}
	return user, nil
}

// fieldInt64 достаёт числовое поле аккумулятора
func fieldInt64(s *dialog.Session, key string) (int64, error) {
	value, err := strconv.ParseInt(s.Field(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session field %s: %w", key, err)
	}
	return value, nil
}

// fieldInt достаёт целое поле аккумулятора
func fieldInt(s *dialog.Session, key string) (int, error) {
	value, err := strconv.Atoi(s.Field(key))
	if err != nil {
		return 0, fmt.Errorf("session field %s: %w", key, err)
	}
	return value, nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
