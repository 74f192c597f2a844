package service

import (
	"context"
	"fmt"

	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo *repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterUser регистрирует пользователя при первом /start
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string, role model.Role, allowedGroups int) (*model.User, error) {
	existing, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	user := &model.User{
		TelegramID:         telegramID,
		Username:           username,
		FirstName:          firstName,
		LastName:           lastName,
		Role:               role,
		AllowedGroupsCount: allowedGroups,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("role", string(role)),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// List получает всех пользователей
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.List(ctx)
}

// ResolveRole определяет роль по identity разговора.
// Незарегистрированный пользователь — гость.
func (s *UserService) ResolveRole(ctx context.Context, identity int64) (model.Role, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, identity)
	if err != nil {
		return model.RoleGuest, fmt.Errorf("resolve role: %w", err)
	}
	if user == nil {
		return model.RoleGuest, nil
	}
	return user.Role, nil
}

// SetRole меняет роль пользователя
func (s *UserService) SetRole(ctx context.Context, userID int64, role model.Role) error {
	if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
		return err
	}

	s.logger.Info("User role changed",
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)
	return nil
}

// SetAllowedGroupsCount меняет квоту групп пользователя
func (s *UserService) SetAllowedGroupsCount(ctx context.Context, userID int64, count int) error {
	if count <= 0 {
		return fmt.Errorf("allowed groups count must be positive, got %d", count)
	}

	if err := s.userRepo.SetAllowedGroupsCount(ctx, userID, count); err != nil {
		return err
	}

	s.logger.Info("User groups quota changed",
		zap.Int64("user_id", userID),
		zap.Int("allowed_groups_count", count),
	)
	return nil
}
