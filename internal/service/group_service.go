package service

import (
	"context"
	"fmt"

	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/repository"
	"go.uber.org/zap"
)

type GroupService struct {
	groupRepo   *repository.GroupRepository
	messageRepo *repository.MessageRepository
	userRepo    *repository.UserRepository
	logger      *zap.Logger
}

func NewGroupService(
	groupRepo *repository.GroupRepository,
	messageRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	logger *zap.Logger,
) *GroupService {
	return &GroupService{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// Register создаёт локальное зеркало группы
func (s *GroupService) Register(ctx context.Context, group *model.Group) error {
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return err
	}

	s.logger.Info("Group registered",
		zap.Int64("group_id", group.ID),
		zap.Int64("user_id", group.UserID),
		zap.Int64("group_telegram_id", group.TelegramID),
	)
	return nil
}

// ListByOwner получает группы пользователя
func (s *GroupService) ListByOwner(ctx context.Context, userID int64) ([]*model.Group, error) {
	return s.groupRepo.ListByOwner(ctx, userID)
}

// GetByID получает группу по ID
func (s *GroupService) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	return s.groupRepo.GetByID(ctx, id)
}

// QuotaExhausted истинно когда пользователь исчерпал квоту групп
func (s *GroupService) QuotaExhausted(ctx context.Context, user *model.User) (bool, error) {
	count, err := s.groupRepo.CountByOwner(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("check group quota: %w", err)
	}
	return count >= user.AllowedGroupsCount, nil
}

// RecordGroupMessage записывает сообщение в зарегистрированной группе.
// Сообщения в группах клиентов не считаем.
func (s *GroupService) RecordGroupMessage(ctx context.Context, chatTelegramID int64) error {
	group, err := s.groupRepo.GetByTelegramID(ctx, chatTelegramID)
	if err != nil {
		return err
	}
	if group == nil {
		return nil
	}

	owner, err := s.userRepo.GetByID(ctx, group.UserID)
	if err != nil {
		return err
	}
	if owner == nil || !owner.Role.Vendor() {
		return nil
	}

	return s.messageRepo.Record(ctx, group.ID)
}
