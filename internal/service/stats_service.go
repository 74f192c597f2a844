package service

import (
	"context"
	"fmt"
	"time"

	"github.com/grouppromo/adbot/internal/catalog"
	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/repository"
	"go.uber.org/zap"
)

// GroupStats сводка по одной группе
type GroupStats struct {
	Earnings7d      int
	Earnings30d     int
	EarningsTotal   int
	Messages7d      int
	CoveragePercent int
}

type StatsService struct {
	postRepo    *repository.PostRepository
	messageRepo *repository.MessageRepository
	catalog     *catalog.Client
	logger      *zap.Logger
	now         func() time.Time
}

func NewStatsService(
	postRepo *repository.PostRepository,
	messageRepo *repository.MessageRepository,
	catalogClient *catalog.Client,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		postRepo:    postRepo,
		messageRepo: messageRepo,
		catalog:     catalogClient,
		logger:      logger,
		now:         time.Now,
	}
}

// SumEarnings суммирует заработок по размещениям не раньше since
func SumEarnings(posts []*model.Post, since time.Time) int {
	total := 0
	for _, post := range posts {
		if !post.CreatedAt.Before(since) {
			total += post.TotalPrice
		}
	}
	return total
}

// CoveragePercent доля занятых слотов в процентах, с округлением вниз
func CoveragePercent(postedCount, slotCount int) int {
	if slotCount <= 0 {
		return 0
	}
	return postedCount * 100 / slotCount
}

// SlotsPerDay сколько размещений помещается в рабочие часы группы.
// Конец "00:00" означает полночь следующего дня.
func SlotsPerDay(workStart, workEnd string, intervalMinutes int) int {
	if intervalMinutes <= 0 {
		return 0
	}

	startHour := hourOf(workStart)
	endHour := hourOf(workEnd)
	if endHour == 0 {
		endHour = 24
	}
	if endHour <= startHour {
		return 0
	}

	return (endHour - startHour) * 60 / intervalMinutes
}

func hourOf(hhmm string) int {
	var hour, minute int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil {
		return 0
	}
	return hour
}

// GroupStats собирает сводку по группе: заработок из локального стора,
// покрытие — из удалённого каталога
func (s *StatsService) GroupStats(ctx context.Context, as model.Role, group *model.Group, remote *catalog.Group) (*GroupStats, error) {
	posts, err := s.postRepo.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("load group posts: %w", err)
	}

	now := s.now()
	stats := &GroupStats{
		Earnings7d:    SumEarnings(posts, now.AddDate(0, 0, -7)),
		Earnings30d:   SumEarnings(posts, now.AddDate(0, 0, -30)),
		EarningsTotal: SumEarnings(posts, time.Time{}),
	}

	stats.Messages7d, err = s.messageRepo.CountSince(ctx, group.ID, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("count group messages: %w", err)
	}

	posted, err := s.publishedLastWeek(ctx, as, remote.ID, now)
	if err != nil {
		return nil, err
	}

	weekSlots := SlotsPerDay(remote.WorkingHoursStart, remote.WorkingHoursEnd, remote.PostIntervalInMinutes) * 7
	stats.CoveragePercent = CoveragePercent(posted, weekSlots)

	return stats, nil
}

// publishedLastWeek считает публикации за последние 7 дней.
// API фильтрует только по одному дню, поэтому запрашиваем по дню за раз.
func (s *StatsService) publishedLastWeek(ctx context.Context, as model.Role, remoteGroupID int64, now time.Time) (int, error) {
	total := 0
	for offset := 0; offset < 7; offset++ {
		date := now.AddDate(0, 0, -offset).Format("2006-01-02")
		count, err := s.catalog.CountPostsOnDate(ctx, as, remoteGroupID, date)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// RecordSale записывает проданное размещение для статистики заработка
func (s *StatsService) RecordSale(ctx context.Context, groupID int64, totalPrice int) error {
	post := &model.Post{GroupID: groupID, TotalPrice: totalPrice}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return err
	}

	s.logger.Info("Sale recorded",
		zap.Int64("group_id", groupID),
		zap.Int("total_price", totalPrice),
	)
	return nil
}
