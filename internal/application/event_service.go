package application

import (
	"context"
	"fmt"
	"time"

	"github.com/parul297/MeraEvents/internal/config"
	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
	"github.com/parul297/MeraEvents/internal/domain/transaction"
	redislock "github.com/parul297/MeraEvents/internal/infrastructure/redis"
	"github.com/parul297/MeraEvents/internal/pkg/logger"

	"go.uber.org/zap"
)

type EventService struct {
	runner       *txRunner
	eventRepo    event.Repository
	attendeeRepo attendee.Repository
	rosterCache  *redislock.RosterCache
}

func NewEventService(
	txManager transaction.Manager,
	er event.Repository,
	ar attendee.Repository,
	rc *redislock.RosterCache,
	cfg config.RegistrationConfig,
) *EventService {
	return &EventService{
		runner:       newTxRunner(txManager, cfg.OperationTimeout, cfg.MaxRetries, cfg.RetryBackoff),
		eventRepo:    er,
		attendeeRepo: ar,
		rosterCache:  rc,
	}
}

type CreateEventInput struct {
	Title       string
	Description string
	Date        time.Time
	Capacity    int
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	e := event.NewEvent(input.Title, input.Description, input.Date, input.Capacity)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return e, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.List(ctx, limit, offset)
}

type UpdateEventInput struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Capacity    int
}

func (s *EventService) UpdateEvent(ctx context.Context, input UpdateEventInput) (*event.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	e.Title = input.Title
	e.Description = input.Description
	e.Date = input.Date
	e.Capacity = input.Capacity
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent はイベントとその全参加者を1つのトランザクションで削除する
// 参加者だけ消えてイベントが残る、またはその逆の中間状態は決して観測されない
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	var removed int
	err := s.runner.run(ctx, func(ctx context.Context, tx transaction.Tx) error {
		// 進行中の登録と直列化するためイベント行をロックしてから削除する
		if _, err := s.eventRepo.GetByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		n, err := s.attendeeRepo.DeleteByEventID(ctx, tx, id)
		if err != nil {
			return err
		}
		removed = n
		return s.eventRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	if removed > 0 {
		logger.Info("イベント削除に伴い参加者を削除",
			zap.String("event_id", id),
			zap.Int("attendees_removed", removed),
		)
	}
	if s.rosterCache != nil {
		if err := s.rosterCache.Invalidate(context.WithoutCancel(ctx), id); err != nil {
			logger.Warn("登録者数キャッシュの無効化に失敗", zap.String("event_id", id), zap.Error(err))
		}
	}
	return nil
}

// RefreshRosterCounts は全イベントの登録者数キャッシュをDBの値で再計算する
// 定期ワーカーから呼ばれ、キャッシュのずれを収束させる
func (s *EventService) RefreshRosterCounts(ctx context.Context) (int, error) {
	if s.rosterCache == nil {
		return 0, nil
	}

	refreshed := 0
	for offset := 0; ; offset += 100 {
		events, err := s.eventRepo.List(ctx, 100, offset)
		if err != nil {
			return refreshed, err
		}
		if len(events) == 0 {
			return refreshed, nil
		}
		for _, ev := range events {
			var count int
			err := s.runner.run(ctx, func(ctx context.Context, tx transaction.Tx) error {
				n, err := s.attendeeRepo.CountByEventID(ctx, tx, ev.ID)
				if err != nil {
					return err
				}
				count = n
				return nil
			})
			if err != nil {
				return refreshed, err
			}
			if err := s.rosterCache.SetRegisteredCount(ctx, ev.ID, count, time.Minute); err != nil {
				return refreshed, err
			}
			refreshed++
		}
	}
}

// CountRegistered はイベントの登録者数を返す（一覧表示用）
// キャッシュを先に引き、ミス時はDBから取得してキャッシュを温める
func (s *EventService) CountRegistered(ctx context.Context, eventID string) (int, error) {
	if s.rosterCache != nil {
		if count, err := s.rosterCache.GetRegisteredCount(ctx, eventID); err == nil {
			return count, nil
		}
	}

	var count int
	err := s.runner.run(ctx, func(ctx context.Context, tx transaction.Tx) error {
		n, err := s.attendeeRepo.CountByEventID(ctx, tx, eventID)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.rosterCache != nil {
		if err := s.rosterCache.SetRegisteredCount(ctx, eventID, count, 30*time.Second); err != nil {
			logger.Debug("登録者数キャッシュの保存に失敗", zap.Error(err))
		}
	}
	return count, nil
}
