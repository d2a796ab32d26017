package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/parul297/MeraEvents/internal/config"
	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
	"github.com/parul297/MeraEvents/internal/domain/transaction"
	redislock "github.com/parul297/MeraEvents/internal/infrastructure/redis"
	"github.com/parul297/MeraEvents/internal/pkg/logger"
	"github.com/parul297/MeraEvents/internal/pkg/metrics"
)

// RegistrationService は参加登録エンジン
//
// 定員チェック・重複チェック・書き込みは必ず1つのトランザクション内で、
// 対象イベント行を SELECT FOR UPDATE でロックした上で実行する。
// 同一イベントへの操作はこの行ロックで直列化され、別イベント同士は並行に進む。
// (event_id, email) の一意インデックスが重複登録の最終防衛線になる
type RegistrationService struct {
	runner       *txRunner
	attendeeRepo attendee.Repository
	eventRepo    event.Repository
	lockManager  *redislock.LockManager
	rosterCache  *redislock.RosterCache
	lockTTL      time.Duration
}

func NewRegistrationService(
	txManager transaction.Manager,
	ar attendee.Repository,
	er event.Repository,
	lm *redislock.LockManager,
	rc *redislock.RosterCache,
	cfg config.RegistrationConfig,
) *RegistrationService {
	return &RegistrationService{
		runner:       newTxRunner(txManager, cfg.OperationTimeout, cfg.MaxRetries, cfg.RetryBackoff),
		attendeeRepo: ar,
		eventRepo:    er,
		lockManager:  lm,
		rosterCache:  rc,
		lockTTL:      cfg.LockTTL,
	}
}

type RegisterInput struct {
	EventID string
	Name    string
	Email   string
}

// Register は参加者をイベントに登録する
// バリデーション → イベント行ロック → 重複チェック → 定員チェック → 挿入 の順で、
// ストアへのアクセスは検証成功後にのみ行う。重複は定員超過より優先して報告する
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*attendee.Attendee, error) {
	a := attendee.NewAttendee(input.EventID, input.Name, input.Email)
	if err := a.Validate(); err != nil {
		s.recordResult("register", err)
		return nil, err
	}

	release, err := s.acquireEventLocks(ctx, input.EventID)
	if err != nil {
		s.recordResult("register", err)
		return nil, err
	}
	defer release()

	err = s.runner.run(ctx, func(ctx context.Context, tx transaction.Tx) error {
		ev, err := s.eventRepo.GetByIDForUpdate(ctx, tx, input.EventID)
		if err != nil {
			return err
		}

		exists, err := s.attendeeRepo.ExistsByEventAndEmail(ctx, tx, input.EventID, input.Email, "")
		if err != nil {
			return err
		}
		if exists {
			return attendee.ErrEmailAlreadyRegistered
		}

		count, err := s.attendeeRepo.CountByEventID(ctx, tx, input.EventID)
		if err != nil {
			return err
		}
		if count >= ev.Capacity {
			return attendee.ErrEventFull
		}

		return s.attendeeRepo.Create(ctx, tx, a)
	})
	s.recordResult("register", err)
	if err != nil {
		return nil, err
	}

	s.invalidateRosterCache(ctx, input.EventID)
	return a, nil
}

type UpdateRegistrationInput struct {
	AttendeeID string
	EventID    string
	Name       string
	Email      string
}

// UpdateRegistration は参加者の登録内容を更新する
// イベントが変わる場合は「元イベントからの取消」と「新イベントへの登録」を
// 1つのトランザクションで実行し、どちらにも属さない・両方に属する状態は観測されない。
// 重複チェックは常に自分自身の行を除外し、定員チェックはイベントが変わる場合のみ行う
func (s *RegistrationService) UpdateRegistration(ctx context.Context, input UpdateRegistrationInput) (*attendee.Attendee, error) {
	if err := attendee.NewAttendee(input.EventID, input.Name, input.Email).Validate(); err != nil {
		s.recordResult("update", err)
		return nil, err
	}

	// 移動元のイベントIDはロック取得前には未知のため、まず参加者を読む
	current, err := s.attendeeRepo.GetByID(ctx, input.AttendeeID)
	if err != nil {
		s.recordResult("update", err)
		return nil, err
	}

	release, err := s.acquireEventLocks(ctx, current.EventID, input.EventID)
	if err != nil {
		s.recordResult("update", err)
		return nil, err
	}
	defer release()

	var result *attendee.Attendee
	err = s.runner.run(ctx, func(ctx context.Context, tx transaction.Tx) error {
		a, err := s.attendeeRepo.GetByIDForUpdate(ctx, tx, input.AttendeeID)
		if err != nil {
			return err
		}

		// イベント行はID昇順でロックしてデッドロックを防止
		eventIDs := []string{a.EventID}
		if input.EventID != a.EventID {
			eventIDs = append(eventIDs, input.EventID)
			sort.Strings(eventIDs)
		}
		events := make(map[string]*event.Event, len(eventIDs))
		for _, id := range eventIDs {
			ev, err := s.eventRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			events[id] = ev
		}

		exists, err := s.attendeeRepo.ExistsByEventAndEmail(ctx, tx, input.EventID, input.Email, a.ID)
		if err != nil {
			return err
		}
		if exists {
			return attendee.ErrEmailAlreadyRegistered
		}

		// イベントが変わらない場合、定員は影響を受けないので再チェックしない
		if input.EventID != a.EventID {
			target := events[input.EventID]
			count, err := s.attendeeRepo.CountByEventID(ctx, tx, input.EventID)
			if err != nil {
				return err
			}
			if count >= target.Capacity {
				return attendee.ErrEventFull
			}
		}

		a.EventID = input.EventID
		a.Name = input.Name
		a.Email = input.Email
		a.UpdatedAt = time.Now()
		if err := s.attendeeRepo.Update(ctx, tx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	s.recordResult("update", err)
	if err != nil {
		return nil, err
	}

	s.invalidateRosterCache(ctx, current.EventID)
	if input.EventID != current.EventID {
		s.invalidateRosterCache(ctx, input.EventID)
	}
	return result, nil
}

// CancelRegistration は参加登録を取り消す
// 対象が存在しない場合は「既に取り消し済み」と区別できるよう ErrAttendeeNotFound を返す
func (s *RegistrationService) CancelRegistration(ctx context.Context, attendeeID string) error {
	var eventID string
	err := s.runner.run(ctx, func(ctx context.Context, tx transaction.Tx) error {
		a, err := s.attendeeRepo.GetByIDForUpdate(ctx, tx, attendeeID)
		if err != nil {
			return err
		}
		eventID = a.EventID
		return s.attendeeRepo.Delete(ctx, tx, attendeeID)
	})
	s.recordResult("cancel", err)
	if err != nil {
		return err
	}

	s.invalidateRosterCache(ctx, eventID)
	return nil
}

// GetAttendee はIDから参加者を取得する
func (s *RegistrationService) GetAttendee(ctx context.Context, id string) (*attendee.Attendee, error) {
	return s.attendeeRepo.GetByID(ctx, id)
}

// ListAttendees はイベントの参加者一覧を氏名順で取得する
func (s *RegistrationService) ListAttendees(ctx context.Context, eventID string) ([]*attendee.Attendee, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.attendeeRepo.ListByEventID(ctx, eventID)
}

// acquireEventLocks はイベント単位の分散ロックをID昇順で取得する
// LockManager が設定されていない場合は何もしない（DBの行ロックだけでも不変条件は守られる）
func (s *RegistrationService) acquireEventLocks(ctx context.Context, eventIDs ...string) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}

	sorted := make([]string, 0, len(eventIDs))
	seen := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	locks := make([]*redislock.EventLock, 0, len(sorted))
	release := func() {
		// 取得と逆順で解放
		for i := len(locks) - 1; i >= 0; i-- {
			if err := locks[i].Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("イベントロック解放に失敗", zap.Error(err))
			}
		}
	}

	start := time.Now()
	for _, id := range sorted {
		lock, err := s.lockManager.AcquireWithRetry(ctx, id, s.lockTTL, 3, 100*time.Millisecond)
		if err != nil {
			release()
			s.observeLock("acquire", "failed", start)
			if errors.Is(err, redislock.ErrLockNotAcquired) {
				return nil, transaction.ErrConflict
			}
			return nil, err
		}
		locks = append(locks, lock)
	}
	s.observeLock("acquire", "success", start)
	return release, nil
}

// invalidateRosterCache はコミット後にイベントの登録者数キャッシュを無効化する
// キャッシュは近似値なので失敗してもログに残すだけで操作自体は成功とする
func (s *RegistrationService) invalidateRosterCache(ctx context.Context, eventID string) {
	if s.rosterCache == nil {
		return
	}
	if err := s.rosterCache.Invalidate(context.WithoutCancel(ctx), eventID); err != nil {
		logger.Warn("登録者数キャッシュの無効化に失敗",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func (s *RegistrationService) observeLock(operation, status string, start time.Time) {
	if m := metrics.Get(); m != nil {
		m.EventLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	}
}

// recordResult は操作結果をメトリクスに記録する
func (s *RegistrationService) recordResult(operation string, err error) {
	m := metrics.Get()
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, attendee.ErrEmailAlreadyRegistered):
		return "duplicate_email"
	case errors.Is(err, attendee.ErrEventFull):
		return "event_full"
	case errors.Is(err, event.ErrEventNotFound), errors.Is(err, attendee.ErrAttendeeNotFound):
		return "not_found"
	case errors.Is(err, transaction.ErrConflict):
		return "conflict"
	case errors.Is(err, ErrOperationTimeout):
		return "timeout"
	default:
		return "error"
	}
}
