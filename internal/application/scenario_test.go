package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parul297/MeraEvents/internal/config"
	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
	"github.com/parul297/MeraEvents/internal/infrastructure/postgres"
	redisinfra "github.com/parul297/MeraEvents/internal/infrastructure/redis"
)

func setupTestEnv(t *testing.T) (*RegistrationService, *EventService, func()) {
	cfg := config.Load()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}

	// Redisは任意。未接続ならDBの行ロックだけで動作する
	var lockManager *redisinfra.LockManager
	var rosterCache *redisinfra.RosterCache
	redisClient := redisinfra.NewClient(&cfg.Redis)
	if err := redisinfra.Ping(context.Background(), redisClient); err != nil {
		redisClient.Close()
		redisClient = nil
	} else {
		lockManager = redisinfra.NewLockManager(redisClient)
		rosterCache = redisinfra.NewRosterCache(redisClient)
	}

	eventRepo := postgres.NewEventRepository(db)
	attendeeRepo := postgres.NewAttendeeRepository(db)
	txManager := postgres.NewTxManager(db)

	eventService := NewEventService(txManager, eventRepo, attendeeRepo, rosterCache, cfg.Registration)
	registrationService := NewRegistrationService(txManager, attendeeRepo, eventRepo, lockManager, rosterCache, cfg.Registration)

	cleanup := func() {
		db.Exec("DELETE FROM attendees")
		db.Exec("DELETE FROM events")
		if redisClient != nil {
			redisClient.Close()
		}
		db.Close()
	}

	return registrationService, eventService, cleanup
}

func createTestEvent(t *testing.T, eventService *EventService, title string, capacity int) *event.Event {
	t.Helper()
	ev, err := eventService.CreateEvent(context.Background(), CreateEventInput{
		Title:       title,
		Description: "結合テスト用イベント",
		Date:        time.Now().Add(30 * 24 * time.Hour),
		Capacity:    capacity,
	})
	require.NoError(t, err)
	return ev
}

// TestScenario_FullRegistrationFlow は参加登録の完全なフローをテストします
// イベント作成 → 登録 → 一覧 → 変更 → 取消
func TestScenario_FullRegistrationFlow(t *testing.T) {
	registrationService, eventService, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("完全な登録フロー", func(t *testing.T) {
		ev := createTestEvent(t, eventService, "Goカンファレンス東京", 100)

		// 登録
		a, err := registrationService.Register(ctx, RegisterInput{
			EventID: ev.ID,
			Name:    "田中太郎",
			Email:   "tanaka@example.com",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)

		// 一覧に現れる
		attendees, err := registrationService.ListAttendees(ctx, ev.ID)
		require.NoError(t, err)
		require.Len(t, attendees, 1)
		assert.Equal(t, "田中太郎", attendees[0].Name)

		// 登録者数
		count, err := eventService.CountRegistered(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// 氏名とメールを変更
		updated, err := registrationService.UpdateRegistration(ctx, UpdateRegistrationInput{
			AttendeeID: a.ID,
			EventID:    ev.ID,
			Name:       "田中太郎",
			Email:      "tanaka.new@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "tanaka.new@example.com", updated.Email)

		// 取消
		err = registrationService.CancelRegistration(ctx, a.ID)
		require.NoError(t, err)

		// 取消後の再取消は not found
		err = registrationService.CancelRegistration(ctx, a.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, attendee.ErrAttendeeNotFound))
	})
}

// TestScenario_ConcurrentRegistrations は定員を超える並行登録で
// 成功数がちょうど定員に一致することを検証します
func TestScenario_ConcurrentRegistrations(t *testing.T) {
	registrationService, eventService, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("定員5のイベントに20人が同時登録", func(t *testing.T) {
		ev := createTestEvent(t, eventService, "少人数ワークショップ", 5)

		const numUsers = 20
		var successCount int32
		var fullCount int32
		var otherErrorCount int32
		var wg sync.WaitGroup

		for i := 0; i < numUsers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := registrationService.Register(ctx, RegisterInput{
					EventID: ev.ID,
					Name:    fmt.Sprintf("参加者%d", n),
					Email:   fmt.Sprintf("user%d@example.com", n),
				})
				switch {
				case err == nil:
					atomic.AddInt32(&successCount, 1)
				case errors.Is(err, attendee.ErrEventFull):
					atomic.AddInt32(&fullCount, 1)
				default:
					atomic.AddInt32(&otherErrorCount, 1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(5), successCount, "定員ちょうどの人数だけが登録成功")
		assert.Equal(t, int32(0), otherErrorCount, "定員超過以外のエラーは発生しない")
		t.Logf("成功: %d, 満席: %d, その他エラー: %d", successCount, fullCount, otherErrorCount)

		// DB上の最終状態も定員と一致する
		attendees, err := registrationService.ListAttendees(ctx, ev.ID)
		require.NoError(t, err)
		assert.Len(t, attendees, 5)
	})
}

// TestScenario_ConcurrentDuplicateEmail は同一メールの並行登録で
// 1件だけが成功することを検証します
func TestScenario_ConcurrentDuplicateEmail(t *testing.T) {
	registrationService, eventService, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("同一メールで10人が同時登録", func(t *testing.T) {
		ev := createTestEvent(t, eventService, "重複メールテスト", 100)

		const numRequests = 10
		var successCount int32
		var duplicateCount int32
		var wg sync.WaitGroup

		for i := 0; i < numRequests; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := registrationService.Register(ctx, RegisterInput{
					EventID: ev.ID,
					Name:    fmt.Sprintf("同姓同名%d", n),
					Email:   "duplicate@example.com",
				})
				switch {
				case err == nil:
					atomic.AddInt32(&successCount, 1)
				case errors.Is(err, attendee.ErrEmailAlreadyRegistered):
					atomic.AddInt32(&duplicateCount, 1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), successCount, "1件だけが登録成功")
		assert.Equal(t, int32(numRequests-1), duplicateCount, "残りは全て重複エラー")
	})
}

// TestScenario_CancelAndReregister は取消で空いた枠に別の参加者が入れることを検証します
func TestScenario_CancelAndReregister(t *testing.T) {
	registrationService, eventService, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("取消された枠を別の参加者が使える", func(t *testing.T) {
		ev := createTestEvent(t, eventService, "キャンセル再登録テスト", 1)

		first, err := registrationService.Register(ctx, RegisterInput{
			EventID: ev.ID,
			Name:    "先着参加者",
			Email:   "first@example.com",
		})
		require.NoError(t, err)

		// 満席のため2人目は失敗
		_, err = registrationService.Register(ctx, RegisterInput{
			EventID: ev.ID,
			Name:    "後続参加者",
			Email:   "second@example.com",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, attendee.ErrEventFull))

		// 取消で枠が空く
		err = registrationService.CancelRegistration(ctx, first.ID)
		require.NoError(t, err)

		// 空いた枠に登録できる
		second, err := registrationService.Register(ctx, RegisterInput{
			EventID: ev.ID,
			Name:    "後続参加者",
			Email:   "second@example.com",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, second.ID)
	})
}

// TestScenario_MoveBetweenEvents はイベント間の移動が中間状態なしに行われることを検証します
func TestScenario_MoveBetweenEvents(t *testing.T) {
	registrationService, eventService, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("満席イベントからの移動で枠が空く", func(t *testing.T) {
		evA := createTestEvent(t, eventService, "移動元イベント", 1)
		evB := createTestEvent(t, eventService, "移動先イベント", 10)

		a, err := registrationService.Register(ctx, RegisterInput{
			EventID: evA.ID,
			Name:    "移動する参加者",
			Email:   "mover@example.com",
		})
		require.NoError(t, err)

		// イベントAからイベントBへ移動
		moved, err := registrationService.UpdateRegistration(ctx, UpdateRegistrationInput{
			AttendeeID: a.ID,
			EventID:    evB.ID,
			Name:       "移動する参加者",
			Email:      "mover@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, evB.ID, moved.EventID)

		// どちらのイベントにも二重所属していない
		attendeesA, err := registrationService.ListAttendees(ctx, evA.ID)
		require.NoError(t, err)
		assert.Len(t, attendeesA, 0)

		attendeesB, err := registrationService.ListAttendees(ctx, evB.ID)
		require.NoError(t, err)
		assert.Len(t, attendeesB, 1)

		// 空いた枠に別の参加者が登録できる
		_, err = registrationService.Register(ctx, RegisterInput{
			EventID: evA.ID,
			Name:    "空き待ち参加者",
			Email:   "waiter@example.com",
		})
		require.NoError(t, err)
	})

	t.Run("移動先が満席なら元の登録が保たれる", func(t *testing.T) {
		evA := createTestEvent(t, eventService, "移動元イベント2", 10)
		evB := createTestEvent(t, eventService, "満席の移動先", 1)

		_, err := registrationService.Register(ctx, RegisterInput{
			EventID: evB.ID,
			Name:    "先着参加者",
			Email:   "occupier@example.com",
		})
		require.NoError(t, err)

		a, err := registrationService.Register(ctx, RegisterInput{
			EventID: evA.ID,
			Name:    "移動希望者",
			Email:   "hopeful@example.com",
		})
		require.NoError(t, err)

		_, err = registrationService.UpdateRegistration(ctx, UpdateRegistrationInput{
			AttendeeID: a.ID,
			EventID:    evB.ID,
			Name:       "移動希望者",
			Email:      "hopeful@example.com",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, attendee.ErrEventFull))

		// 失敗した移動は元の登録に影響しない
		current, err := registrationService.GetAttendee(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, evA.ID, current.EventID)
	})
}

// TestScenario_RetireEventUnderLoad はイベント廃止と並行登録が競合しても
// 孤児参加者が残らないことを検証します
func TestScenario_RetireEventUnderLoad(t *testing.T) {
	registrationService, eventService, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("登録の嵐の最中にイベントを廃止", func(t *testing.T) {
		ev := createTestEvent(t, eventService, "廃止予定イベント", 100)

		const numUsers = 20
		var wg sync.WaitGroup

		for i := 0; i < numUsers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				// 成功しても失敗してもよい。途中で廃止されれば not found になる
				registrationService.Register(ctx, RegisterInput{
					EventID: ev.ID,
					Name:    fmt.Sprintf("駆け込み参加者%d", n),
					Email:   fmt.Sprintf("rush%d@example.com", n),
				})
			}(i)
		}

		// 登録と並行して廃止
		time.Sleep(10 * time.Millisecond)
		err := eventService.DeleteEvent(ctx, ev.ID)
		require.NoError(t, err)
		wg.Wait()

		// イベントも参加者も残っていない
		_, err = eventService.GetEvent(ctx, ev.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, event.ErrEventNotFound))

		_, err = registrationService.ListAttendees(ctx, ev.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, event.ErrEventNotFound))
	})
}

// TestScenario_ConcurrentCancel は同一参加者への並行取消で
// 1件だけが成功することを検証します
func TestScenario_ConcurrentCancel(t *testing.T) {
	registrationService, eventService, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("同じ登録を5人が同時に取消", func(t *testing.T) {
		ev := createTestEvent(t, eventService, "並行取消テスト", 10)

		a, err := registrationService.Register(ctx, RegisterInput{
			EventID: ev.ID,
			Name:    "取消対象",
			Email:   "target@example.com",
		})
		require.NoError(t, err)

		const numRequests = 5
		var successCount int32
		var notFoundCount int32
		var wg sync.WaitGroup

		for i := 0; i < numRequests; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := registrationService.CancelRegistration(ctx, a.ID)
				switch {
				case err == nil:
					atomic.AddInt32(&successCount, 1)
				case errors.Is(err, attendee.ErrAttendeeNotFound):
					atomic.AddInt32(&notFoundCount, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successCount, "1件だけが取消成功")
		assert.Equal(t, int32(numRequests-1), notFoundCount, "残りは not found")
	})
}
