package projection

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
)

func observedProjection(t *testing.T) *RosterProjection {
	t.Helper()
	p := NewRosterProjection()
	p.ObserveEvent(&event.Event{ID: "event-1", Title: "交流会", Capacity: 10})
	p.ObserveEvent(&event.Event{ID: "event-2", Title: "勉強会", Capacity: 5})
	p.ObserveAttendee(&attendee.Attendee{ID: "att-1", EventID: "event-1", Name: "田中", Email: "tanaka@example.com"})
	return p
}

func TestPredictRegister_ConfirmReplacesTempID(t *testing.T) {
	p := observedProjection(t)

	tempID, err := p.PredictRegister("event-1", "鈴木", "suzuki@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tempID, "tmp-"))

	// 予測が即座に反映されている
	assert.Equal(t, 2, p.Count("event-1"))
	assert.Equal(t, 1, p.PendingCount())

	// サーバー確定で本物のIDに置き換わる
	err = p.Confirm(tempID, &attendee.Attendee{
		ID: "att-2", EventID: "event-1", Name: "鈴木", Email: "suzuki@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, p.Count("event-1"))
	assert.Equal(t, 0, p.PendingCount())
	for _, a := range p.Roster("event-1") {
		assert.False(t, strings.HasPrefix(a.ID, "tmp-"), "仮IDが残ってはいけない")
	}
}

func TestPredictRegister_RevertRestoresPriorState(t *testing.T) {
	p := observedProjection(t)

	tempID, err := p.PredictRegister("event-1", "鈴木", "suzuki@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Count("event-1"))

	// エラー応答で巻き戻す
	require.NoError(t, p.Revert(tempID))

	assert.Equal(t, 1, p.Count("event-1"))
	assert.Equal(t, 0, p.PendingCount())
	roster := p.Roster("event-1")
	require.Len(t, roster, 1)
	assert.Equal(t, "att-1", roster[0].ID)
}

func TestPredictRegister_UnknownEvent(t *testing.T) {
	p := NewRosterProjection()
	_, err := p.PredictRegister("unknown", "鈴木", "suzuki@example.com")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestPredictUpdate_MoveBetweenEvents(t *testing.T) {
	p := observedProjection(t)

	tempID, err := p.PredictUpdate("att-1", "event-2", "田中", "tanaka@example.com")
	require.NoError(t, err)

	// 予測中はどちらか一方にだけ属する
	assert.Equal(t, 0, p.Count("event-1"))
	assert.Equal(t, 1, p.Count("event-2"))

	err = p.Confirm(tempID, &attendee.Attendee{
		ID: "att-1", EventID: "event-2", Name: "田中", Email: "tanaka@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, p.Count("event-1"))
	assert.Equal(t, 1, p.Count("event-2"))
	roster := p.Roster("event-2")
	require.Len(t, roster, 1)
	assert.Equal(t, "att-1", roster[0].ID)
}

func TestPredictUpdate_RevertRestoresOriginalRow(t *testing.T) {
	p := observedProjection(t)

	tempID, err := p.PredictUpdate("att-1", "event-2", "田中（改）", "tanaka2@example.com")
	require.NoError(t, err)

	// 移動先が満員だった等の失敗を想定して巻き戻す
	require.NoError(t, p.Revert(tempID))

	assert.Equal(t, 1, p.Count("event-1"))
	assert.Equal(t, 0, p.Count("event-2"))
	roster := p.Roster("event-1")
	require.Len(t, roster, 1)
	assert.Equal(t, "att-1", roster[0].ID)
	assert.Equal(t, "田中", roster[0].Name)
	assert.Equal(t, "tanaka@example.com", roster[0].Email)
}

func TestPredictCancel(t *testing.T) {
	p := observedProjection(t)

	t.Run("確定で削除が維持される", func(t *testing.T) {
		tempID, err := p.PredictCancel("att-1")
		require.NoError(t, err)
		assert.Equal(t, 0, p.Count("event-1"))

		require.NoError(t, p.Confirm(tempID, nil))
		assert.Equal(t, 0, p.Count("event-1"))
	})

	t.Run("巻き戻しで行が復元される", func(t *testing.T) {
		p := observedProjection(t)
		tempID, err := p.PredictCancel("att-1")
		require.NoError(t, err)

		require.NoError(t, p.Revert(tempID))
		roster := p.Roster("event-1")
		require.Len(t, roster, 1)
		assert.Equal(t, "att-1", roster[0].ID)
	})

	t.Run("未観測の参加者はエラー", func(t *testing.T) {
		p := observedProjection(t)
		_, err := p.PredictCancel("unknown")
		assert.ErrorIs(t, err, ErrUnknownAttendee)
	})
}

func TestPredictRetire(t *testing.T) {
	t.Run("確定でイベントと名簿が消える", func(t *testing.T) {
		p := observedProjection(t)
		tempID, err := p.PredictRetire("event-1")
		require.NoError(t, err)

		_, ok := p.Event("event-1")
		assert.False(t, ok)
		assert.Equal(t, 0, p.Count("event-1"))

		require.NoError(t, p.Confirm(tempID, nil))
		_, ok = p.Event("event-1")
		assert.False(t, ok)
	})

	t.Run("巻き戻しでイベントと名簿が丸ごと戻る", func(t *testing.T) {
		p := observedProjection(t)
		tempID, err := p.PredictRetire("event-1")
		require.NoError(t, err)

		require.NoError(t, p.Revert(tempID))

		ev, ok := p.Event("event-1")
		require.True(t, ok)
		assert.Equal(t, "交流会", ev.Title)
		roster := p.Roster("event-1")
		require.Len(t, roster, 1)
		assert.Equal(t, "att-1", roster[0].ID)
	})
}

func TestConfirm_UnknownPrediction(t *testing.T) {
	p := observedProjection(t)
	assert.ErrorIs(t, p.Confirm("tmp-unknown", nil), ErrPredictionNotFound)
	assert.ErrorIs(t, p.Revert("tmp-unknown"), ErrPredictionNotFound)
}

func TestRosterProjection_ConcurrentAccess(t *testing.T) {
	p := NewRosterProjection()
	p.ObserveEvent(&event.Event{ID: "event-1", Title: "大規模イベント", Capacity: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tempID, err := p.PredictRegister("event-1", "参加者", "someone@example.com")
			if err != nil {
				return
			}
			_ = p.Revert(tempID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, p.PendingCount())
	assert.Equal(t, 0, p.Count("event-1"))
}
