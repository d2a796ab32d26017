package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parul297/MeraEvents/internal/pkg/logger"
)

// RosterCounter は登録者数キャッシュを再計算するインターフェース
type RosterCounter interface {
	RefreshRosterCounts(ctx context.Context) (int, error)
}

// RosterCountRefresher は登録者数キャッシュを定期的にDBと突き合わせるワーカー
// キャッシュの無効化漏れやRedis側の消失があっても一定時間で収束する
type RosterCountRefresher struct {
	eventService RosterCounter
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewRosterCountRefresher は新しいリフレッシャーを作成
func NewRosterCountRefresher(es RosterCounter, interval time.Duration) *RosterCountRefresher {
	return &RosterCountRefresher{
		eventService: es,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start はリフレッシャーを開始
func (r *RosterCountRefresher) Start(ctx context.Context) {
	logger.Info("登録者数リフレッシャー開始",
		zap.Duration("interval", r.interval),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("登録者数リフレッシャー停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("登録者数リフレッシャー停止（シグナル受信）")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Stop はリフレッシャーを停止
func (r *RosterCountRefresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// refresh は登録者数キャッシュを再計算
func (r *RosterCountRefresher) refresh(ctx context.Context) {
	log := logger.Get()
	log.Debug("登録者数キャッシュの再計算開始")

	count, err := r.eventService.RefreshRosterCounts(ctx)
	if err != nil {
		log.Error("登録者数キャッシュの再計算失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Debug("登録者数キャッシュを再計算", zap.Int("events", count))
	}
}
