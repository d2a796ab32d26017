package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/parul297/MeraEvents/internal/domain/transaction"
	"github.com/parul297/MeraEvents/internal/pkg/logger"
)

// txRunner はトランザクション実行の共通機構
// 直列化競合（transaction.ErrConflict）のみを上限回数までリトライし、
// 業務ルール違反・検証エラーは一切リトライしない
type txRunner struct {
	manager    transaction.Manager
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

func newTxRunner(manager transaction.Manager, timeout time.Duration, maxRetries int, backoff time.Duration) *txRunner {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &txRunner{manager: manager, timeout: timeout, maxRetries: maxRetries, backoff: backoff}
}

// run は fn を1つのトランザクション内で実行する
// fn がエラーを返した場合はロールバックされ、部分適用は決して観測されない
func (r *txRunner) run(ctx context.Context, fn func(ctx context.Context, tx transaction.Tx) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrOperationTimeout
		}
		if !errors.Is(err, transaction.ErrConflict) {
			return err
		}
		lastErr = err
		logger.Warn("トランザクション競合を検出、リトライします",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.maxRetries),
		)
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrOperationTimeout
			}
			return ctx.Err()
		case <-time.After(r.backoff):
		}
	}
	return lastErr
}

func (r *txRunner) runOnce(ctx context.Context, fn func(ctx context.Context, tx transaction.Tx) error) error {
	tx, err := r.manager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}
