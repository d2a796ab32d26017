package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
	"github.com/parul297/MeraEvents/internal/domain/transaction"
)

// PostgreSQLのエラーコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerializationFail   = "40001"
	pqDeadlockDetected    = "40P01"
)

// mapError はドライバのエラーをドメインエラーへ変換する
// (event_id, email) の一意インデックス違反は重複登録、外部キー違反はイベント不在として扱う
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pqUniqueViolation:
			return attendee.ErrEmailAlreadyRegistered
		case pqForeignKeyViolation:
			return event.ErrEventNotFound
		case pqSerializationFail, pqDeadlockDetected:
			return transaction.ErrConflict
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return transaction.ErrStoreUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return err
}
