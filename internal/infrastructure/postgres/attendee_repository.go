package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/transaction"
)

type attendeeRow struct {
	ID        string    `db:"id"`
	EventID   string    `db:"event_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *attendeeRow) toEntity() *attendee.Attendee {
	return &attendee.Attendee{
		ID: r.ID, EventID: r.EventID, Name: r.Name, Email: r.Email,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// AttendeeRepository は参加者リポジトリのPostgreSQL実装
// (event_id, email) の一意インデックスが重複登録の最終防衛線になる
type AttendeeRepository struct{ db *sqlx.DB }

func NewAttendeeRepository(db *sqlx.DB) *AttendeeRepository {
	return &AttendeeRepository{db: db}
}

func (r *AttendeeRepository) Create(ctx context.Context, tx transaction.Tx, a *attendee.Attendee) error {
	sqlxTx := UnwrapTx(tx)
	query := `INSERT INTO attendees (event_id, name, email, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query, a.EventID, a.Name, a.Email, a.CreatedAt, a.UpdatedAt).Scan(&a.ID); err != nil {
		mapped := mapError(err)
		if errors.Is(mapped, attendee.ErrEmailAlreadyRegistered) {
			return mapped
		}
		return fmt.Errorf("参加者登録に失敗: %w", mapped)
	}
	return nil
}

func (r *AttendeeRepository) GetByID(ctx context.Context, id string) (*attendee.Attendee, error) {
	var row attendeeRow
	query := `SELECT id, event_id, name, email, created_at, updated_at FROM attendees WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, attendee.ErrAttendeeNotFound
		}
		return nil, fmt.Errorf("参加者取得に失敗: %w", mapError(err))
	}
	return row.toEntity(), nil
}

func (r *AttendeeRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*attendee.Attendee, error) {
	sqlxTx := UnwrapTx(tx)
	var row attendeeRow
	query := `SELECT id, event_id, name, email, created_at, updated_at FROM attendees WHERE id = $1 FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, attendee.ErrAttendeeNotFound
		}
		return nil, fmt.Errorf("参加者行ロックに失敗: %w", mapError(err))
	}
	return row.toEntity(), nil
}

func (r *AttendeeRepository) ListByEventID(ctx context.Context, eventID string) ([]*attendee.Attendee, error) {
	var rows []attendeeRow
	query := `SELECT id, event_id, name, email, created_at, updated_at FROM attendees WHERE event_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("参加者一覧取得に失敗: %w", mapError(err))
	}
	attendees := make([]*attendee.Attendee, len(rows))
	for i, row := range rows {
		attendees[i] = row.toEntity()
	}
	return attendees, nil
}

// CountByEventID はトランザクション内で参加者数を取得する
// イベント行ロック取得後に呼び出すことで定員チェックが直列化される
func (r *AttendeeRepository) CountByEventID(ctx context.Context, tx transaction.Tx, eventID string) (int, error) {
	sqlxTx := UnwrapTx(tx)
	var count int
	if err := sqlxTx.GetContext(ctx, &count, `SELECT COUNT(*) FROM attendees WHERE event_id = $1`, eventID); err != nil {
		return 0, fmt.Errorf("参加者数取得に失敗: %w", mapError(err))
	}
	return count, nil
}

// ExistsByEventAndEmail は同一イベント・同一メールの参加者の有無を返す
// メールの比較は大文字小文字を区別する（生のバイト列比較）
func (r *AttendeeRepository) ExistsByEventAndEmail(ctx context.Context, tx transaction.Tx, eventID, email, excludingID string) (bool, error) {
	sqlxTx := UnwrapTx(tx)
	var exists bool
	var err error
	if excludingID == "" {
		err = sqlxTx.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM attendees WHERE event_id = $1 AND email = $2)`, eventID, email)
	} else {
		err = sqlxTx.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM attendees WHERE event_id = $1 AND email = $2 AND id <> $3)`, eventID, email, excludingID)
	}
	if err != nil {
		return false, fmt.Errorf("重複チェックに失敗: %w", mapError(err))
	}
	return exists, nil
}

func (r *AttendeeRepository) Update(ctx context.Context, tx transaction.Tx, a *attendee.Attendee) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE attendees SET event_id = $1, name = $2, email = $3, updated_at = $4 WHERE id = $5`
	result, err := sqlxTx.ExecContext(ctx, query, a.EventID, a.Name, a.Email, a.UpdatedAt, a.ID)
	if err != nil {
		mapped := mapError(err)
		if errors.Is(mapped, attendee.ErrEmailAlreadyRegistered) {
			return mapped
		}
		return fmt.Errorf("参加者更新に失敗: %w", mapped)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return attendee.ErrAttendeeNotFound
	}
	return nil
}

func (r *AttendeeRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	sqlxTx := UnwrapTx(tx)
	result, err := sqlxTx.ExecContext(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("参加者削除に失敗: %w", mapError(err))
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return attendee.ErrAttendeeNotFound
	}
	return nil
}

// DeleteByEventID はイベントの全参加者を削除し、削除件数を返す
func (r *AttendeeRepository) DeleteByEventID(ctx context.Context, tx transaction.Tx, eventID string) (int, error) {
	sqlxTx := UnwrapTx(tx)
	result, err := sqlxTx.ExecContext(ctx, `DELETE FROM attendees WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("参加者一括削除に失敗: %w", mapError(err))
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

var _ attendee.Repository = (*AttendeeRepository)(nil)
