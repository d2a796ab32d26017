package attendee

import (
	"context"

	"github.com/parul297/MeraEvents/internal/domain/transaction"
)

// Repository は参加者リポジトリのインターフェース
// 同一イベントの参加者数とメール集合を読み書きする操作は、
// 依存する書き込みと同じトランザクション内で実行すること
type Repository interface {
	// Create は新しい参加者を登録する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, a *Attendee) error

	// GetByID はIDから参加者を取得する
	GetByID(ctx context.Context, id string) (*Attendee, error)

	// GetByIDForUpdate は参加者行をロックして取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Attendee, error)

	// ListByEventID はイベントの参加者一覧を氏名順で取得する
	ListByEventID(ctx context.Context, eventID string) ([]*Attendee, error)

	// CountByEventID はトランザクション内でイベントの参加者数を取得する
	CountByEventID(ctx context.Context, tx transaction.Tx, eventID string) (int, error)

	// ExistsByEventAndEmail はトランザクション内で同一イベント・同一メールの
	// 参加者が存在するかを返す。excludingID が空でない場合はその参加者自身を除外する
	ExistsByEventAndEmail(ctx context.Context, tx transaction.Tx, eventID, email, excludingID string) (bool, error)

	// Update は参加者を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, a *Attendee) error

	// Delete は参加者を削除する（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id string) error

	// DeleteByEventID はイベントの全参加者を削除する（トランザクション必須）
	DeleteByEventID(ctx context.Context, tx transaction.Tx, eventID string) (int, error)
}
