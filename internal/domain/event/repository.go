package event

import (
	"context"

	"github.com/parul297/MeraEvents/internal/domain/transaction"
)

// Repository はイベントリポジトリのインターフェース
type Repository interface {
	// Create は新しいイベントを作成する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id string) (*Event, error)

	// GetByIDForUpdate はイベント行をロックして取得する（トランザクション必須）
	// 同一イベントに対する登録操作を直列化するための行ロック
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Event, error)

	// List はイベント一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Event, error)

	// Update はイベントを更新する（楽観的ロック）
	Update(ctx context.Context, event *Event) error

	// Delete はイベントを削除する（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id string) error
}
