package transaction

import "errors"

// ストア層のエラー定義
var (
	// ErrConflict はトランザクションの直列化競合を表す
	// エンジンが内部でリトライし、上限を超えた場合のみ呼び出し側へ返す
	ErrConflict = errors.New("トランザクションの競合が発生しました")

	// ErrStoreUnavailable はストアへの接続障害を表す
	// リトライせず即座に呼び出し側へ返す
	ErrStoreUnavailable = errors.New("ストアが利用できません")
)
