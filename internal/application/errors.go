package application

import "errors"

// アプリケーション層のエラー定義
var (
	// ErrOperationTimeout は操作が設定された上限時間を超えたことを表す
	// トランザクションは完全にコミットされたか完全にロールバックされたかのどちらかである
	ErrOperationTimeout = errors.New("操作がタイムアウトしました")
)
