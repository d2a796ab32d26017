package transaction

import "context"

// Tx は進行中のトランザクションを表す
// 登録エンジンの読み取り・書き込みは必ず同一のTxを通して行い、
// ドメイン層・アプリケーション層をsqlx等のドライバから切り離す
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager はトランザクションの開始を抽象化する
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}
