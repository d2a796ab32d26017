package event

import "errors"

// Event ドメインのエラー定義
var (
	ErrEventNotFound          = errors.New("イベントが見つかりません")
	ErrTitleRequired          = errors.New("タイトルは必須です")
	ErrTitleTooLong           = errors.New("タイトルは200文字以内である必要があります")
	ErrDescriptionRequired    = errors.New("説明は必須です")
	ErrDescriptionTooLong     = errors.New("説明は1000文字以内である必要があります")
	ErrInvalidCapacity        = errors.New("定員は1以上である必要があります")
	ErrDateNotFuture          = errors.New("開催日時は未来の日時である必要があります")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)
