package attendee

import "errors"

// Attendee ドメインのエラー定義
var (
	ErrAttendeeNotFound       = errors.New("参加者が見つかりません")
	ErrNameRequired           = errors.New("氏名は必須です")
	ErrNameTooLong            = errors.New("氏名は100文字以内である必要があります")
	ErrInvalidEmail           = errors.New("メールアドレスの形式が不正です")
	ErrEventIDRequired        = errors.New("イベントIDは必須です")
	ErrEmailAlreadyRegistered = errors.New("このメールアドレスは既にこのイベントに登録されています")
	ErrEventFull              = errors.New("イベントは定員に達しています")
)
