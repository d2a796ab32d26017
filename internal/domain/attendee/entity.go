package attendee

import (
	"net/mail"
	"time"
	"unicode/utf8"
)

// 氏名の最大長（文字数。バイト数ではない）
const MaxNameLength = 100

// Attendee は参加者エンティティを表す
// メールアドレスは同一イベント内でのみ一意（大文字小文字は区別する）
type Attendee struct {
	ID        string
	EventID   string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAttendee は新しい参加者を作成する
func NewAttendee(eventID, name, email string) *Attendee {
	now := time.Now()
	return &Attendee{
		EventID:   eventID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は参加者の検証を行う
// ストアへのアクセス前に必ず呼び出すこと
func (a *Attendee) Validate() error {
	if a.EventID == "" {
		return ErrEventIDRequired
	}
	if a.Name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(a.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !isValidEmail(a.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// isValidEmail はメールアドレスの構文を検証する
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// 表示名付きの形式（"Tanaka <t@example.com>"）は許可しない
	return addr.Address == email
}
