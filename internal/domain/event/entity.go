package event

import (
	"time"
	"unicode/utf8"
)

// タイトル・説明の最大長（文字数。バイト数ではない）
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Event はイベントエンティティを表す
type Event struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Capacity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int // 楽観的ロック用
}

// NewEvent は新しいイベントを作成する
func NewEvent(title, description string, date time.Time, capacity int) *Event {
	now := time.Now()
	return &Event{
		Title:       title,
		Description: description,
		Date:        date,
		Capacity:    capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     0,
	}
}

// Validate はイベントの検証を行う
// 開催日時の未来チェックは作成・更新の境界でのみ行う（読み取り時には再検証しない）
func (e *Event) Validate() error {
	if e.Title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(e.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if e.Description == "" {
		return ErrDescriptionRequired
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if e.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if !e.Date.After(time.Now()) {
		return ErrDateNotFuture
	}
	return nil
}
