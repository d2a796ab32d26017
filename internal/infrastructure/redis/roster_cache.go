package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("キャッシュが見つかりません")

// RosterCache はイベントごとの登録者数キャッシュを管理する
// 信頼できる値は常にDBにあり、キャッシュは一覧表示用の近似値
type RosterCache struct {
	client *redis.Client
}

// NewRosterCache は新しいRosterCacheインスタンスを作成する
func NewRosterCache(client *redis.Client) *RosterCache {
	return &RosterCache{client: client}
}

// GetRegisteredCount はイベントの登録者数をキャッシュから取得する
func (c *RosterCache) GetRegisteredCount(ctx context.Context, eventID string) (int, error) {
	key := c.registeredCountKey(eventID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetRegisteredCount はイベントの登録者数をキャッシュに保存する
func (c *RosterCache) SetRegisteredCount(ctx context.Context, eventID string, count int, ttl time.Duration) error {
	key := c.registeredCountKey(eventID)
	err := c.client.Set(ctx, key, count, ttl).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はイベントのキャッシュを無効化する
// 登録・取消・移動のコミット後に呼び出す
func (c *RosterCache) Invalidate(ctx context.Context, eventID string) error {
	key := c.registeredCountKey(eventID)
	err := c.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *RosterCache) registeredCountKey(eventID string) string {
	return fmt.Sprintf("roster:count:%s", eventID)
}
