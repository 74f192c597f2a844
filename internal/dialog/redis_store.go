package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore хранилище сессий в Redis: переживает рестарт бота.
// Запись — JSON sessionRecord под ключом conv_state:<id> с TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    15 * time.Minute, // Даём пользователю 15 минут на прохождение диалога
	}
}

func sessionKey(identity int64) string {
	return fmt.Sprintf("conv_state:%d", identity)
}

func (rs *RedisStore) load(ctx context.Context, identity int64) (*sessionRecord, error) {
	data, err := rs.client.Get(ctx, sessionKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (rs *RedisStore) save(ctx context.Context, identity int64, rec *sessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := rs.client.Set(ctx, sessionKey(identity), data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// GetState получает текущее состояние разговора
func (rs *RedisStore) GetState(ctx context.Context, identity int64) (StateName, error) {
	rec, err := rs.load(ctx, identity)
	if err != nil {
		return StateNone, err
	}
	if rec == nil {
		return StateNone, nil
	}
	return rec.State, nil
}

// SetState устанавливает состояние разговора
func (rs *RedisStore) SetState(ctx context.Context, identity int64, state StateName) error {
	if state == StateNone {
		return rs.Clear(ctx, identity)
	}

	rec, err := rs.load(ctx, identity)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &sessionRecord{Fields: make(map[string]string)}
	}
	rec.State = state

	return rs.save(ctx, identity, rec)
}

// GetData получает накопленные поля разговора
func (rs *RedisStore) GetData(ctx context.Context, identity int64) (map[string]string, error) {
	rec, err := rs.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Fields == nil {
		return map[string]string{}, nil
	}
	return rec.Fields, nil
}

// MergeData дописывает поля к сессии
func (rs *RedisStore) MergeData(ctx context.Context, identity int64, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	rec, err := rs.load(ctx, identity)
	if err != nil {
		return err
	}
	if rec == nil {
		// Поля без состояния не живут
		return nil
	}

	if rec.Fields == nil {
		rec.Fields = make(map[string]string)
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}

	return rs.save(ctx, identity, rec)
}

// Clear сбрасывает разговор
func (rs *RedisStore) Clear(ctx context.Context, identity int64) error {
	if err := rs.client.Del(ctx, sessionKey(identity)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
