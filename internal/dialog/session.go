package dialog

import (
	"context"
	"sync"
)

// StateName имя шага диалога. Пустая строка — нет активного диалога.
type StateName string

const StateNone StateName = ""

// Session срез состояния одного разговора: текущий шаг и накопленные поля
type Session struct {
	Identity int64
	State    StateName
	Fields   map[string]string
}

// Field возвращает накопленное значение поля
func (s *Session) Field(key string) string {
	if s.Fields == nil {
		return ""
	}
	return s.Fields[key]
}

// Store хранилище сессий. Инвариант: нет состояния — нет полей.
type Store interface {
	GetState(ctx context.Context, identity int64) (StateName, error)
	SetState(ctx context.Context, identity int64, state StateName) error
	GetData(ctx context.Context, identity int64) (map[string]string, error)
	MergeData(ctx context.Context, identity int64, fields map[string]string) error
	Clear(ctx context.Context, identity int64) error
}

type sessionRecord struct {
	State  StateName         `json:"state"`
	Fields map[string]string `json:"fields"`
}

// MemoryStore хранилище сессий в памяти процесса
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*sessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*sessionRecord),
	}
}

// GetState получает текущее состояние разговора
func (ms *MemoryStore) GetState(_ context.Context, identity int64) (StateName, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if rec, exists := ms.sessions[identity]; exists {
		return rec.State, nil
	}
	return StateNone, nil
}

// SetState устанавливает состояние разговора.
// Установка StateNone удаляет запись целиком, вместе с полями.
func (ms *MemoryStore) SetState(_ context.Context, identity int64, state StateName) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if state == StateNone {
		delete(ms.sessions, identity)
		return nil
	}

	if rec, exists := ms.sessions[identity]; exists {
		rec.State = state
		return nil
	}

	ms.sessions[identity] = &sessionRecord{
		State:  state,
		Fields: make(map[string]string),
	}
	return nil
}

// GetData получает копию накопленных полей разговора
func (ms *MemoryStore) GetData(_ context.Context, identity int64) (map[string]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, exists := ms.sessions[identity]
	if !exists {
		return map[string]string{}, nil
	}

	// Возвращаем копию, чтобы избежать race condition
	fields := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	return fields, nil
}

// MergeData дописывает поля к сессии, last-write-wins по ключу
func (ms *MemoryStore) MergeData(_ context.Context, identity int64, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, exists := ms.sessions[identity]
	if !exists {
		// Поля без состояния не живут
		return nil
	}

	for k, v := range fields {
		rec.Fields[k] = v
	}
	return nil
}

// Clear сбрасывает разговор в исходное состояние
func (ms *MemoryStore) Clear(_ context.Context, identity int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.sessions, identity)
	return nil
}
