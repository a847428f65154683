package snapshot

import (
	"context"
	"errors"
	"time"

	"photobatch/internal/model"
)

// ErrNoSnapshot означает, что сохранённого состояния нет. Это не ошибка
// запуска: сервис просто стартует с пустым пакетом.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Document — сериализуемое состояние пакета.
type Document struct {
	SavedAt time.Time        `json:"saved_at"`
	Tasks   model.Collection `json:"tasks"`
}

// Store сохраняет и читает последний снимок пакета.
type Store interface {
	Save(ctx context.Context, doc Document) error
	Load(ctx context.Context) (Document, error)
}

// Nop is used when snapshots are switched off.
type Nop struct{}

func (Nop) Save(context.Context, Document) error { return nil }

func (Nop) Load(context.Context) (Document, error) { return Document{}, ErrNoSnapshot }
