package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"photobatch/internal/download"
	"photobatch/internal/export"
	"photobatch/internal/filter"
	"photobatch/internal/logger"
	"photobatch/internal/model"
	"photobatch/internal/scheduler"
	"photobatch/internal/snapshot"
	"photobatch/internal/stats"
)

const interruptedCause = "interrupted before completion"

var (
	ErrRunActive    = errors.New("a download run is in progress")
	ErrNoBatch      = errors.New("no batch loaded")
	ErrNothingToRun = errors.New("no pending selected tasks")
)

// Manager владеет текущим пакетом задач. Коллекция заменяется целиком при
// каждом изменении (copy-on-write), поэтому читатели всегда получают
// согласованный снимок без копирования. Допускает параллельный доступ.
type Manager struct {
	fetcher download.Fetcher
	opts    []scheduler.Option
	logger  logger.Logger

	mu         sync.RWMutex
	tasks      model.Collection
	generation uint64 // растёт при каждой замене пакета
	version    uint64 // растёт при каждом изменении, нужен для снапшотов
	running    bool
	cancelRun  context.CancelFunc
	done       chan struct{}
}

// New создаёт менеджер. Параметры opts передаются каждому планировщику,
// который менеджер создаёт для запуска.
func New(fetcher download.Fetcher, log logger.Logger, opts ...scheduler.Option) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		fetcher: fetcher,
		opts:    opts,
		logger:  log.WithFields(logger.Fields{"component": "manager"}),
	}
}

// Load заменяет пакет целиком. Во время запуска замена возможна только с
// force: текущий запуск отменяется, а его обновления отбрасываются.
func (m *Manager) Load(tasks model.Collection, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.discardLocked(force); err != nil {
		return err
	}
	m.swapLocked(tasks, true)
	m.logger.Info("batch loaded", logger.Fields{"tasks": len(tasks), "groups": len(filter.Groups(tasks))})
	return nil
}

// Reset очищает пакет с той же защитой, что и Load.
func (m *Manager) Reset(force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.discardLocked(force); err != nil {
		return err
	}
	m.swapLocked(nil, true)
	m.logger.Info("batch reset", nil)
	return nil
}

func (m *Manager) discardLocked(force bool) error {
	if !m.running {
		return nil
	}
	if !force {
		return ErrRunActive
	}
	inFlight := 0
	for _, t := range m.tasks {
		if t.State == model.StateDownloading || t.Eligible() {
			inFlight++
		}
	}
	m.logger.Warn("discarding batch with an active run", logger.Fields{"unfinished_tasks": inFlight})
	m.cancelRun()
	return nil
}

// swapLocked must be called with mu held.
func (m *Manager) swapLocked(tasks model.Collection, newBatch bool) {
	m.tasks = tasks
	m.version++
	if newBatch {
		m.generation++
	}
}

// Tasks returns the current collection. The slice must not be modified.
func (m *Manager) Tasks() model.Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tasks
}

func (m *Manager) Stats() stats.Stats {
	return stats.Compute(m.Tasks())
}

func (m *Manager) Groups() []string {
	return filter.Groups(m.Tasks())
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// ApplyFilter пересчитывает флаги выбора по критериям. Состояния задач не
// меняются, поэтому фильтр можно применять и во время запуска.
func (m *Manager) ApplyFilter(spec filter.Spec) (model.Collection, error) {
	return m.update(func(tasks model.Collection) (model.Collection, error) {
		return filter.Apply(tasks, spec), nil
	})
}

func (m *Manager) SetSelection(id string, selected bool) (model.Collection, error) {
	return m.update(func(tasks model.Collection) (model.Collection, error) {
		return filter.SetSelection(tasks, id, selected)
	})
}

func (m *Manager) SetAll(selected bool) (model.Collection, error) {
	return m.update(func(tasks model.Collection) (model.Collection, error) {
		return filter.SetAll(tasks, selected), nil
	})
}

func (m *Manager) update(fn func(model.Collection) (model.Collection, error)) (model.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil, ErrNoBatch
	}
	next, err := fn(m.tasks)
	if err != nil {
		return nil, err
	}
	m.swapLocked(next, false)
	return next, nil
}

// StartRun запускает скачивание всех задач, выбранных и ожидающих на момент
// вызова, и сразу возвращается. Отмена ctx на запуск не влияет: запуск
// всегда доходит до конца, если пакет не заменили принудительно.
func (m *Manager) StartRun(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrRunActive
	}
	if len(m.tasks) == 0 {
		return ErrNoBatch
	}
	eligible := len(m.tasks.Eligible())
	if eligible == 0 {
		return ErrNothingToRun
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	gen := m.generation
	opts := append(append([]scheduler.Option{}, m.opts...),
		scheduler.WithLogger(m.logger.WithFields(logger.Fields{"component": "scheduler"})),
		scheduler.WithOnUpdate(func(t model.Task) { m.merge(gen, t) }),
	)
	s := scheduler.New(m.fetcher, opts...)
	tasks := m.tasks
	done := make(chan struct{})

	m.running = true
	m.cancelRun = cancel
	m.done = done

	go func() {
		defer close(done)
		defer cancel()
		s.Run(runCtx, tasks)
		m.mu.Lock()
		m.running = false
		m.cancelRun = nil
		m.mu.Unlock()
	}()
	m.logger.Info("run scheduled", logger.Fields{"eligible": eligible, "workers": s.Concurrency()})
	return nil
}

// merge переносит обновление воркера в текущую коллекцию. Флаг выбора
// берётся из текущей версии задачи: пользователь может переключать его во
// время запуска. Обновления от отброшенного пакета игнорируются.
func (m *Manager) merge(gen uint64, t model.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	current, ok := m.tasks.Find(t.ID)
	if !ok {
		return
	}
	m.tasks, _ = m.tasks.Replace(t.WithSelected(current.Selected))
	m.version++
}

// Wait блокируется до завершения активного запуска. Без запуска
// возвращается сразу.
func (m *Manager) Wait() {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Export собирает архив из текущего снимка пакета.
func (m *Manager) Export(now time.Time) (export.Archive, error) {
	tasks := m.Tasks()
	if len(tasks) == 0 {
		return export.Archive{}, ErrNoBatch
	}
	return export.Build(tasks, now)
}

// Restore загружает пакет из снимка. Задачи, прерванные во время скачивания,
// помечаются failed: вернуть задачу в pending нельзя.
func (m *Manager) Restore(ctx context.Context, store snapshot.Store) (int, error) {
	doc, err := store.Load(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("restore snapshot: %w", err)
	}
	interrupted := 0
	tasks := doc.Tasks.Map(func(t model.Task) model.Task {
		if t.State != model.StateDownloading {
			return t
		}
		interrupted++
		failed, _ := t.Fail(interruptedCause)
		return failed
	})
	if err := m.Load(tasks, false); err != nil {
		return 0, err
	}
	m.logger.Info("batch restored from snapshot", logger.Fields{
		"tasks":       len(tasks),
		"interrupted": interrupted,
		"saved_at":    doc.SavedAt,
	})
	return len(tasks), nil
}

// Snapshot сохраняет текущее состояние, если оно изменилось с прошлого
// сохранения. Возвращает новую отметку версии.
func (m *Manager) Snapshot(ctx context.Context, store snapshot.Store, lastVersion uint64) (uint64, error) {
	m.mu.RLock()
	tasks, version := m.tasks, m.version
	m.mu.RUnlock()
	if version == lastVersion {
		return version, nil
	}
	doc := snapshot.Document{SavedAt: time.Now().UTC(), Tasks: tasks}
	if err := store.Save(ctx, doc); err != nil {
		return lastVersion, err
	}
	return version, nil
}

// SnapshotLoop периодически сохраняет состояние пакета до отмены ctx.
// Перед выходом делает последнюю запись.
func (m *Manager) SnapshotLoop(ctx context.Context, store snapshot.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var saved uint64
	save := func(ctx context.Context) {
		v, err := m.Snapshot(ctx, store, saved)
		if err != nil {
			m.logger.Error("snapshot save failed", err, nil)
			return
		}
		saved = v
	}
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			save(final)
			cancel()
			return
		case <-ticker.C:
			save(ctx)
		}
	}
}
