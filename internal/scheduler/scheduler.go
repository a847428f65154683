package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"photobatch/internal/download"
	"photobatch/internal/logger"
	"photobatch/internal/metrics"
	"photobatch/internal/model"
)

const DefaultConcurrency = 10

// Scheduler скачивает изображения пула задач силами не более чем K
// одновременных воркеров. Ошибка отдельной задачи записывается в саму
// задачу и никогда не прерывает запуск.
type Scheduler struct {
	fetcher       download.Fetcher
	concurrency   int
	fetchTimeout  time.Duration
	minImageBytes int
	logger        logger.Logger
	metrics       *metrics.Metrics
	onUpdate      func(model.Task)
}

type Option func(*Scheduler)

// WithConcurrency задаёт K. Значения меньше 1 приводятся к 1.
func WithConcurrency(k int) Option {
	return func(s *Scheduler) {
		if k < 1 {
			k = 1
		}
		s.concurrency = k
	}
}

// WithFetchTimeout ограничивает время одного скачивания. 0 — без ограничения.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.fetchTimeout = d }
}

// WithMinImageBytes sets the size threshold for untyped binary responses.
func WithMinImageBytes(n int) Option {
	return func(s *Scheduler) { s.minImageBytes = n }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithOnUpdate регистрирует обработчик, получающий каждую новую версию задачи.
// Вызывается из горутин воркеров; после возврата Run вызовов больше нет.
func WithOnUpdate(fn func(model.Task)) Option {
	return func(s *Scheduler) { s.onUpdate = fn }
}

func New(fetcher download.Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Concurrency returns the configured number of workers.
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// Run обрабатывает все задачи, которые были pending и selected в момент
// вызова. Изменения флагов выбора после этого на запуск не влияют. Run
// возвращает итоговую коллекцию только когда все воркеры опустошили очередь
// и все скачивания завершились.
func (s *Scheduler) Run(ctx context.Context, tasks model.Collection) model.Collection {
	ids := tasks.Eligible()
	if len(ids) == 0 {
		return tasks
	}

	queue := make(chan string, len(ids))
	for _, id := range ids {
		queue <- id
	}
	close(queue)

	workers := s.concurrency
	if workers > len(ids) {
		workers = len(ids)
	}

	started := time.Now()
	s.metrics.RunStarted()
	s.logger.Info("download run started", logger.Fields{"tasks": len(ids), "workers": workers})

	state := &runState{tasks: tasks}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for id := range queue {
				s.process(ctx, state, id, worker)
			}
		}(i)
	}
	wg.Wait()

	final := state.snapshot()
	elapsed := time.Since(started)
	s.metrics.RunFinished(elapsed)
	completed, failed := countOutcomes(final, ids)
	s.logger.Info("download run finished", logger.Fields{
		"tasks":       len(ids),
		"completed":   completed,
		"failed":      failed,
		"duration_ms": elapsed.Milliseconds(),
	})
	return final
}

// process выполняет одну задачу строго по шагам: fetch → validate → record.
func (s *Scheduler) process(ctx context.Context, state *runState, id string, worker int) {
	task, ok := state.get(id)
	if !ok {
		return
	}
	log := s.logger.WithFields(logger.Fields{"task_id": id, "worker": worker, "group": task.Group})

	downloading, err := task.Start()
	if err != nil {
		log.Error("task cannot start", err, nil)
		return
	}
	s.publish(state, downloading)

	begin := time.Now()
	s.metrics.FetchStarted()
	payload, fetchErr := s.fetch(ctx, downloading.SourceURL)

	var final model.Task
	outcome := string(model.StateCompleted)
	if fetchErr != nil {
		outcome = string(download.KindOf(fetchErr))
		final, err = downloading.Fail(download.Cause(fetchErr))
		log.Warn("image fetch failed", logger.Fields{"url": downloading.SourceURL, "cause": final.ErrorDetail})
	} else {
		final, err = downloading.Complete(payload)
		log.Debug("image fetched", logger.Fields{"bytes": len(payload)})
	}
	s.metrics.FetchFinished(outcome, time.Since(begin))
	if err != nil {
		// only reachable on an invariant break; keep the task observable as failed
		final, _ = downloading.Fail(err.Error())
	}
	s.publish(state, final)
}

// fetch isolates the fetcher: timeouts, panics and invalid content all come back as errors.
func (s *Scheduler) fetch(ctx context.Context, rawURL string) (payload []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &download.Error{Kind: download.KindNetwork, Detail: fmt.Sprintf("fetcher panic: %v", r)}
		}
	}()
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	res, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := download.Validate(res, s.minImageBytes); err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (s *Scheduler) publish(state *runState, t model.Task) {
	state.put(t)
	if s.onUpdate != nil {
		s.onUpdate(t)
	}
}

// runState — общая коллекция запуска. Каждая запись заменяет задачу целиком
// (copy-on-write), поэтому снимок всегда согласован.
type runState struct {
	mu    sync.RWMutex
	tasks model.Collection
}

func (r *runState) get(id string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks.Find(id)
}

func (r *runState) put(t model.Task) {
	r.mu.Lock()
	r.tasks, _ = r.tasks.Replace(t)
	r.mu.Unlock()
}

func (r *runState) snapshot() model.Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks
}

func countOutcomes(tasks model.Collection, ids []string) (completed, failed int) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, t := range tasks {
		if _, ok := want[t.ID]; !ok {
			continue
		}
		switch t.State {
		case model.StateCompleted:
			completed++
		case model.StateFailed:
			failed++
		}
	}
	return completed, failed
}
