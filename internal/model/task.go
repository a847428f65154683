package model

import (
	"errors"
	"fmt"
	"time"

	"photobatch/internal/naming"
	"photobatch/internal/util"
)

// State описывает этап жизненного цикла задачи. Переходы возможны только
// вперёд: pending → downloading → completed | failed, а также pending → skipped.
type State string

const (
	StatePending     State = "pending"
	StateDownloading State = "downloading"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateSkipped     State = "skipped"
)

var (
	ErrInvalidTransition = errors.New("invalid task state transition")
	ErrTaskNotFound      = errors.New("task not found")
)

// Task — одна строка исходной таблицы: участник, ссылка на фото и результат
// скачивания. Значение неизменяемо по соглашению: методы перехода возвращают
// новую копию, исходная не меняется.
type Task struct {
	ID               string     `json:"id"`
	Group            string     `json:"group"`
	DisplayName      string     `json:"display_name"`
	SourceURL        string     `json:"source_url"`
	TargetName       string     `json:"target_name"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
	Selected         bool       `json:"selected"`
	State            State      `json:"state"`
	ErrorDetail      string     `json:"error_detail,omitempty"`
	Payload          []byte     `json:"payload,omitempty"`
}

// NewTask создаёт задачу в состоянии pending. Имя файла вычисляется здесь
// один раз и больше никогда не пересчитывается.
func NewTask(group, displayName, sourceURL string, registered *time.Time) Task {
	return Task{
		ID:               util.GenerateID(),
		Group:            group,
		DisplayName:      displayName,
		SourceURL:        sourceURL,
		TargetName:       naming.Normalize(displayName),
		RegistrationDate: registered,
		Selected:         true,
		State:            StatePending,
	}
}

// Eligible сообщает, попадёт ли задача в следующий запуск.
func (t Task) Eligible() bool {
	return t.State == StatePending && t.Selected
}

// Terminal is true for completed, failed and skipped tasks.
func (t Task) Terminal() bool {
	switch t.State {
	case StateCompleted, StateFailed, StateSkipped:
		return true
	}
	return false
}

// WithSelected меняет только флаг выбора; состояние и payload не трогаются.
func (t Task) WithSelected(selected bool) Task {
	t.Selected = selected
	return t
}

// Start переводит задачу pending → downloading.
func (t Task) Start() (Task, error) {
	if t.State != StatePending {
		return t, transitionError(t.State, StateDownloading)
	}
	t.State = StateDownloading
	return t, nil
}

// Complete сохраняет скачанные данные. Допустим только из downloading.
func (t Task) Complete(payload []byte) (Task, error) {
	if t.State != StateDownloading {
		return t, transitionError(t.State, StateCompleted)
	}
	if len(payload) == 0 {
		return t, fmt.Errorf("%w: completed task requires a payload", ErrInvalidTransition)
	}
	t.State = StateCompleted
	t.Payload = payload
	t.ErrorDetail = ""
	return t, nil
}

// Fail фиксирует причину ошибки. Допустим только из downloading.
func (t Task) Fail(cause string) (Task, error) {
	if t.State != StateDownloading {
		return t, transitionError(t.State, StateFailed)
	}
	if cause == "" {
		cause = "unknown error"
	}
	t.State = StateFailed
	t.ErrorDetail = cause
	t.Payload = nil
	return t, nil
}

// Skip исключает задачу из обработки. Только из pending.
func (t Task) Skip() (Task, error) {
	if t.State != StatePending {
		return t, transitionError(t.State, StateSkipped)
	}
	t.State = StateSkipped
	return t, nil
}

// Strip returns the task without its payload. Used when listing tasks.
func (t Task) Strip() Task {
	t.Payload = nil
	return t
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
