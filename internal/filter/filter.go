package filter

import (
	"fmt"
	"time"

	"photobatch/internal/model"
)

// endOfDay — смещение конца дня для включительной верхней границы.
const endOfDay = 24*time.Hour - time.Millisecond

// Spec описывает фильтр: необязательный диапазон дат и набор разрешённых групп.
// Даты задаются без времени; End включается до 23:59:59.999 того же дня.
type Spec struct {
	Start  *time.Time
	End    *time.Time
	Groups map[string]struct{}
}

// NewSpec builds a Spec from a list of group names.
func NewSpec(start, end *time.Time, groups []string) Spec {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return Spec{Start: start, End: end, Groups: set}
}

// AllGroups returns a Spec without date bounds that allows every group in tasks.
func AllGroups(tasks model.Collection) Spec {
	return NewSpec(nil, nil, Groups(tasks))
}

// Matches сообщает, проходит ли задача фильтр.
func (s Spec) Matches(t model.Task) bool {
	if _, ok := s.Groups[t.Group]; !ok {
		return false
	}
	if s.Start == nil && s.End == nil {
		return true
	}
	// a dateless task is excluded by any active date bound
	if t.RegistrationDate == nil {
		return false
	}
	d := *t.RegistrationDate
	if s.Start != nil && d.Before(*s.Start) {
		return false
	}
	if s.End != nil && d.After(s.End.Add(endOfDay)) {
		return false
	}
	return true
}

// Apply пересчитывает флаг Selected у всех задач по фильтру. Остальные поля
// не меняются; повторное применение того же фильтра даёт тот же результат.
func Apply(tasks model.Collection, spec Spec) model.Collection {
	return tasks.Map(func(t model.Task) model.Task {
		return t.WithSelected(spec.Matches(t))
	})
}

// SetSelection — ручное включение или исключение одной задачи. Действует до
// следующего Apply.
func SetSelection(tasks model.Collection, id string, selected bool) (model.Collection, error) {
	t, ok := tasks.Find(id)
	if !ok {
		return tasks, fmt.Errorf("%w: %s", model.ErrTaskNotFound, id)
	}
	next, _ := tasks.Replace(t.WithSelected(selected))
	return next, nil
}

// SetAll выставляет Selected всем задачам без учёта групп и дат.
func SetAll(tasks model.Collection, selected bool) model.Collection {
	return tasks.Map(func(t model.Task) model.Task {
		return t.WithSelected(selected)
	})
}

// Groups returns the distinct groups in encounter order.
func Groups(tasks model.Collection) []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, t := range tasks {
		if _, ok := seen[t.Group]; ok {
			continue
		}
		seen[t.Group] = struct{}{}
		groups = append(groups, t.Group)
	}
	return groups
}
