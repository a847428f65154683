package stats

import "photobatch/internal/model"

// Stats — сводка по текущему пакету. Счётчики состояний считаются только по
// выбранным задачам, поэтому всегда
// Completed+Failed+Skipped+PendingSelected+Downloading <= Selected <= Total.
type Stats struct {
	Total           int `json:"total"`
	Selected        int `json:"selected"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	PendingSelected int `json:"pending_selected"`
	Downloading     int `json:"downloading"`
}

// Compute is a pure function of the collection.
func Compute(tasks model.Collection) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if !t.Selected {
			continue
		}
		s.Selected++
		switch t.State {
		case model.StateCompleted:
			s.Completed++
		case model.StateFailed:
			s.Failed++
		case model.StateSkipped:
			s.Skipped++
		case model.StatePending:
			s.PendingSelected++
		case model.StateDownloading:
			s.Downloading++
		}
	}
	return s
}

// Progress returns the finished share of the selected tasks in [0, 1].
func (s Stats) Progress() float64 {
	if s.Selected == 0 {
		return 0
	}
	return float64(s.Completed+s.Failed+s.Skipped) / float64(s.Selected)
}
