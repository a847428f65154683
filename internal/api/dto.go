package api

import (
	"photobatch/internal/model"
	"photobatch/internal/stats"
)

type FilterRequest struct {
	StartDate *string  `json:"start_date"`
	EndDate   *string  `json:"end_date"`
	Groups    []string `json:"groups"`
}

type SelectionRequest struct {
	Selected bool `json:"selected"`
}

// BatchResponse — список задач без payload и сводка по пакету.
type BatchResponse struct {
	Tasks   model.Collection `json:"tasks"`
	Stats   stats.Stats      `json:"stats"`
	Groups  []string         `json:"groups"`
	Running bool             `json:"running"`
}

type StatsResponse struct {
	stats.Stats
	Progress float64 `json:"progress"`
	Running  bool    `json:"running"`
}

type RunResponse struct {
	Status   string `json:"status"`
	Eligible int    `json:"eligible"`
	TraceID  string `json:"trace_id,omitempty"`
}
