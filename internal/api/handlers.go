package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"photobatch/internal/filter"
	"photobatch/internal/ingest"
	"photobatch/internal/logger"
	"photobatch/internal/manager"
)

const (
	DefaultMaxUploadBytes = 32 << 20
	maxJSONBodyBytes      = 1 << 20
	dateLayout            = "2006-01-02"
)

// BatchHandler обслуживает единственный пакет задач, которым владеет manager.
type BatchHandler struct {
	manager   *manager.Manager
	maxUpload int64
	now       func() time.Time
}

// NewBatchHandler - конструктор. maxUpload <= 0 означает DefaultMaxUploadBytes.
func NewBatchHandler(m *manager.Manager, maxUpload int64) *BatchHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &BatchHandler{manager: m, maxUpload: maxUpload, now: time.Now}
}

func (h *BatchHandler) batchResponse() BatchResponse {
	tasks := h.manager.Tasks()
	return BatchResponse{
		Tasks:   tasks.Stripped(),
		Stats:   h.manager.Stats(),
		Groups:  h.manager.Groups(),
		Running: h.manager.Running(),
	}
}

func forceParam(r *http.Request) bool {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	return force
}

// Upload принимает multipart-поле "file" (.xlsx, .xlsm или .csv) и заменяет текущий пакет.
func (h *BatchHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := loggerFromContext(r.Context()).WithFields(logger.Fields{"handler": "Upload"})

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		log.Warn("Failed to parse multipart form", logger.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Expected a multipart form with a 'file' field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		log.Warn("Multipart field 'file' missing", logger.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Field 'file' is required")
		return
	}
	defer file.Close()

	log = log.WithFields(logger.Fields{"filename": header.Filename, "size": header.Size})
	tasks, err := ingest.Load(file, header.Filename)
	if err != nil {
		log.Warn("Source document rejected", logger.Fields{"error": err.Error()})
		writeDomainError(w, err)
		return
	}
	if err := h.manager.Load(tasks, forceParam(r)); err != nil {
		log.Warn("Batch replace refused", logger.Fields{"error": err.Error()})
		writeDomainError(w, err)
		return
	}
	log.Info("Batch uploaded", logger.Fields{"tasks": len(tasks)})
	RespondWithJSON(w, http.StatusCreated, h.batchResponse())
}

func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, h.batchResponse())
}

func (h *BatchHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Stats()
	RespondWithJSON(w, http.StatusOK, StatsResponse{Stats: s, Progress: s.Progress(), Running: h.manager.Running()})
}

// ApplyFilter пересчитывает выбор по датам и группам. Без поля groups
// учитываются все группы; пустой массив не выбирает ничего.
func (h *BatchHandler) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	log := loggerFromContext(r.Context()).WithFields(logger.Fields{"handler": "ApplyFilter"})

	var req FilterRequest
	if err := h.readBody(r, filterBodySchema, &req); err != nil {
		log.Warn("Invalid filter request", logger.Fields{"error": err.Error()})
		writeDomainError(w, err)
		return
	}
	start, err := parseDay(req.StartDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	end, err := parseDay(req.EndDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	groups := req.Groups
	if groups == nil {
		groups = h.manager.Groups()
	}

	if _, err := h.manager.ApplyFilter(filter.NewSpec(start, end, groups)); err != nil {
		writeDomainError(w, err)
		return
	}
	s := h.manager.Stats()
	log.Info("Filter applied", logger.Fields{"selected": s.Selected, "total": s.Total})
	RespondWithJSON(w, http.StatusOK, h.batchResponse())
}

// SetAll выбирает или снимает выбор со всех задач.
func (h *BatchHandler) SetAll(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := h.readBody(r, selectionBodySchema, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := h.manager.SetAll(req.Selected); err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, h.manager.Stats())
}

func (h *BatchHandler) SetTaskSelection(w http.ResponseWriter, r *http.Request) {
	log := loggerFromContext(r.Context()).WithFields(logger.Fields{"handler": "SetTaskSelection"})

	id := chi.URLParam(r, "taskID")
	var req SelectionRequest
	if err := h.readBody(r, selectionBodySchema, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	tasks, err := h.manager.SetSelection(id, req.Selected)
	if err != nil {
		log.Warn("Selection toggle failed", logger.Fields{"task_id": id, "error": err.Error()})
		writeDomainError(w, err)
		return
	}
	task, _ := tasks.Find(id)
	RespondWithJSON(w, http.StatusOK, task.Strip())
}

// Run запускает скачивание и сразу отвечает 202. Ход выполнения виден через GET /batch/stats.
func (h *BatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	log := loggerFromContext(r.Context()).WithFields(logger.Fields{"handler": "Run"})

	eligible := h.manager.Stats().PendingSelected
	if err := h.manager.StartRun(r.Context()); err != nil {
		log.Warn("Run not started", logger.Fields{"error": err.Error()})
		writeDomainError(w, err)
		return
	}
	log.Info("Run started", logger.Fields{"eligible": eligible})
	RespondWithJSON(w, http.StatusAccepted, RunResponse{
		Status:   "started",
		Eligible: eligible,
		TraceID:  traceIDFromContext(r.Context()),
	})
}

func (h *BatchHandler) Export(w http.ResponseWriter, r *http.Request) {
	log := loggerFromContext(r.Context()).WithFields(logger.Fields{"handler": "Export"})

	archive, err := h.manager.Export(h.now())
	if err != nil {
		log.Warn("Export refused", logger.Fields{"error": err.Error()})
		writeDomainError(w, err)
		return
	}
	log.Info("Archive built", logger.Fields{"files": archive.Files, "bytes": len(archive.Bytes)})
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Bytes)))
	w.WriteHeader(http.StatusOK)
	w.Write(archive.Bytes)
}

func (h *BatchHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Reset(forceParam(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BatchHandler) readBody(r *http.Request, schema *jsonschema.Schema, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return decodeValidated(schema, body, dst)
}

func parseDay(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, *s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", errInvalidBody, *s)
	}
	return &t, nil
}
