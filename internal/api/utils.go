package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"photobatch/internal/export"
	"photobatch/internal/ingest"
	"photobatch/internal/manager"
	"photobatch/internal/model"
)

// WriteJSONError отправляет JSON-ответ с полем "error" и заданным статусом.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RespondWithJSON отправляет JSON-ответ.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrParse), errors.Is(err, ingest.ErrNoUsableRows), errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrRunActive):
		return http.StatusConflict
	case errors.Is(err, export.ErrNothingToExport), errors.Is(err, manager.ErrNoBatch), errors.Is(err, manager.ErrNothingToRun):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	WriteJSONError(w, code, msg)
}
