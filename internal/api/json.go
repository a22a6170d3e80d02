package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the domain error taxonomy onto HTTP statuses. The
// error's own message is surfaced: failed mutations must say which
// constraint broke and on which entity, not "internal error".
func writeError(w http.ResponseWriter, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:      ve.Error(),
			Violations: ve.Violations,
		})
		return
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrDuplicateName), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrFormat), errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrReference):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
