package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, Response{Error: &ErrorInfo{Message: message, Code: code}})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message, config.CodeBadRequest)
}

// writeStoreError maps store sentinels onto HTTP statuses. Anything unknown
// is logged and reported as a 500 without details.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, config.HTTPMsgNotFound, config.CodeNotFound)
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, config.HTTPMsgDuplicate, config.CodeConflict)
	case errors.Is(err, store.ErrInvalid):
		writeBadRequest(w, err.Error())
	default:
		slog.ErrorContext(r.Context(), config.ErrDBQuery,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPath, r.URL.Path,
			config.LogKeyRequestID, r.Header.Get(config.HeaderRequestID),
			config.LogKeyError, err,
		)
		writeError(w, http.StatusInternalServerError, config.HTTPMsgInternalErr, config.CodeInternal)
	}
}
