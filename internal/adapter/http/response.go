package http

import (
	"encoding/json"
	"net/http"

	"github.com/girrex/suivi/internal/logger"
	apperror "github.com/girrex/suivi/pkg/error"
)

// Envelope is the body of every JSON response
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Code    string      `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope)
}

func writeSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, Envelope{Status: true, Message: message, Data: data})
}

func writeAppError(w http.ResponseWriter, appErr *apperror.AppError) {
	writeJSON(w, appErr.Status, Envelope{Status: false, Message: appErr.Message, Code: appErr.Code})
}

// writeError maps err to a status code. Unexpected errors are logged, not shown.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	appErr := apperror.MapError(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeAppError(w, appErr)
}
