package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/beamlab/piezo-core/internal/axis"
	"github.com/beamlab/piezo-core/internal/steering"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeCommandRejected = "command_rejected"
	ErrCodeInternal        = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCommandError maps coordinator and controller errors onto HTTP
// responses. Rejections carry the machine-readable reason so UIs can
// distinguish a settle window from an interlock without parsing prose.
func writeCommandError(w http.ResponseWriter, err error) {
	if rej, ok := axis.IsRejected(err); ok {
		writeJSON(w, http.StatusConflict, Error{
			Status:  http.StatusConflict,
			Code:    ErrCodeCommandRejected,
			Message: rej.Error(),
			Reason:  string(rej.Reason),
		})
		return
	}

	var mismatch *axis.MismatchSerialError
	var count *axis.DeviceCountError
	switch {
	case errors.Is(err, steering.ErrUnknownAxis):
		writeNotFound(w, err.Error())
	case errors.Is(err, axis.ErrInvalidSerial):
		writeBadRequest(w, err.Error())
	case errors.As(err, &mismatch), errors.As(err, &count):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, axis.ErrStopped):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
