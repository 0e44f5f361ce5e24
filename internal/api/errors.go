package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/voicebridge/internal/bridges/homekit"
	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/store"
)

// Error is the wire shape of a single API failure.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorEnvelope wraps Error so every failure body has the same shape.
type errorEnvelope struct {
	Error Error `json:"error"`
}

// Values for the envelope's code field.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeValidation = "validation_error"
	ErrCodeBridge     = "bridge_error"
	ErrCodeStorage    = "storage_error"
	ErrCodeHub        = "hub_error"
	ErrCodeInternal   = "internal_error"
)

// writeJSON serialises v as the response body under the given status.
// A nil v sends the status line alone.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // nowhere to report a failed response write
		json.NewEncoder(w).Encode(v)
	}
}

// writeError sends the error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: Error{
		Status:  status,
		Code:    code,
		Message: message,
	}})
}

// Shorthands for the statuses handlers produce directly.

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCommandError maps a store/domain error onto the response envelope.
//
// Validation failures are 400 validation_error; bridge conditions map to
// 404/502 bridge_error; storage faults are 500 storage_error. Anything
// unrecognised is a 500 internal_error.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, homekit.ErrNoBridge),
		errors.Is(err, homekit.ErrInvalidMergeMode):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, homekit.ErrBridgeNotFound),
		errors.Is(err, store.ErrUnknownBridge):
		writeError(w, http.StatusNotFound, ErrCodeBridge, err.Error())
	case errors.Is(err, homekit.ErrBridgeRejected):
		writeError(w, http.StatusBadGateway, ErrCodeBridge, err.Error())
	case errors.Is(err, store.ErrStorage):
		s.logger.Error("storage failure", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeStorage, "storage failure")
	default:
		s.logger.Error("command failed", "error", err)
		writeInternalError(w, "internal server error")
	}
}

// writeHubError maps a hub passthrough failure to 502 hub_error.
func (s *Server) writeHubError(w http.ResponseWriter, err error) {
	s.logger.Error("hub request failed", "error", err)
	writeError(w, http.StatusBadGateway, ErrCodeHub, err.Error())
}

// isValidationError checks whether an error is an exposure validation error.
// The validators wrap several sentinels (ErrInvalidMode, ErrInvalidEntityID,
// etc.) so we check all of them rather than a single root.
func isValidationError(err error) bool {
	return errors.Is(err, exposure.ErrInvalidMode) ||
		errors.Is(err, exposure.ErrInvalidFilterMode) ||
		errors.Is(err, exposure.ErrInvalidAssistant) ||
		errors.Is(err, exposure.ErrInvalidEntityID) ||
		errors.Is(err, exposure.ErrInvalidDomain) ||
		errors.Is(err, exposure.ErrInvalidDeviceID) ||
		errors.Is(err, exposure.ErrInvalidAlias) ||
		errors.Is(err, exposure.ErrInvalidSettings) ||
		errors.Is(err, exposure.ErrInvalidBulkAction) ||
		errors.Is(err, exposure.ErrTooManyEntities) ||
		errors.Is(err, exposure.ErrAliasesUnsupported)
}
