// Package web provides shared HTTP helpers: response envelopes, request
// parsing and router middleware.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// envelope is the uniform error body: {"message": ..., "code": ...}.
type envelope struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RespondJSON writes the payload as-is with the given status code.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondData wraps the payload in the success envelope {"data": ...}.
func RespondData(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	RespondJSON(w, logger, status, map[string]any{"data": payload})
}

// RespondError writes the error envelope {"message": ..., "code": ...} with a
// matching HTTP status code.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, envelope{Message: message, Code: status})
}

// RespondValidationErrors maps a validator error to a 422 response with a
// per-field message list. Returns false if err is not a validation error, in
// which case nothing is written.
func RespondValidationErrors(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false
	}
	fields := make(map[string]string)
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	RespondJSON(w, logger, http.StatusUnprocessableEntity, map[string]any{
		"message": "The given data was invalid.",
		"code":    http.StatusUnprocessableEntity,
		"errors":  fields,
	})
	return true
}

// ParseID extracts and validates the numeric ID from the request path.
// Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	pathValueID := r.PathValue("id")
	id, err := strconv.ParseInt(pathValueID, 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid ID: %s", pathValueID))
		return 0, false
	}
	return id, true
}
