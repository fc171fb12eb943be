package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/conduit-lang/relstore/internal/orm/store"
	"github.com/conduit-lang/relstore/internal/orm/validation"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func renderJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// renderError maps store errors onto HTTP statuses
func renderError(w http.ResponseWriter, err error) {
	var valErr *validation.ValidationErrors
	if errors.As(err, &valErr) {
		renderJSON(w, http.StatusUnprocessableEntity, valErr)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrUnknownModel):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrUnknownIndex),
		errors.Is(err, store.ErrInvalidID),
		errors.Is(err, store.ErrInvalidCommand),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	}

	renderJSON(w, status, &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    errorCode(status),
	})
}

func errorCode(status int) string {
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
