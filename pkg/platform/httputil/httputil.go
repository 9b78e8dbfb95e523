// Package httputil holds the shared HTTP response and decode helpers.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "assettrack/pkg/domain-errors"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a coded domain error to its HTTP status and wire shape.
// Internal errors never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	var coded *dErrors.Error
	if !errors.As(err, &coded) {
		coded = dErrors.New(dErrors.CodeInternal, "internal error")
	}

	body := errorBody{Error: string(coded.Code)}
	if coded.Code != dErrors.CodeInternal {
		body.Description = coded.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(coded.Code), body)
}

// Decode strictly decodes a JSON request body into T. Unknown fields are
// rejected so a misspelled field cannot silently no-op. On failure it writes
// the error response and returns false.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		logger.WarnContext(r.Context(), "request decode failed", "error", err)
		WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "malformed request body"))
		var zero T
		return zero, false
	}
	return v, true
}
