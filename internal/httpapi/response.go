package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/logger"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and writes the error envelope.
// Storage failures are logged with their cause and answered opaquely.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, action string, err error) {
	requestID := logger.RequestIDFrom(r.Context())
	kind := apperror.KindOf(err)

	if kind == apperror.Storage {
		log.Error(action, "Request failed", requestID, err, map[string]interface{}{
			"path": r.URL.Path,
		})
	} else {
		log.Debug(action, "Request rejected", requestID, map[string]interface{}{
			"path":  r.URL.Path,
			"kind":  kind.String(),
			"error": err.Error(),
		})
	}

	WriteJSON(w, apperror.HTTPStatus(kind), ErrorResponse{
		Message:   apperror.Message(err),
		RequestID: requestID,
	})
}

// DecodeJSON reads a JSON body into dst. Malformed bodies are validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationError{Field: "body", Message: "request body is required"}
		}
		return apperror.ValidationError{Field: "body", Message: "invalid JSON format"}
	}
	return nil
}

// ParseID parses a positive integer path parameter
func ParseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return id, nil
}
