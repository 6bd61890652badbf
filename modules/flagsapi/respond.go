package flagsapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/flagkit/pkg/apikey"
	"github.com/dmitrymomot/flagkit/pkg/conditions"
	"github.com/dmitrymomot/flagkit/pkg/feature"
)

// envelope is the standard JSON response shape: exactly one of Data or
// Error is set.
type envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *errorDetail   `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, envelope{Data: data})
}

func respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	respondJSON(w, status, envelope{Error: &errorDetail{Code: code, Message: err.Error()}})
}

// classify maps domain sentinels onto HTTP statuses and stable error codes.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, feature.ErrFeatureNotFound),
		errors.Is(err, feature.ErrRuleNotFound),
		errors.Is(err, apikey.ErrKeyNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, feature.ErrFeatureExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, feature.ErrPreconditionFailed):
		return http.StatusPreconditionFailed, "precondition_failed"
	case errors.Is(err, feature.ErrInvalidFeature),
		errors.Is(err, feature.ErrInvalidRule),
		errors.Is(err, conditions.ErrInvalidCondition),
		errors.Is(err, conditions.ErrInvalidSubject),
		errors.Is(err, apikey.ErrNameRequired),
		errors.Is(err, errBadRequest):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, apikey.ErrInvalidKey),
		errors.Is(err, apikey.ErrKeyRevoked):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

var errBadRequest = errors.New("malformed request body")

// decodeBody parses a JSON request body into dst, translating decode
// failures into a validation error response.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
