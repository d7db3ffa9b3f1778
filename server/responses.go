package server

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/pkg/errors"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 20
)

// OAuth2 and API error codes written in the "error" field
const (
	errorInvalidRequest       = "invalid_request"
	errorInvalidGrant         = "invalid_grant"
	errorUnsupportedGrantType = "unsupported_grant_type"
	errorUnauthorized         = "unauthorized"
	errorForbidden            = "forbidden"
	errorNotFound             = "not_found"
	errorConflict             = "conflict"
	errorServerError          = "server_error"
)

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": errorCode, "error_description": description})
}

// writeError maps a service error onto the JSON error body. Internal errors
// are logged and never echoed to the caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	code := errorServerError
	description := err.Error()

	switch status {
	case http.StatusBadRequest:
		code = errorInvalidRequest
	case http.StatusUnauthorized:
		code = errorUnauthorized
	case http.StatusForbidden:
		code = errorForbidden
	case http.StatusNotFound:
		code = errorNotFound
	case http.StatusConflict:
		code = errorConflict
	default:
		s.logger.Err(err).Str("path", r.URL.Path).Msg("request failed")
		description = "internal server error"
	}
	writeJSONError(w, code, description, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("body", "request body is required")
		}
		return apperrors.Validation("body", "malformed JSON")
	}
	return nil
}
