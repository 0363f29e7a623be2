package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/dormportal/internal/errors"
	"github.com/rs/zerolog/hlog"
)

const maxRequestBodyBytes = 1 << 20

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error  apperrors.Kind `json:"error"`
	Detail string         `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its status code. Only the kind and the client-safe message leave
// the process; the cause is logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)

	event := hlog.FromRequest(r).Debug()
	if status >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.Err(err).Str("kind", string(kind)).Int("status", status).Msg("request failed")

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="dormportal"`)
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Detail: apperrors.MessageOf(err)})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.New(apperrors.KindValidation, "Invalid request body", err)
	}
	return nil
}
