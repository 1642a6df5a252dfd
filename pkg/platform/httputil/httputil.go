package httputil

import (
	"encoding/json"
	"net/http"

	domainerrors "aquicultura/pkg/domainerrors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorEnvelope is the JSON error body shared by every endpoint.
type ErrorEnvelope struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteError translates a domain error into the JSON error envelope.
// Non-domain errors answer 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	status := domainerrors.ToHTTPStatus(code)
	detail := ""
	if code != domainerrors.CodeInternal {
		detail = err.Error()
	}
	WriteJSON(w, status, ErrorEnvelope{Error: string(code), Detail: detail})
}
