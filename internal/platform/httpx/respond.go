// Package httpx provides the JSON response envelope and error translation
// used by every handler. All responses share the shape
// {"status_code": n, "message": s, "data": ...} plus optional extra fields.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope writes the standard response envelope.
func Envelope(w http.ResponseWriter, status int, message string, data any) {
	EnvelopeExtra(w, status, message, data, nil)
}

// EnvelopeExtra writes the standard envelope with additional top-level
// fields merged in.
func EnvelopeExtra(w http.ResponseWriter, status int, message string, data any, extra map[string]any) {
	body := map[string]any{
		"status_code": status,
		"message":     message,
		"data":        data,
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
