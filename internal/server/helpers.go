package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Business codes carried in the response envelope. The HTTP status is 200
// for all of them.
const (
	CodeOK         = 200
	CodeBadRequest = 400
	CodeNotFound   = 404
)

// Envelope is the response body of every /api data endpoint.
type Envelope struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// ErrorResponse is the body of transport-level errors (405, 500).
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteEnvelope writes {code:200, data} with HTTP 200.
func WriteEnvelope(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Envelope{Code: CodeOK, Data: data})
}

// WriteEnvelopeError writes {code, msg} with HTTP 200.
func WriteEnvelopeError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, http.StatusOK, Envelope{Code: code, Msg: msg})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a {code:400} envelope if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteEnvelopeError(w, CodeBadRequest, "request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteEnvelopeError(w, CodeBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
