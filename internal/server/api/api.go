// Package api provides the HTTP handlers for brush settings, edit history,
// drawings and camera selection.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
)

// errNotJSON is returned by decodeBody for requests not sent as application/json.
var errNotJSON = errors.New("Content-Type must be application/json")

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v unchanged.
// The request must declare Content-Type application/json.
func decodeBody(r *http.Request, v interface{}) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errNotJSON
	}
	if r.Body == nil {
		return nil
	}
	err = json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeBodyError reports a decodeBody failure.
func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotJSON) {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid JSON body")
}
