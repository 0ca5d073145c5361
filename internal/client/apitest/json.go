package apitest

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"code","message"}; empty fields are omitted so callers
// can exercise the client's fallbacks.
func writeError(w http.ResponseWriter, status int, code, message string) {
	body := map[string]string{}
	if code != "" {
		body["code"] = code
	}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}
