package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes v as an uncacheable JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks a response as never to be stored. Every response that
// carries a token or account state uses it.
func NoCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
}

type errorBody struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// writeChallenge answers a bearer-auth failure with an RFC 6750 challenge
// header and the same error as a JSON body.
func writeChallenge(w http.ResponseWriter, status int, challenge string, body errorBody) {
	w.Header().Set("WWW-Authenticate", challenge)
	WriteJSON(w, status, body)
}
