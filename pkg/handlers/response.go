package handlers

import (
	"encoding/json"
	"net/http"
)

// maxRequestBodyBytes caps JSON request bodies.
const maxRequestBodyBytes = 1 << 20

// ErrorResponse writes a JSON {"error": message} response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{"error": message})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// handle registers h for method+path and for the same path under /api,
// the prefix browser clients use.
func handle(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path, h)
	mux.HandleFunc(method+" /api"+path, h)
}

// Routes lists every JSON route without the /api prefix. Used to label metrics.
var Routes = []string{
	"/health",
	"/ping",
	"/databases",
	"/tables",
	"/columns",
	"/query",
	"/history",
	"/metrics",
	"/mcp",
}
