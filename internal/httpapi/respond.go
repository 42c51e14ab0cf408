// Package httpapi exposes the audit engine over HTTP: session lifecycle,
// response retrieval, and on-demand citation analysis.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with status and content-type.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": ...} envelope every failure path uses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
