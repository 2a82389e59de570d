package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// WriteJSON marshals data and writes it with the given status code. The
// payload is marshalled before any header goes out, so a marshalling
// failure still yields a clean 500 instead of a truncated body under a
// success status.
func WriteJSON(w http.ResponseWriter, data any, statusCode int) (int, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return 0, fmt.Errorf("marshalling response body: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return w.Write(encoded)
}
