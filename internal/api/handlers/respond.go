package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// queryInt reads a positive integer query parameter, def when absent
func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// queryDate reads a YYYY-MM-DD query parameter, def when absent
func queryDate(r *http.Request, key string, def time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	t, err := time.Parse(contracts.DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
