package handler

import (
	"encoding/json"
	"net/http"
)

// HealthCheck reports that the engine process is up. Liveness only; readiness
// of the queue and database surfaces through the logs and the consumer loop.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ledger engine is healthy and running"})
}
