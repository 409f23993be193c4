package router

import (
	"go-ledger-engine/handler"
	"net/http"
)

// NewRouter wires the monitoring surface. The engine exposes no synchronous
// write API; all mutation is queue-driven.
func NewRouter() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", handler.HealthCheck)

	return mux
}
