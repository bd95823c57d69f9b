package main

import (
	"net/http"

	httphandlers "ledgerlink/internal/interfaces/http"
	"ledgerlink/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Identified routes
	identify := middleware.Identify

	mux.Handle("/api/transactions/sync", identify(http.HandlerFunc(deps.SyncHandler.HandleSyncAll)))
	mux.Handle("/api/items/{id}/sync", identify(http.HandlerFunc(deps.SyncHandler.HandleSyncItem)))
	mux.Handle("/api/transactions/list", identify(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))

	// Apply global middleware
	return middleware.Logging(middleware.Tracing(mux))
}
