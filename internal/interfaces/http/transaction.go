package http

import (
	"log"
	"net/http"
	"strconv"

	"ledgerlink/internal/domain/sync"
	"ledgerlink/internal/shared/middleware"
)

const defaultListLimit = 100

type TransactionHandler struct {
	store sync.Store
}

func NewTransactionHandler(store sync.Store) *TransactionHandler {
	return &TransactionHandler{store: store}
}

// HandleListTransactions returns the calling user's stored transactions,
// newest first.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	transactions, err := h.store.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		log.Printf("Error listing transactions for user %d: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}
