package http

import (
	"log"
	"net/http"

	"ledgerlink/internal/domain/sync"
	"ledgerlink/internal/shared/middleware"
)

type SyncHandler struct {
	syncService *sync.Service
	store       sync.Store
}

func NewSyncHandler(syncService *sync.Service, store sync.Store) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		store:       store,
	}
}

type itemSyncResult struct {
	ItemID  string        `json:"itemId"`
	Summary *sync.Summary `json:"summary,omitempty"`
	Error   string        `json:"error,omitempty"`
	Kind    sync.Kind     `json:"kind,omitempty"`
}

type syncAllResponse struct {
	Synced  int              `json:"synced"`
	Failed  int              `json:"failed"`
	Results []itemSyncResult `json:"results"`
}

// HandleSyncAll runs a sync for every item linked to the calling user and
// reports per-item outcomes. One item failing does not stop the others.
func (h *SyncHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	results, err := h.syncService.SyncUserItems(r.Context(), userID)
	if err != nil {
		log.Printf("Error syncing items for user %d: %v", userID, err)
		writeSyncError(w, err)
		return
	}

	resp := syncAllResponse{Results: make([]itemSyncResult, 0, len(results))}
	for _, res := range results {
		item := itemSyncResult{ItemID: res.ItemID, Summary: res.Summary}
		if res.Err != nil {
			item.Error = res.Err.Error()
			item.Kind = sync.KindOf(res.Err)
			resp.Failed++
		} else {
			resp.Synced++
		}
		resp.Results = append(resp.Results, item)
	}

	status := http.StatusOK
	if resp.Failed > 0 && resp.Synced == 0 && len(results) > 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// HandleSyncItem runs a sync for one item owned by the calling user.
func (h *SyncHandler) HandleSyncItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itemID := r.PathValue("id")
	if itemID == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	item, err := h.store.GetItemInfo(r.Context(), itemID)
	if err != nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	if item.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	summary, err := h.syncService.SyncItem(r.Context(), itemID)
	if err != nil {
		log.Printf("Error syncing item %s: %v", itemID, err)
		writeSyncError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
