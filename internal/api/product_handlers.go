package api

import (
	"encoding/json"
	"net/http"

	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/dtos/requests"
	"yoco/stocksync/internal/models/dtos/responses"
)

// CheckStock handles POST /api/v1/products/{id}/check-stock
func (h *Handlers) CheckStock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidEntryID)
			return
		}

		check, err := h.deps.Services.Sync.CheckProduct(r.Context(), entryID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, check)
	}
}

// Reconcile handles POST /api/v1/products/{id}/reconcile.
// Stock change hooks of the catalog call this after the product's own stock moved.
func (h *Handlers) Reconcile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidEntryID)
			return
		}

		changed, err := h.deps.Services.Backorder.Reconcile(r.Context(), entryID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &responses.ReconcileResult{EntryID: entryID, Changed: changed})
	}
}

// SetSyncEnabled handles PUT /api/v1/products/{id}/sync-enabled
func (h *Handlers) SetSyncEnabled() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidEntryID)
			return
		}

		var req requests.SyncEnabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidBody)
			return
		}

		backorder := h.deps.Services.Backorder
		var err error
		if *req.Enabled {
			err = backorder.EnableSync(r.Context(), entryID)
		} else {
			err = backorder.DisableSync(r.Context(), entryID)
		}
		if err != nil {
			respondWithAppError(w, err)
			return
		}

		entry, err := h.deps.Repo.Catalog.GetEntry(r.Context(), entryID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, entry)
	}
}

// SupplierStock handles GET /api/v1/products/{id}/supplier-stock
func (h *Handlers) SupplierStock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidEntryID)
			return
		}

		facts, err := h.deps.Repo.Stock.FactsFor(r.Context(), entryID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &facts)
	}
}
