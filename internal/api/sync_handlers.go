package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/cockroachdb/errors"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/jobs"
	"yoco/stocksync/internal/models/dtos/responses"
)

// SyncAll handles POST /api/v1/sync-all. ?fresh=true clears cached feeds first.
// The batch runs in the background; its summary lands in sync-batches.
func (h *Handlers) SyncAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := jobs.RunAllOptions{FreshFeeds: r.URL.Query().Get("fresh") == "true"}
		if _, err := h.deps.Services.Sync.StartAll(r.Context(), constants.TriggerManual, opts); err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusAccepted, &responses.Message{Message: constants.StatusSyncAll})
	}
}

// SyncAllWebhook handles GET|POST /hooks/sync-all?secret=...
//
// External cron services call this. The secret is compared in constant time,
// every cached feed is cleared and the batch runs in the background.
func (h *Handlers) SyncAllWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expected := h.deps.Config.API.WebhookSecret
		given := r.URL.Query().Get("secret")
		if expected == "" || subtle.ConstantTimeCompare([]byte(given), []byte(expected)) != 1 {
			h.logger.Warnw("Webhook rejected", "remote_addr", r.RemoteAddr)
			respondWithError(w, http.StatusForbidden, constants.StatusForbidden)
			return
		}

		_, err := h.deps.Services.Sync.StartAll(r.Context(), constants.TriggerScheduled, jobs.RunAllOptions{FreshFeeds: true})
		if errors.Is(err, apperrors.ErrAlreadyRunning) {
			respondWithError(w, http.StatusConflict, constants.GetSyncErrorMessage(constants.ErrCodeAlreadyRunning))
			return
		}
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		h.logger.Infow("Webhook sync-all started", "remote_addr", r.RemoteAddr)
		respondWithSuccess(w, http.StatusAccepted, &responses.Message{Message: constants.StatusBatchStarted})
	}
}

// ListSyncLogs handles GET /api/v1/sync-logs?supplier_id=&limit=
func (h *Handlers) ListSyncLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var supplierID *int64
		if v := queryInt(r, "supplier_id", 0); v > 0 {
			id := int64(v)
			supplierID = &id
		}

		logs, err := h.deps.Repo.Logs.List(r.Context(), supplierID, queryInt(r, "limit", 50))
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &logs)
	}
}

// PurgeSyncLogs handles DELETE /api/v1/sync-logs?older_than_days=30 or ?all=true
func (h *Handlers) PurgeSyncLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			deleted int64
			err     error
		)
		if r.URL.Query().Get("all") == "true" {
			deleted, err = h.deps.Repo.Logs.TruncateAll(r.Context())
		} else {
			deleted, err = h.deps.Repo.Logs.PurgeOlderThan(r.Context(), queryInt(r, "older_than_days", 30))
		}
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &responses.PurgeResult{Deleted: deleted})
	}
}

// ListSyncBatches handles GET /api/v1/sync-batches?limit=
func (h *Handlers) ListSyncBatches() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batches, err := h.deps.Repo.Batches.List(r.Context(), queryInt(r, "limit", 20))
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &batches)
	}
}
