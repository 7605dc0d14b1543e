package api

import (
	"net/http"

	"yoco/stocksync/internal/auth"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/dtos/responses"
)

// ListSuppliers handles GET /api/v1/suppliers
func (h *Handlers) ListSuppliers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		configs, err := h.deps.Repo.Configs.ListConfigs(ctx)
		if err != nil {
			respondWithAppError(w, err)
			return
		}

		summaries := make([]responses.SupplierSummary, 0, len(configs))
		for i := range configs {
			cfg := &configs[i]
			summary := responses.SupplierSummary{
				ID:              cfg.ID,
				Name:            cfg.Name,
				Mode:            cfg.Mode(),
				Source:          cfg.Source(),
				Active:          cfg.IsActive,
				Usable:          cfg.Usable(),
				MatchOn:         string(cfg.MatchField()),
				UpdateFrequency: cfg.UpdateFrequency,
				UpdateTimes:     cfg.UpdateTimes,
			}
			if next, err := h.deps.Services.Scheduler.NextRun(ctx, cfg.ID); err == nil {
				summary.NextRunAt = next
			}
			total, available, err := h.deps.Repo.Stock.CountBySupplier(ctx, cfg.ID)
			if err != nil {
				h.logger.Warnw("Failed to count supplier stock", "supplier_id", cfg.ID, "error", err)
			}
			summary.TotalProducts = total
			summary.AvailableProducts = available
			summaries = append(summaries, summary)
		}
		respondWithSuccess(w, http.StatusOK, &summaries)
	}
}

// SyncSupplier handles POST /api/v1/suppliers/{id}/sync
func (h *Handlers) SyncSupplier() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidSupplierID)
			return
		}

		h.logger.Infow("Manual supplier sync requested", "supplier_id", supplierID, "subject", auth.Subject(r.Context()))
		result, err := h.deps.Services.Sync.RunSync(r.Context(), supplierID, constants.TriggerManual)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, result)
	}
}

// TestFeed handles POST /api/v1/suppliers/{id}/test-feed
func (h *Handlers) TestFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidSupplierID)
			return
		}

		preview, err := h.deps.Services.Sync.TestFeed(r.Context(), supplierID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, preview)
	}
}

// GetSchedule handles GET /api/v1/suppliers/{id}/schedule
func (h *Handlers) GetSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidSupplierID)
			return
		}
		ctx := r.Context()

		next, err := h.deps.Services.Scheduler.NextRun(ctx, supplierID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		status := responses.ScheduleStatus{
			SupplierID:       supplierID,
			SchedulerEnabled: h.deps.Config.Scheduler.Enabled,
			NextRunAt:        next,
		}

		row, err := h.deps.Repo.Schedule.Get(ctx, supplierID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		if row != nil {
			status.LastRunAt = row.LastRunAt
			status.LastStatus = row.LastStatus
			status.LastLogID = row.LastLogID
		}
		respondWithSuccess(w, http.StatusOK, &status)
	}
}

// ClearFeedCache handles DELETE /api/v1/suppliers/{id}/feed-cache
func (h *Handlers) ClearFeedCache() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, constants.MsgInvalidSupplierID)
			return
		}
		ctx := r.Context()

		cfg, err := h.deps.Repo.Configs.GetFeedConfig(ctx, supplierID)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		if cfg == nil {
			respondWithError(w, http.StatusNotFound, constants.GetSyncErrorMessage(constants.ErrCodeConfigNotFound))
			return
		}
		if err := h.deps.Services.Fetcher.Invalidate(ctx, cfg); err != nil {
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, &responses.CacheBustResult{Cleared: 1})
	}
}
