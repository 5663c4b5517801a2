package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/tpln/gateway/internal/handler/dto"
	"github.com/tpln/gateway/internal/metrics"
	"github.com/tpln/gateway/internal/purge"
)

const purgeTimeout = 60 * time.Second

// AdminHandler provides admin-only maintenance endpoints.
type AdminHandler struct {
	realtime purge.Store
	tables   purge.Store
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
// Pass nil for realtime or tables when the backing store is not configured.
func NewAdminHandler(realtime, tables purge.Store, recorder metrics.Recorder, logger *slog.Logger) *AdminHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AdminHandler{
		realtime: realtime,
		tables:   tables,
		metrics:  recorder,
		logger:   logger,
	}
}

// PurgeRealtime handles POST /admin/purge/firebase.
func (h *AdminHandler) PurgeRealtime(w http.ResponseWriter, r *http.Request) {
	var req dto.PurgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	h.purge(w, r, h.realtime, req.Keys, purge.DefaultFirebaseKeys, req.DryRun)
}

// PurgeTables handles POST /admin/purge/trades.
func (h *AdminHandler) PurgeTables(w http.ResponseWriter, r *http.Request) {
	var req dto.PurgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	h.purge(w, r, h.tables, req.Tables, purge.DefaultTables, req.DryRun)
}

// purge runs a purge restricted to the allowed keys. An empty request purges all of them.
func (h *AdminHandler) purge(w http.ResponseWriter, r *http.Request, store purge.Store, keys, allowed []string, dryRun bool) {
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "STORE_NOT_CONFIGURED", "store is not configured")
		return
	}

	if len(keys) == 0 {
		keys = allowed
	}
	for _, key := range keys {
		if !slices.Contains(allowed, key) {
			writeError(w, http.StatusBadRequest, "UNKNOWN_KEY", "key "+key+" cannot be purged")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), purgeTimeout)
	defer cancel()

	report, err := purge.Purge(ctx, store, keys, purge.Options{DryRun: dryRun, Logger: h.logger})
	if report != nil && !dryRun {
		h.metrics.AddPurged(store.Name(), report.TotalRemoved())
	}
	if err != nil {
		h.logger.Error("purge_failed", "store", store.Name(), "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.PurgeResponse{Report: report, Error: err.Error()})
		return
	}

	h.logger.Info("purge_completed",
		"store", store.Name(),
		"dry_run", dryRun,
		"found", report.TotalFound(),
		"removed", report.TotalRemoved(),
	)
	writeJSON(w, http.StatusOK, dto.PurgeResponse{Report: report})
}
