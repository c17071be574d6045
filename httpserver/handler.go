package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dwellir/polkadot-node-manager/interfaces"
	"github.com/dwellir/polkadot-node-manager/metrics"
	"github.com/dwellir/polkadot-node-manager/migration"
	"github.com/dwellir/polkadot-node-manager/sessionkeys"
	"github.com/dwellir/polkadot-node-manager/workload"
)

// Handler implements the operator action endpoints. Each action is atomic
// from the caller's point of view: it returns either a structured result or
// a descriptive failure, never partial success.
type Handler struct {
	keys    *sessionkeys.Manager
	migrate *migration.Engine
	rpc     interfaces.NodeRPC
	layout  interfaces.Layout
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewHandler creates the action handler.
func NewHandler(keys *sessionkeys.Manager, migrate *migration.Engine, rpc interfaces.NodeRPC, layout interfaces.Layout, m *metrics.Metrics, log *slog.Logger) *Handler {
	return &Handler{keys: keys, migrate: migrate, rpc: rpc, layout: layout, metrics: m, log: log}
}

func (h *Handler) handleGetSessionKey(w http.ResponseWriter, r *http.Request) {
	done := h.observe("get-session-key")
	key, err := h.keys.Rotate(r.Context())
	done(err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]string{"sessionKey": key.String()})
}

func (h *Handler) handleHasSessionKey(w http.ResponseWriter, r *http.Request) {
	done := h.observe("has-session-key")
	has, err := h.keys.Has(r.Context(), chi.URLParam(r, "key"))
	done(err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]bool{"hasKey": has})
}

func (h *Handler) handleInsertKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mnemonic string `json:"mnemonic"`
		Address  string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	done := h.observe("insert-key")
	err := h.keys.Insert(r.Context(), req.Mnemonic, req.Address)
	done(err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]bool{"inserted": true})
}

func (h *Handler) handleFindValidatorAddress(w http.ResponseWriter, r *http.Request) {
	done := h.observe("find-validator-address")
	addr, found, err := h.keys.FindValidatorAddress(r.Context())
	done(err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{"found": found, "address": addr.String()})
}

func (h *Handler) handleIsValidatingNextEra(w http.ResponseWriter, r *http.Request) {
	done := h.observe("is-validating-next-era")
	validating, err := h.keys.IsValidatingNextEra(r.Context(), chi.URLParam(r, "address"))
	done(err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]bool{"validatingNextEra": validating})
}

func (h *Handler) handleStartValidating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	done := h.observe("start-validating")
	result, err := h.keys.StartValidating(r.Context(), req.Address)
	done(err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, result)
}

type migrateRequest struct {
	Reverse bool `json:"reverse"`
	DryRun  bool `json:"dryRun"`
}

func (h *Handler) handleMigrateData(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	result, err := h.migrate.MigrateData(r.Context(), req.Reverse, req.DryRun)
	h.countMigration("data", req.DryRun, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) handleMigrateNodeKey(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	result, err := h.migrate.MigrateNodeKey(r.Context(), req.Reverse, req.DryRun)
	h.countMigration("node-key", req.DryRun, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, result)
}

// nodeInfo merges the local workload facts with what the node reports about
// itself over RPC. RPC failures degrade to partial output instead of
// failing the whole query, since the node may simply not be running yet.
func (h *Handler) handleNodeInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"local": workload.Collect(r.Context(), h.layout),
	}

	if health, err := h.rpc.Health(r.Context()); err == nil {
		info["health"] = health
	}
	if version, err := h.rpc.SystemVersion(r.Context()); err == nil {
		info["version"] = version
	}
	if height, err := h.rpc.BlockHeight(r.Context()); err == nil {
		info["blockHeight"] = height
	}
	if roles, err := h.rpc.NodeRoles(r.Context()); err == nil {
		info["roles"] = roles
	}

	h.writeJSON(w, info)
}

func (h *Handler) observe(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		h.metrics.RPCCalls.WithLabelValues(operation, status).Inc()
		h.metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (h *Handler) countMigration(kind string, dryRun bool, err error) {
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case dryRun:
		status = "dry-run"
	}
	h.metrics.MigrationRuns.WithLabelValues(kind, status).Inc()
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes, keeping the
// descriptive message intact for the operator.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interfaces.ErrConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, interfaces.ErrMigrationPrecondition):
		status = http.StatusConflict
	case errors.Is(err, interfaces.ErrRPC), errors.Is(err, interfaces.ErrExtrinsic):
		status = http.StatusBadGateway
	}

	h.log.Warn("Action failed", "err", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
