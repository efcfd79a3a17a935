package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/internal/scheduler"
	"github.com/wonny/vox/backend/internal/trigger"
	"github.com/wonny/vox/backend/pkg/logger"
)

// OpsHandler exposes scheduler stats and ad hoc trigger ingestion
type OpsHandler struct {
	scheduler *scheduler.Scheduler
	manager   *trigger.Manager
	logger    *logger.Logger
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(sched *scheduler.Scheduler, manager *trigger.Manager, log *logger.Logger) *OpsHandler {
	return &OpsHandler{
		scheduler: sched,
		manager:   manager,
		logger:    log,
	}
}

// SchedulerStats returns per-job execution statistics
func (h *OpsHandler) SchedulerStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.scheduler.GetJobStats(),
	})
}

// Trigger ingests one ad hoc trigger event
func (h *OpsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var cfg contracts.TriggerConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed trigger config")
		return
	}

	result, err := h.manager.Execute(r.Context(), cfg)
	if err != nil {
		var cfgErr *contracts.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, cfgErr.Error())
			return
		}
		h.logger.WithError(err).Error("Trigger execution failed")
		writeError(w, http.StatusInternalServerError, "trigger execution failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
