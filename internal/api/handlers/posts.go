package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/internal/store"
	"github.com/wonny/vox/backend/pkg/logger"
)

// PostsHandler exposes post records for operators
// ⭐ SSOT: 포스트 조회 API 핸들러는 여기서만
type PostsHandler struct {
	repo   *store.Repository
	logger *logger.Logger
}

// NewPostsHandler creates a new posts handler
func NewPostsHandler(repo *store.Repository, log *logger.Logger) *PostsHandler {
	return &PostsHandler{
		repo:   repo,
		logger: log,
	}
}

// List returns post records, filtered by ?state=
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	stateParam := r.URL.Query().Get("state")

	var states []contracts.LifecycleState
	if stateParam != "" {
		state := contracts.LifecycleState(stateParam)
		if !state.Valid() {
			writeError(w, http.StatusBadRequest, "unknown state "+stateParam)
			return
		}
		states = []contracts.LifecycleState{state}
	} else {
		states = []contracts.LifecycleState{
			contracts.StateAssigned, contracts.StateReadyToGen,
			contracts.StateReadyToPost, contracts.StatePublished,
			contracts.StateCollecting, contracts.StateDone, contracts.StateError,
		}
	}

	records, err := h.repo.ListByState(r.Context(), states...)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list posts")
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"posts": records,
	})
}

// Get returns one post record with its engagement samples
func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	rec, err := h.repo.Get(r.Context(), postID)
	if err != nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	metrics, err := h.repo.MetricsByPost(r.Context(), postID)
	if err != nil {
		h.logger.WithError(err).WithField("post_id", postID).Error("Failed to load metrics")
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"post":       rec,
		"engagement": metrics,
	})
}

// Counts returns record counts grouped by lifecycle state
func (h *PostsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountByState(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to count posts")
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"states": counts})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
