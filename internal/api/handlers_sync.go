package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorilla/mux"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/service"
	"github.com/creator-sync/internal/types"
)

const (
	defaultHistoryWindow = 30 * 24 * time.Hour
	maxHistoryLimit      = 1000
)

// SyncAccountRequest is the body of POST /api/sync/account
type SyncAccountRequest struct {
	AccountID string `json:"accountId"`
	OrgID     string `json:"orgId"`
	ProjectID string `json:"projectId"`
}

func (s *Server) handleSyncAccount(w http.ResponseWriter, r *http.Request) {
	var req SyncAccountRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if req.AccountID == "" || req.OrgID == "" || req.ProjectID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "accountId, orgId and projectId are required", nil)
		return
	}

	origin, err := s.auth.authorize(r, req.OrgID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	result, err := s.sync.SyncAccount(r.Context(), service.SyncRequest{
		AccountID: req.AccountID,
		Scope:     models.Scope{OrgID: req.OrgID, ProjectID: req.ProjectID},
		Origin:    origin,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scope := models.Scope{OrgID: vars["orgId"], ProjectID: vars["projectId"]}

	if _, err := s.auth.authorize(r, scope.OrgID); err != nil {
		respondAppError(w, r, err)
		return
	}

	view, err := s.sync.GetSyncStatus(r.Context(), scope, vars["accountId"])
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scope := models.Scope{OrgID: vars["orgId"], ProjectID: vars["projectId"]}

	if _, err := s.auth.authorize(r, scope.OrgID); err != nil {
		respondAppError(w, r, err)
		return
	}

	platform, err := types.ParsePlatform(vars["platform"])
	if err != nil {
		respondAppError(w, r, apperrors.NewInvalidParameterError("platform", err.Error()))
		return
	}

	since := time.Now().UTC().Add(-defaultHistoryWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = dateparse.ParseIn(raw, time.UTC)
		if err != nil {
			respondAppError(w, r, apperrors.NewInvalidParameterError("since", "unrecognized date"))
			return
		}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondAppError(w, r, apperrors.NewInvalidParameterError("limit", "must be a non-negative integer"))
			return
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}

	snaps, err := s.history.History(r.Context(), scope, platform, vars["videoId"], since, limit)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []*models.Snapshot{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"videoId":   vars["videoId"],
		"platform":  platform,
		"snapshots": snaps,
	})
}
