// Package http implements the REST API and webhook endpoints of the
// progression engine.
package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/application/command"
	"github.com/codequest-hub/codequest-progression/internal/application/query"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "CodeQuest Progression API",
		"version":     "v1",
		"description": "XP ledger, levels, streaks, skill tree and daily challenges",
		"endpoints": map[string]string{
			"health":          "/health",
			"leaderboard":     "/api/v1/leaderboard",
			"progress":        "/api/v1/users/{id}/progress",
			"skill_tree":      "/api/v1/users/{id}/skill-tree",
			"daily_challenge": "/api/v1/users/{id}/daily-challenge",
			"attempt_webhook": "/webhook/attempt",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error kinds to HTTP status codes so clients
// can distinguish "no such thing" from "gate not met" without parsing text.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsGateNotMet(err):
		writeJSONError(w, http.StatusConflict, "gate_not_met", err.Error())
	case errors.Is(err, shared.ErrChallengeExpired):
		writeJSONError(w, http.StatusGone, "challenge_expired", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetUserProgress handles GET /api/v1/users/{id}/progress
func (s *Server) handleGetUserProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetUserProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	q := query.GetUserProgressQuery{
		UserID:       shared.UserID(userID),
		HistoryLimit: getQueryParamInt(r, "history_limit", 0),
	}

	result, err := s.deps.GetUserProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to get user progress", logger.Err(err), logger.UserID(userID))
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard handler not configured")
		return
	}

	q := query.GetLeaderboardQuery{
		Limit: getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to get leaderboard", logger.Err(err))
		s.writeDomainError(w, err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.TotalCount,
		PageSize:   len(result.Entries),
		HasMore:    result.TotalCount > len(result.Entries),
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILL TREE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetSkillTree handles GET /api/v1/users/{id}/skill-tree
func (s *Server) handleGetSkillTree(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetSkillTreeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Skill tree handler not configured")
		return
	}

	result, err := s.deps.GetSkillTreeHandler.Handle(r.Context(), query.GetSkillTreeQuery{
		UserID: shared.UserID(userID),
	})
	if err != nil {
		s.logger.Error("failed to get skill tree", logger.Err(err), logger.UserID(userID))
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleUnlockSkillNode handles POST /api/v1/users/{id}/skill-tree/{node}/unlock
func (s *Server) handleUnlockSkillNode(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	nodeID := r.PathValue("node")
	if userID == "" || nodeID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID and node ID are required")
		return
	}

	if s.deps.UnlockSkillNodeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Unlock handler not configured")
		return
	}

	result, err := s.deps.UnlockSkillNodeHandler.Handle(r.Context(), command.UnlockSkillNodeCommand{
		UserID:        shared.UserID(userID),
		NodeID:        shared.NodeID(nodeID),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.logger.Warn("skill node unlock rejected",
			logger.Err(err),
			logger.UserID(userID),
			logger.NodeID(nodeID),
		)
		s.writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyUnlocked {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetDailyChallenge handles GET /api/v1/users/{id}/daily-challenge
func (s *Server) handleGetDailyChallenge(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.GetDailyChallengeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Daily challenge handler not configured")
		return
	}

	result, err := s.deps.GetDailyChallengeHandler.Handle(r.Context(), query.GetDailyChallengeQuery{
		UserID: shared.UserID(userID),
	})
	if err != nil {
		s.logger.Error("failed to get daily challenge", logger.Err(err), logger.UserID(userID))
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// completeChallengeRequest is the body of the challenge completion endpoint.
type completeChallengeRequest struct {
	ChallengeID string `json:"challenge_id"`
}

// handleCompleteDailyChallenge handles POST /api/v1/users/{id}/daily-challenge/complete
func (s *Server) handleCompleteDailyChallenge(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "User ID is required")
		return
	}

	if s.deps.CompleteDailyChallengeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Challenge completion handler not configured")
		return
	}

	var req completeChallengeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	defer r.Body.Close()

	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "challenge_id must be a UUID")
		return
	}

	result, err := s.deps.CompleteDailyChallengeHandler.Handle(r.Context(), command.CompleteDailyChallengeCommand{
		UserID:        shared.UserID(userID),
		ChallengeID:   challengeID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.logger.Warn("daily challenge completion rejected",
			logger.Err(err),
			logger.UserID(userID),
			logger.ChallengeID(req.ChallengeID),
		)
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAttemptWebhook handles POST /webhook/attempt
func (s *Server) handleAttemptWebhook(w http.ResponseWriter, r *http.Request) {
	s.processAttemptWebhook(w, r, "")
}

// handleAttemptWebhookWithToken handles POST /webhook/attempt/{token}
func (s *Server) handleAttemptWebhookWithToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	s.processAttemptWebhook(w, r, token)
}

// processAttemptWebhook is the internal implementation for webhook processing.
// A non-2xx response makes the grading platform re-deliver the payload; the
// completion pipeline is idempotent, so re-delivery is safe.
func (s *Server) processAttemptWebhook(w http.ResponseWriter, r *http.Request, token string) {
	if s.config.WebhookSecret != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(s.config.WebhookSecret)) != 1 {
		s.logger.Warn("invalid webhook token", logger.String("ip", getClientIP(r)))
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid webhook token")
		return
	}

	if s.deps.WebhookHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Webhook handler not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		s.logger.Error("failed to read webhook body", logger.Err(err))
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	result, err := s.deps.WebhookHandler.HandleAttemptResult(r.Context(), body)
	if err != nil {
		s.logger.Error("failed to process graded attempt", logger.Err(err))
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("graded attempt processed",
		logger.UserID(result.UserID.String()),
		logger.QuestionID(result.QuestionID.String()),
		logger.Bool("first_pass", result.FirstPass),
		logger.XPAmount(result.XPAwarded),
	)

	writeJSON(w, http.StatusOK, result)
}
