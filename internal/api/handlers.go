// Package api exposes HTTP handlers for the challenge service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prouhet/reformed-fit-sub000/internal/auth"
	"github.com/prouhet/reformed-fit-sub000/internal/domain"
	"github.com/prouhet/reformed-fit-sub000/internal/observability"
	"github.com/prouhet/reformed-fit-sub000/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service

	// DefaultAllowFutureLogging applies when a create request leaves the
	// flag unset.
	DefaultAllowFutureLogging bool
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/challenges", h.challenges)
	mux.HandleFunc("/v1/challenges/", h.challengeSubresource)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) challenges(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.startChallenge(w, r)
	case http.MethodGet:
		h.listChallenges(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) challengeSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/challenges/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing challenge id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getChallenge(w, r, id)
	case action == "checkins" && r.Method == http.MethodPost:
		h.recordCheckIn(w, r, id)
	case action == "advance" && r.Method == http.MethodPost:
		h.advanceDay(w, r, id)
	case action == "abandon" && r.Method == http.MethodPost:
		h.abandonChallenge(w, r, id)
	case action == "roadmap" && r.Method == http.MethodGet:
		h.getRoadmap(w, r, id)
	case action == "verdict" && r.Method == http.MethodPost:
		h.finalizeChallenge(w, r, id)
	case action == "verdict" && r.Method == http.MethodGet:
		h.getVerdict(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) startChallenge(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	var req StartChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	allowFuture := h.DefaultAllowFutureLogging
	if req.AllowFutureLogging != nil {
		allowFuture = *req.AllowFutureLogging
	}

	challenge, replay, err := h.service.StartChallenge(r.Context(), domain.StartChallengeInput{
		TenantID: claims.TenantID,
		UserID:   req.UserID,
		Assessment: domain.Assessment{
			AverageDailySteps:  req.Assessment.AverageDailySteps,
			WalkDurationMin:    req.Assessment.WalkDurationMin,
			WalkDistanceMeters: req.Assessment.WalkDistanceMeters,
			Exertion:           domain.ExertionLevel(req.Assessment.Exertion),
			MobilityFlags:      req.Assessment.MobilityFlags,
		},
		DurationDays:       req.DurationDays,
		Intensity:          domain.GoalIntensity(req.Intensity),
		AllowFutureLogging: allowFuture,
		IdempotencyKey:     r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, StartChallengeResponse{
		Challenge: toChallengeView(*challenge),
		Replay:    replay,
	})
}

func (h *Handler) getChallenge(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	challenge, err := h.service.GetChallenge(r.Context(), claims.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChallengeView(*challenge))
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	challenges, next, err := h.service.ListChallengesByUser(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]ChallengeView, 0, len(challenges))
	for _, ch := range challenges {
		items = append(items, toChallengeView(ch))
	}
	writeJSON(w, http.StatusOK, ListChallengesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) recordCheckIn(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	var req RecordCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	challenge, err := h.service.RecordCheckIn(r.Context(), claims.TenantID, id, req.DayIndex, domain.ActualWalkData{
		Steps:       req.Steps,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ci := challenge.Progress.CheckIns[req.DayIndex]
	observability.RecordCheckIn(ci.Met)
	writeJSON(w, http.StatusOK, RecordCheckInResponse{
		DayIndex: ci.DayIndex,
		Met:      ci.Met,
		Progress: toProgressView(challenge.Progress),
	})
}

func (h *Handler) advanceDay(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	var req AdvanceDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.DayIndex < 1 {
		writeError(w, http.StatusBadRequest, "validation_failed", "day_index must be >= 1")
		return
	}

	challenge, err := h.service.AdvanceDay(r.Context(), claims.TenantID, id, req.DayIndex)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressView(challenge.Progress))
}

func (h *Handler) abandonChallenge(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	challenge, err := h.service.AbandonChallenge(r.Context(), claims.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressView(challenge.Progress))
}

func (h *Handler) getRoadmap(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	view, err := h.service.GetRoadmap(r.Context(), claims.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) finalizeChallenge(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	verdict, err := h.service.FinalizeChallenge(r.Context(), claims.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordVerdict(string(verdict.Outcome))
	writeJSON(w, http.StatusOK, verdict)
}

func (h *Handler) getVerdict(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	challenge, err := h.service.GetChallenge(r.Context(), claims.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if challenge.Verdict == nil {
		writeError(w, http.StatusNotFound, "not_found", "challenge has no verdict yet")
		return
	}
	writeJSON(w, http.StatusOK, challenge.Verdict)
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+strings.Join(scopes, " or ")+" required")
	return nil, false
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAssessment):
		writeError(w, http.StatusBadRequest, "invalid_assessment", err.Error())
	case errors.Is(err, domain.ErrUnsupportedDuration):
		writeError(w, http.StatusBadRequest, "unsupported_duration", err.Error())
	case errors.Is(err, domain.ErrDayIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "day_index_out_of_range", err.Error())
	case errors.Is(err, domain.ErrFutureCheckInNotAllowed):
		writeError(w, http.StatusUnprocessableEntity, "future_checkin_not_allowed", err.Error())
	case errors.Is(err, domain.ErrChallengeNotActive):
		writeError(w, http.StatusConflict, "challenge_not_active", err.Error())
	case errors.Is(err, domain.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, "not_found", "challenge not found")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
