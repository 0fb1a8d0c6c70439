package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/amishardev/orbi-sub001/internal/app"
	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/service/social"
	"github.com/amishardev/orbi-sub001/internal/service/suggest"
)

type handler struct {
	appCtx  *app.AppContext
	social  *social.Service
	suggest *suggest.Service
}

func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type toggleFollowRequest struct {
	ActorUserID  string `json:"actor_user_id"`
	TargetUserID string `json:"target_user_id"`
}

type toggleFollowResponse struct {
	Following bool `json:"following"`
}

// ToggleFollow flips the follow state of (actor → target).
func (h *handler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	var req toggleFollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.appCtx.Logger, apperr.InvalidArgument("malformed request body"))
		return
	}

	actorID, err := parseUserID(req.ActorUserID)
	if err != nil {
		writeError(w, h.appCtx.Logger, apperr.InvalidArgument("actor_user_id must be a valid uint64"))
		return
	}
	targetID, err := parseUserID(req.TargetUserID)
	if err != nil {
		writeError(w, h.appCtx.Logger, apperr.InvalidArgument("target_user_id must be a valid uint64"))
		return
	}

	res, err := h.social.ToggleFollow(r.Context(), actorID, targetID)
	if err != nil {
		writeError(w, h.appCtx.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleFollowResponse{Following: res.Following})
}

type followerItem struct {
	FollowerID    string `json:"follower_id"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

type listFollowersResponse struct {
	Followers []followerItem `json:"followers"`
	Total     int64          `json:"total_followers"`
	NextToken *string        `json:"next_pagination_token,omitempty"`
}

// ListFollowers returns one cursor-paginated page of followers.
func (h *handler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.appCtx.Logger, apperr.InvalidArgument("id must be a valid uint64"))
		return
	}

	var token *string
	if t := r.URL.Query().Get("page_token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.social.ListFollowers(r.Context(), userID, token, limit)
	if err != nil {
		writeError(w, h.appCtx.Logger, err)
		return
	}

	resp := listFollowersResponse{Followers: []followerItem{}, Total: page.Total, NextToken: page.NextToken}
	for _, f := range page.Followers {
		resp.Followers = append(resp.Followers, followerItem{
			FollowerID:    strconv.FormatUint(f.FollowerID, 10),
			UnixTimestamp: f.FollowedAt.UnixMilli(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSuggestions serves the user's stored recommendation list. A user
// with nothing computed yet gets an empty list, not an error.
func (h *handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.appCtx.Logger, apperr.InvalidArgument("id must be a valid uint64"))
		return
	}

	list, err := h.suggest.Get(r.Context(), userID)
	if err != nil {
		writeError(w, h.appCtx.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// RefreshSuggestions recomputes the list on demand.
func (h *handler) RefreshSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.appCtx.Logger, apperr.InvalidArgument("id must be a valid uint64"))
		return
	}

	list, err := h.suggest.Refresh(r.Context(), userID)
	if err != nil {
		writeError(w, h.appCtx.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- helpers ---

func parseUserID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	} else {
		log.Debug("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: apperr.Message(err)})
}

// requestLogger logs one line per request with latency and status.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
