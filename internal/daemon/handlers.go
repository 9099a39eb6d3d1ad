package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soleren/tempo/internal/auth"
	"github.com/soleren/tempo/internal/session"
)

// wireEvent is one browser lifecycle event as posted by the extension.
type wireEvent struct {
	Type      string `json:"type"` // navigate | tab_removed | focus | idle | suspend
	URL       string `json:"url,omitempty"`
	Favicon   string `json:"favicon,omitempty"`
	TabID     int    `json:"tabId,omitempty"`
	Focused   bool   `json:"focused,omitempty"`
	IdleState string `json:"idleState,omitempty"`
	// TimestampMs is milliseconds since epoch; 0 means "now".
	TimestampMs int64 `json:"ts,omitempty"`
}

type eventBatch struct {
	Events []wireEvent `json:"events"`
}

type eventsResponse struct {
	Accepted  int   `json:"accepted"`
	CloseTabs []int `json:"closeTabs,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleEvents ingests a batch of browser events, queues them on the
// tracker, and tells the extension which tabs hit the blocklist.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxRequestSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxRequestSize))
	}

	var batch eventBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := eventsResponse{}
	for _, we := range batch.Events {
		ev, ok := toSessionEvent(we)
		if !ok {
			continue
		}

		if ev.Kind == session.EventNavigate {
			if tabID, blocked := s.checkBlocked(r, ev); blocked {
				resp.CloseTabs = append(resp.CloseTabs, tabID)
			}
		}

		if err := s.tracker.Dispatch(r.Context(), ev); err != nil {
			// Client went away mid-batch; whatever was queued stays queued.
			break
		}
		resp.Accepted++
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// checkBlocked reports whether the navigation targets a blocked domain.
// Lookup failures count as not blocked.
func (s *Server) checkBlocked(r *http.Request, ev session.Event) (int, bool) {
	u, err := url.Parse(ev.URL)
	if err != nil || u.Hostname() == "" {
		return 0, false
	}
	blocked, err := s.store.IsBlocked(r.Context(), u.Hostname())
	if err != nil {
		s.logger.Warn("blocklist lookup failed", "domain", u.Hostname(), "error", err)
		return 0, false
	}
	return ev.TabID, blocked
}

func toSessionEvent(we wireEvent) (session.Event, bool) {
	ev := session.Event{
		URL:       we.URL,
		Favicon:   we.Favicon,
		TabID:     we.TabID,
		Focused:   we.Focused,
		IdleState: we.IdleState,
	}
	if we.TimestampMs > 0 {
		ev.Time = time.UnixMilli(we.TimestampMs)
	}

	switch we.Type {
	case "navigate":
		ev.Kind = session.EventNavigate
	case "tab_removed":
		ev.Kind = session.EventTabRemoved
	case "focus":
		ev.Kind = session.EventFocusChanged
	case "idle":
		ev.Kind = session.EventIdleStateChanged
	case "suspend":
		ev.Kind = session.EventSuspend
	default:
		return session.Event{}, false
	}
	return ev, true
}

// handleScreenTime returns the whole store as stored: the last
// successful aggregator write.
func (s *Server) handleScreenTime(w http.ResponseWriter, r *http.Request) {
	store, err := s.agg.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading screen time failed")
		return
	}
	writeJSON(w, http.StatusOK, store)
}

// --- auth handlers ---

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("register failed", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"data": map[string]string{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUnknownUser), errors.Is(err, auth.ErrInvalidPassword):
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			s.logger.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"data":    token,
	})
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.auth.Validate(r.Context(), req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user": map[string]string{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":       user.ID,
		"username": user.Username,
	})
}

// --- helpers ---

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
