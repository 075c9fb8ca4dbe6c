package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"grimm.is/firegate/internal/allowlist"
	"grimm.is/firegate/internal/audit"
	"grimm.is/firegate/internal/firewall"
	"grimm.is/firegate/internal/i18n"
	"grimm.is/firegate/internal/scheduler"
)

// Client-facing error texts.
const (
	msgWrongSecret     = "Wrong secret key."
	msgZoneMissing     = "zone not provided."
	msgListZoneMissing = "Zone not provided."
	msgSourceMissing   = "source not provided."
	msgRateLimited     = "rate limit exceeded."
	msgBadRequest      = "invalid request."
	msgUnavailable     = "service unavailable."
	msgInvalidInput    = "zone and source may only contain letters, digits and dots."
)

// AddResponse is returned by a successful grant.
type AddResponse struct {
	Status    bool   `json:"status"`
	Message   string `json:"message"`
	ExpiresAt int64  `json:"expiresAt"`
}

// ListResponse carries the parsed firewall-cmd --list-all output.
type ListResponse struct {
	Status bool           `json:"status"`
	Title  string         `json:"title"`
	Config map[string]any `json:"config"`
}

// GrantView is one row of the /grants listing.
type GrantView struct {
	Zone      string `json:"zone"`
	Source    string `json:"source"`
	GrantedAt int64  `json:"grantedAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// GrantsResponse lists the in-memory allowlist.
type GrantsResponse struct {
	Status bool        `json:"status"`
	Grants []GrantView `json:"grants"`
}

// HistoryResponse lists audit events, newest first.
type HistoryResponse struct {
	Status bool          `json:"status"`
	Events []audit.Event `json:"events"`
}

// StatusResponse reports the background tasks, including failed sweeps.
type StatusResponse struct {
	Status    bool                   `json:"status"`
	Scheduler bool                   `json:"scheduler"`
	Tasks     []scheduler.TaskStatus `json:"tasks"`
}

// authenticate parses the request and checks the secret. It writes the
// response and returns nil when the request must not proceed.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) *request {
	req, err := readRequest(r)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, errorResponse(msgBadRequest))
		return nil
	}
	if !s.auth.Check(req.params.Get("secret"), r.Header.Get(SignatureHeader), req.body) {
		WriteJSON(w, http.StatusUnauthorized, Response{Status: false, Message: msgWrongSecret})
		return nil
	}
	return req
}

func (s *Server) zoneParam(req *request) string {
	if zone := req.params.Get("zone"); zone != "" {
		return zone
	}
	return s.cfg.Zone
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	client := getClientIP(r, s.cfg.TrustsProxy())
	if !s.limiter.Allow(client) {
		WriteJSON(w, http.StatusTooManyRequests, errorResponse(msgRateLimited))
		return
	}

	req := s.authenticate(w, r)
	if req == nil {
		return
	}

	zone := s.zoneParam(req)
	if zone == "" {
		WriteJSON(w, http.StatusOK, errorResponse(msgZoneMissing))
		return
	}
	source := req.params.Get("source")
	if source == "" {
		WriteJSON(w, http.StatusOK, errorResponse(msgSourceMissing))
		return
	}
	if source == "client" {
		source = client
	}

	res, err := s.granter.Grant(r.Context(), allowlist.GrantRequest{Zone: zone, Source: source, Client: client})
	if err != nil {
		status, msg := grantError(err)
		WriteJSON(w, status, errorResponse(msg))
		return
	}

	lang := i18n.GetLanguage(r.Context())
	msg := i18n.GetPrinter(r.Context()).Sprintf(i18n.MsgSourceAdded, i18n.FormatTime(lang, res.ExpiresAt))
	WriteJSON(w, http.StatusOK, AddResponse{
		Status:    true,
		Message:   msg,
		ExpiresAt: res.ExpiresAt.UnixMilli(),
	})
}

// grantError maps a coordinator error to a status code and client message.
func grantError(err error) (int, string) {
	switch {
	case allowlist.IsInputError(err):
		if errors.Is(err, allowlist.ErrSanitizationRejected) {
			return http.StatusOK, msgInvalidInput
		}
		return http.StatusOK, msgBadRequest
	case errors.Is(err, allowlist.ErrExternalToolFailure):
		return http.StatusOK, firewall.Diagnostic(err)
	case errors.Is(err, allowlist.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, msgUnavailable
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	req := s.authenticate(w, r)
	if req == nil {
		return
	}

	zone := s.zoneParam(req)
	if zone == "" {
		WriteJSON(w, http.StatusOK, errorResponse(msgListZoneMissing))
		return
	}

	info, err := s.gateway.ListZone(r.Context(), zone)
	if err != nil {
		if errors.Is(err, allowlist.ErrSanitizationRejected) {
			WriteJSON(w, http.StatusOK, errorResponse(msgInvalidInput))
			return
		}
		WriteJSON(w, http.StatusOK, errorResponse(firewall.Diagnostic(err)))
		return
	}

	WriteJSON(w, http.StatusOK, ListResponse{Status: true, Title: info.Title, Config: info.Config})
}

func (s *Server) handleGrants(w http.ResponseWriter, r *http.Request) {
	req := s.authenticate(w, r)
	if req == nil {
		return
	}

	only := req.params.Get("zone")
	snap := s.table.Snapshot()
	zones := make([]string, 0, len(snap))
	for zone := range snap {
		if only == "" || zone == only {
			zones = append(zones, zone)
		}
	}
	sort.Strings(zones)

	views := make([]GrantView, 0)
	for _, zone := range zones {
		for _, g := range snap[zone] {
			views = append(views, GrantView{
				Zone:      zone,
				Source:    g.Source,
				GrantedAt: g.GrantedAt.UnixMilli(),
				ExpiresAt: g.ExpiresAt().UnixMilli(),
			})
		}
	}
	WriteJSON(w, http.StatusOK, GrantsResponse{Status: true, Grants: views})
}

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	req := s.authenticate(w, r)
	if req == nil {
		return
	}

	limit := defaultHistoryLimit
	if v := req.params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteJSON(w, http.StatusBadRequest, errorResponse("limit must be a positive integer."))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := s.history.Query(r.Context(), audit.Filter{
		Zone:   req.params.Get("zone"),
		Source: req.params.Get("source"),
		Action: req.params.Get("action"),
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		WriteJSON(w, http.StatusInternalServerError, errorResponse("history unavailable."))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	WriteJSON(w, http.StatusOK, HistoryResponse{Status: true, Events: events})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.authenticate(w, r) == nil {
		return
	}
	WriteJSON(w, http.StatusOK, StatusResponse{
		Status:    true,
		Scheduler: s.tasks.IsRunning(),
		Tasks:     s.tasks.GetStatus(),
	})
}

func (s *Server) handleSmokeTest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Express seems to be working!"))
}
