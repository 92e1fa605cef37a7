package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/auth"
	"github.com/gestaozabele/reclamacidade/internal/complaint"
	"github.com/gestaozabele/reclamacidade/internal/engagement"
	httpmiddleware "github.com/gestaozabele/reclamacidade/internal/http/middleware"
	"github.com/gestaozabele/reclamacidade/internal/util"
)

const (
	defaultRankingLimit = 50
	maxRankingLimit     = 200
)

func subject(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := httpmiddleware.SubjectID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
	}
	return id, ok
}

func pathID(w http.ResponseWriter, r *http.Request, field string) (uuid.UUID, bool) {
	id, err := util.ParseID(chi.URLParam(r, "id"), field)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return false
	}
	return true
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "reclamação")
	if !ok {
		return
	}

	res, err := h.engine.CastVote(r.Context(), userID, complaintID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// handleComplaintCreated repassa o gestor como ator; tokens de serviço
// entram como integração (uuid.Nil).
func (h *Handler) handleComplaintCreated(w http.ResponseWriter, r *http.Request) {
	complaintID, ok := pathID(w, r, "reclamação")
	if !ok {
		return
	}
	actorID := uuid.Nil
	if !httpmiddleware.HasRole(r.Context(), auth.RoleService) {
		if actorID, ok = subject(w, r); !ok {
			return
		}
	}
	res, err := h.engine.RecordComplaintCreated(r.Context(), actorID, complaintID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "reclamação")
	if !ok {
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, err := complaint.ParseStatus(req.Status)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	res, err := h.engine.ChangeComplaintStatus(r.Context(), actorID, complaintID, status)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	profile, err := h.engine.Profile(r.Context(), userID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	unread := strings.EqualFold(q.Get("unread"), "true")

	items, err := h.inbox.List(r.Context(), userID, unread, limit)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "notificação")
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(r.Context(), userID, id); err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// period lê month/year da query, usando o mês corrente como padrão.
func (h *Handler) period(w http.ResponseWriter, monthRaw, yearRaw string) (int, int, bool) {
	month, year := h.engine.CurrentPeriod()
	if monthRaw != "" {
		m, err := strconv.Atoi(monthRaw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "mês inválido", nil)
			return 0, 0, false
		}
		month = m
	}
	if yearRaw != "" {
		y, err := strconv.Atoi(yearRaw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "ano inválido", nil)
			return 0, 0, false
		}
		year = y
	}
	return month, year, true
}

func (h *Handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, year, ok := h.period(w, q.Get("month"), q.Get("year"))
	if !ok {
		return
	}
	limit := defaultRankingLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "limit inválido", nil)
			return
		}
		limit = min(n, maxRankingLimit)
	}

	city := util.NormalizeCity(chi.URLParam(r, "city"))
	entries, err := h.engine.MonthlyRanking(r.Context(), city, month, year, limit)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"city":    city,
		"month":   month,
		"year":    year,
		"ranking": entries,
	})
}

type adjustRequest struct {
	UserID string `json:"user_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (h *Handler) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, err := util.ParseID(req.UserID, "user_id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if err := util.RequireString(req.Reason, "reason"); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	res, err := h.engine.AdjustPoints(r.Context(), actorID, userID, req.Delta, strings.TrimSpace(req.Reason))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type badgeCheckRequest struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Metric string `json:"metric"`
	Value  *int   `json:"value"`
}

// handleCheckBadges aplica o gatilho informado; sem gatilho, reavalia o
// catálogo com os contadores atuais do usuário.
func (h *Handler) handleCheckBadges(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	var req badgeCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, err := util.ParseID(req.UserID, "user_id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	var badges []engagement.Badge
	if strings.TrimSpace(req.Type) == "" {
		badges, err = h.engine.SyncBadges(r.Context(), actorID, userID)
	} else {
		if req.Value == nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "value obrigatório", nil)
			return
		}
		trigger := engagement.Trigger{
			Type:   engagement.TriggerType(strings.ToLower(strings.TrimSpace(req.Type))),
			Metric: engagement.Metric(strings.ToLower(strings.TrimSpace(req.Metric))),
			Value:  *req.Value,
		}
		badges, err = h.engine.CheckAndAwardBadges(r.Context(), actorID, userID, trigger)
	}
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if badges == nil {
		badges = []engagement.Badge{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"awarded": badges})
}

type recomputeRequest struct {
	City  string `json:"city"`
	Month int    `json:"month"`
	Year  int    `json:"year"`
}

// handleRecompute recalcula o ranking. Gestores só recalculam a própria
// cidade; tokens de serviço precisam informar a cidade.
func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	var req recomputeRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	city := util.NormalizeCity(req.City)
	if !httpmiddleware.HasRole(r.Context(), auth.RoleService) {
		own := httpmiddleware.GetCity(r.Context())
		if city == "" {
			city = own
		}
		if city != own {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "ranking de outra cidade", nil)
			return
		}
	}
	if city == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "city obrigatório", nil)
		return
	}

	month, year := h.engine.CurrentPeriod()
	if req.Month != 0 {
		month = req.Month
	}
	if req.Year != 0 {
		year = req.Year
	}

	entries, err := h.engine.RecomputeMonthlyRanking(r.Context(), city, month, year)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"city":    city,
		"month":   month,
		"year":    year,
		"entries": len(entries),
	})
}
