package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/auth"
	"github.com/gestaozabele/reclamacidade/internal/complaint"
	"github.com/gestaozabele/reclamacidade/internal/config"
	"github.com/gestaozabele/reclamacidade/internal/engagement"
	httpmiddleware "github.com/gestaozabele/reclamacidade/internal/http/middleware"
	"github.com/gestaozabele/reclamacidade/internal/notify"
)

// Engine é o recorte do motor de engajamento usado pelos handlers.
type Engine interface {
	CastVote(ctx context.Context, userID, complaintID uuid.UUID) (engagement.VoteResult, error)
	RecordComplaintCreated(ctx context.Context, actorID, complaintID uuid.UUID) (engagement.PointsResult, error)
	ChangeComplaintStatus(ctx context.Context, actorID, complaintID uuid.UUID, status complaint.Status) (engagement.StatusChange, error)
	Profile(ctx context.Context, userID uuid.UUID) (engagement.Profile, error)
	MonthlyRanking(ctx context.Context, city string, month, year, limit int) ([]engagement.RankingEntry, error)
	AdjustPoints(ctx context.Context, actorID, userID uuid.UUID, delta int, reason string) (engagement.PointsResult, error)
	CheckAndAwardBadges(ctx context.Context, actorID, userID uuid.UUID, trigger engagement.Trigger) ([]engagement.Badge, error)
	SyncBadges(ctx context.Context, actorID, userID uuid.UUID) ([]engagement.Badge, error)
	RecomputeMonthlyRanking(ctx context.Context, city string, month, year int) ([]engagement.RankingEntry, error)
	CurrentPeriod() (month, year int)
}

// Inbox expõe a caixa de notificações do cidadão.
type Inbox interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]notify.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// Pinger cobre Postgres e Redis na checagem de prontidão.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps agrupa colaboradores montados em cmd/api.
type Deps struct {
	Engine Engine
	Inbox  Inbox
	Users  httpmiddleware.UserLookup
	JWT    *auth.JWTManager
	Checks map[string]Pinger
}

type Handler struct {
	engine Engine
	inbox  Inbox
	checks map[string]Pinger
}

func NewHandler(engine Engine, inbox Inbox, checks map[string]Pinger) *Handler {
	return &Handler{engine: engine, inbox: inbox, checks: checks}
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	h := NewHandler(deps.Engine, deps.Inbox, deps.Checks)
	publicLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst)
	authLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(publicLimiter))
		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(deps.JWT))
		private.Use(httpmiddleware.UserRateLimit(authLimiter))
		private.Use(httpmiddleware.CityScope(deps.Users))
		h.RegisterRoutes(private)
	})

	return r
}

// RegisterRoutes monta as rotas autenticadas; o chamador aplica Auth e CityScope.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/complaints/{id}", func(c chi.Router) {
		c.Post("/vote", h.handleCastVote)
		c.With(httpmiddleware.RequireRoles(auth.RoleManager, auth.RoleService)).Post("/created", h.handleComplaintCreated)
		c.With(httpmiddleware.RequireRoles(auth.RoleManager)).Put("/status", h.handleChangeStatus)
	})

	r.Route("/me", func(me chi.Router) {
		me.Get("/gamification", h.handleProfile)
		me.Get("/notifications", h.handleListNotifications)
		me.Post("/notifications/{id}/read", h.handleMarkRead)
	})

	r.Get("/rankings/{city}", h.handleRanking)

	r.Route("/admin", func(admin chi.Router) {
		admin.With(httpmiddleware.RequireRoles(auth.RoleManager)).Post("/points", h.handleAdjustPoints)
		admin.With(httpmiddleware.RequireRoles(auth.RoleManager)).Post("/badges/check", h.handleCheckBadges)
		admin.With(httpmiddleware.RequireRoles(auth.RoleManager, auth.RoleService)).Post("/rankings/recompute", h.handleRecompute)
	})
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", failures)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
