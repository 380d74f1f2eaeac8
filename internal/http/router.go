package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/unmute/internal/emotion"
)

// RouterConfig lists the handlers to mount. Nil entries leave their routes
// unregistered, which keeps partial wiring possible in tests.
type RouterConfig struct {
	Rooms      *RoomHandler
	Sessions   *SessionHandler
	Limits     *LimitHandler
	Media      *MediaHandler
	Telemetry  *TelemetryHandler
	Terms      *TermsHandler
	Donations  *DonationHandler
	Timers     *TimerHandler
	Realtime   *RealtimeHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter assembles the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/emotions", listEmotions)

		if cfg.Rooms != nil {
			api.Get("/rooms", cfg.Rooms.Allocate)
			api.Post("/rooms", cfg.Rooms.Act)
		}
		if cfg.Sessions != nil {
			api.Post("/sessions", cfg.Sessions.Create)
			api.Patch("/sessions", cfg.Sessions.Update)
		}
		if cfg.Limits != nil {
			api.Get("/anonymous-limit", cfg.Limits.Check)
			api.Post("/anonymous-limit", cfg.Limits.Consume)
		}
		if cfg.Media != nil {
			api.Post("/media/token", cfg.Media.Issue)
		}
		if cfg.Telemetry != nil {
			api.Post("/reactions", cfg.Telemetry.CreateReaction)
			api.Get("/reactions", cfg.Telemetry.ListReactions)
			api.Post("/reflections", cfg.Telemetry.CreateReflection)
			api.Post("/feedback", cfg.Telemetry.CreateFeedback)
			api.Get("/analytics", cfg.Telemetry.Analytics)
		}
		if cfg.Terms != nil {
			api.Get("/terms", cfg.Terms.Status)
			api.Post("/terms", cfg.Terms.Accept)
		}
		if cfg.Donations != nil {
			api.Post("/donate", cfg.Donations.Create)
			api.Put("/donate", cfg.Donations.Verify)
		}
		if cfg.Timers != nil {
			api.Get("/timer", cfg.Timers.Status)
			api.Delete("/timer", cfg.Timers.Clear)
		}
		if cfg.Realtime != nil {
			api.Get("/realtime", cfg.Realtime.Subscribe)
		}
	})

	return r
}

type emotionDTO struct {
	ID              string `json:"id"`
	SelectionLabel  string `json:"selectionLabel"`
	Description     string `json:"description"`
	SanctuaryLabel  string `json:"sanctuaryLabel"`
	SessionColor    string `json:"sessionColor"`
	MaxParticipants int    `json:"maxParticipants"`
}

func listEmotions(w http.ResponseWriter, r *http.Request) {
	configs := emotion.All()
	dtos := make([]emotionDTO, 0, len(configs))
	for _, cfg := range configs {
		capacity := cfg.MaxParticipants
		if capacity <= 0 {
			capacity = emotion.DefaultMaxParticipants
		}
		dtos = append(dtos, emotionDTO{
			ID:              string(cfg.ID),
			SelectionLabel:  cfg.SelectionLabel,
			Description:     cfg.Description,
			SanctuaryLabel:  cfg.SanctuaryLabel,
			SessionColor:    cfg.SessionColor,
			MaxParticipants: capacity,
		})
	}
	newResponder(nil).writeJSON(r.Context(), w, http.StatusOK, map[string]any{"emotions": dtos})
}
