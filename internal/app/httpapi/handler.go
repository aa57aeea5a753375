// Package httpapi exposes the admin REST API.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	app "github.com/tourlink/marketplace/internal/app"
	"github.com/tourlink/marketplace/internal/app/domain/contribution"
	"github.com/tourlink/marketplace/internal/app/metrics"
	"github.com/tourlink/marketplace/internal/errors"
	"github.com/tourlink/marketplace/internal/httputil"
	"github.com/tourlink/marketplace/internal/logging"
	"github.com/tourlink/marketplace/internal/middleware"
	"github.com/tourlink/marketplace/pkg/logger"
)

// Options tunes the HTTP surface.
type Options struct {
	// AdminToken guards every mutating route. Empty disables the admin API.
	AdminToken string
	// AllowedOrigins feeds the CORS middleware; empty means same-origin only.
	AllowedOrigins []string
	// RequestsPerSecond caps per-client request rates; 0 disables limiting.
	RequestsPerSecond int
	Log               *logger.Logger
}

type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the router exposing the admin REST API under /api/v1.
func NewHandler(application *app.Application, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := chi.NewRouter()
	r.Use(middleware.NewTracing(log).Handler)
	r.Use(metrics.InstrumentHandler)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.NewCORS(opts.AllowedOrigins).Handler)
	}
	if opts.RequestsPerSecond > 0 {
		r.Use(middleware.NewRateLimiter(opts.RequestsPerSecond, opts.RequestsPerSecond*2, log).Handler)
	}

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// The dashboard-key lookup is the guide-facing surface; everything else
	// is admin-only.
	r.Get("/api/v1/guides/by-key/{key}", h.guideByKey)

	r.Group(func(r chi.Router) {
		auth := middleware.NewAdminAuth(opts.AdminToken, log, nil)
		r.Use(auth.Handler)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/guides", h.listGuides)
			r.Get("/stores", h.listStores)

			r.Get("/settings", h.listSettings)
			r.Put("/settings/{key}", h.updateSetting)

			r.Get("/founders", h.listFounders)
			r.Put("/founders/{storeID}", h.assignFounder)
			r.Delete("/founders/{storeID}", h.removeFounder)

			r.Get("/contributions", h.listContributions)
			r.Post("/contributions", h.addContribution)
			r.Delete("/contributions/{id}", h.deleteContribution)

			r.Route("/months/{month}", func(r chi.Router) {
				r.Get("/scores", h.listScores)
				r.Get("/payouts", h.listPayouts)
				r.Get("/status", h.monthStatus)
				r.Post("/calculate", h.calculate)
				r.Post("/lock", h.lockMonth)
				r.Post("/unlock", h.unlockMonth)
			})
		})
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) guideByKey(w http.ResponseWriter, r *http.Request) {
	g, err := h.app.Guides.ResolveByDashboardKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, g)
}

func (h *handler) listGuides(w http.ResponseWriter, r *http.Request) {
	guides, err := h.app.Guides.List(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, guides)
}

func (h *handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.app.Guides.ListStores(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stores)
}

func (h *handler) listSettings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.app.Settings.List(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) updateSetting(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.WriteServiceError(w, errors.Validation("read request body: %v", err))
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.app.Settings.Update(r.Context(), key, body); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"key": key, "status": "updated"})
}

func (h *handler) listFounders(w http.ResponseWriter, r *http.Request) {
	rows, err := h.app.Founders.ListByGuide(r.Context(), r.URL.Query().Get("guide_id"))
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) assignFounder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GuideID string `json:"guide_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	a, err := h.app.Founders.Assign(r.Context(), chi.URLParam(r, "storeID"), payload.GuideID)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) removeFounder(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Founders.Remove(r.Context(), chi.URLParam(r, "storeID")); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listContributions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := h.app.Contributions.List(r.Context(), contribution.Filter{
		Month:   q.Get("month"),
		GuideID: q.Get("guide_id"),
		StoreID: q.Get("store_id"),
	})
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *handler) addContribution(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		StoreID     string `json:"store_id"`
		GuideID     string `json:"guide_id"`
		Month       string `json:"month"`
		Type        string `json:"type"`
		EvidenceURL string `json:"evidence_url"`
		Memo        string `json:"memo"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	rec, err := h.app.Contributions.Add(r.Context(),
		payload.StoreID, payload.GuideID, payload.Month, payload.Type, payload.EvidenceURL, payload.Memo)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *handler) deleteContribution(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Contributions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listScores(w http.ResponseWriter, r *http.Request) {
	rows, err := h.app.Payouts.ListScores(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) listPayouts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.app.Payouts.ListPayouts(r.Context(), chi.URLParam(r, "month"), r.URL.Query().Get("guide_id"))
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) monthStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.app.Payouts.Status(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *handler) calculate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.app.Payouts.RunMonthlyCalculation(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *handler) lockMonth(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	ctx := r.Context()
	entry, err := h.app.Payouts.Lock(ctx, chi.URLParam(r, "month"), logging.GetUser(ctx), logging.GetRole(ctx), payload.Reason)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *handler) unlockMonth(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	ctx := r.Context()
	entry, err := h.app.Payouts.Unlock(ctx, chi.URLParam(r, "month"), logging.GetUser(ctx), logging.GetRole(ctx), payload.Reason)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// decodeJSON parses a request body, tolerating an empty body as an empty
// object so optional payloads (lock reasons) need no special casing.
func decodeJSON(body io.Reader, dst interface{}) error {
	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return errors.Validation("read request body: %v", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Validation("invalid JSON body: %v", err)
	}
	return nil
}
