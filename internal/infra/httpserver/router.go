package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/avelinov/trendwatch/internal/application/analysis"
	appdigest "github.com/avelinov/trendwatch/internal/application/digest"
	appmaterials "github.com/avelinov/trendwatch/internal/application/materials"
	appsubs "github.com/avelinov/trendwatch/internal/application/subscriptions"
	"github.com/avelinov/trendwatch/internal/middleware"
	"github.com/avelinov/trendwatch/internal/platform/logger"
)

type Router struct {
	analysisSvc  *appanalysis.Service
	materialsSvc *appmaterials.Service
	subsSvc      *appsubs.Service
	digestSvc    *appdigest.Service
}

func NewRouter(
	analysisSvc *appanalysis.Service,
	materialsSvc *appmaterials.Service,
	subsSvc *appsubs.Service,
	digestSvc *appdigest.Service,
	log *logger.Logger,
	checkers map[string]middleware.HealthChecker,
) http.Handler {
	r := &Router{
		analysisSvc:  analysisSvc,
		materialsSvc: materialsSvc,
		subsSvc:      subsSvc,
		digestSvc:    digestSvc,
	}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	mux.Use(middleware.Logging(log))

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Post("/analyses/digest", r.wrap(r.handleDigest))
		rt.Get("/reports", r.wrap(r.handleReports))

		rt.Post("/materials/import", r.wrap(r.handleImport))
		rt.Get("/categories", r.wrap(r.handleCategories))

		rt.Put("/subscriptions/{userID}", r.wrap(r.handleSubscribe))
		rt.Get("/subscriptions/{userID}", r.wrap(r.handleGetSubscription))
		rt.Delete("/subscriptions/{userID}", r.wrap(r.handleUnsubscribe))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/analyses
// Body: {"category": "...", "query": "...", "as_of_date": "2026-08-29"}
// Runs the full pipeline synchronously and returns the report, success or not.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Category string `json:"category"`
		Query    string `json:"query"`
		AsOfDate string `json:"as_of_date"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if body.Query == "" {
		return fmt.Errorf("query is required")
	}

	report := r.analysisSvc.Run(req.Context(), appanalysis.RunCommand{
		Category: body.Category,
		Query:    body.Query,
		AsOfDate: body.AsOfDate,
	})
	return writeJSON(w, report)
}

// POST /v1/analyses/digest
// Body: {"category": "...", "date": "2026-08-29"}
// Manually triggers one digest run; date defaults to today.
func (r *Router) handleDigest(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Category string `json:"category"`
		Date     string `json:"date"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if body.Category == "" {
		return fmt.Errorf("category is required")
	}

	report := r.digestSvc.RunFor(req.Context(), body.Category, body.Date)
	return writeJSON(w, report)
}

// GET /v1/reports?category=&page=&page_size=
func (r *Router) handleReports(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	category := req.URL.Query().Get("category")

	list, err := r.analysisSvc.Paginate(req.Context(), category, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// POST /v1/materials/import
// Accepts multipart form-data with a "file" field, or a raw CSV body.
func (r *Router) handleImport(w http.ResponseWriter, req *http.Request) error {
	var src io.Reader = req.Body
	if err := req.ParseMultipartForm(32 << 20); err == nil {
		file, _, err := req.FormFile("file")
		if err != nil {
			return fmt.Errorf("file field is required")
		}
		defer file.Close()
		src = file
	}

	result, err := r.materialsSvc.ImportCSV(req.Context(), src)
	if err != nil {
		return err
	}
	return writeJSON(w, result)
}

// GET /v1/categories
func (r *Router) handleCategories(w http.ResponseWriter, req *http.Request) error {
	list, err := r.materialsSvc.Categories(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"categories": list})
}

// PUT /v1/subscriptions/{userID}
// Body: {"category": "...", "enabled": true}
func (r *Router) handleSubscribe(w http.ResponseWriter, req *http.Request) error {
	userID := chi.URLParam(req, "userID")
	var body struct {
		Category string `json:"category"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}

	sub, err := r.subsSvc.Subscribe(req.Context(), userID, body.Category, enabled)
	if err != nil {
		return err
	}
	return writeJSON(w, sub)
}

// GET /v1/subscriptions/{userID}
func (r *Router) handleGetSubscription(w http.ResponseWriter, req *http.Request) error {
	userID := chi.URLParam(req, "userID")
	sub, err := r.subsSvc.Get(req.Context(), userID)
	if err != nil {
		return err
	}
	return writeJSON(w, sub)
}

// DELETE /v1/subscriptions/{userID}
func (r *Router) handleUnsubscribe(w http.ResponseWriter, req *http.Request) error {
	userID := chi.URLParam(req, "userID")
	if err := r.subsSvc.Unsubscribe(req.Context(), userID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
