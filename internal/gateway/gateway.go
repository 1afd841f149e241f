package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/crosslogic/accounting-engine/internal/billing"
	"github.com/crosslogic/accounting-engine/internal/catalogue"
	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/crosslogic/accounting-engine/internal/workspace"
	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gateway serves the authenticated read API over the catalogue, workspace
// map, and event query.
type Gateway struct {
	store     *store.Store
	catalogue *catalogue.Catalogue
	workspace *workspace.Map
	query     *billing.EventQuery
	logger    *zap.Logger
	rootPath  string
	router    *chi.Mux
}

// New creates a Gateway and configures its routes under rootPath (e.g.
// "/api/").
func New(st *store.Store, cat *catalogue.Catalogue, wsMap *workspace.Map, query *billing.EventQuery, logger *zap.Logger, rootPath string) *Gateway {
	g := &Gateway{
		store:     st,
		catalogue: cat,
		workspace: wsMap,
		query:     query,
		logger:    logger,
		rootPath:  rootPath,
		router:    chi.NewRouter(),
	}
	g.setupRoutes()
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

func (g *Gateway) setupRoutes() {
	g.router.Use(middleware.RequestID)
	g.router.Use(middleware.RealIP)
	g.router.Use(g.requestIDResponseMiddleware)
	g.router.Use(g.loggerMiddleware)
	g.router.Use(middleware.Recoverer)
	g.router.Use(middleware.Timeout(30 * time.Second))

	g.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	g.router.Get("/healthz", g.handleHealth)
	g.router.Get("/readyz", g.handleReady)

	g.router.Route(g.rootPath, func(r chi.Router) {
		r.Use(g.authMiddleware)

		r.Get("/workspaces/{workspace}/accounting/usage-data", g.handleWorkspaceUsage)
		r.Get("/accounts/{account}/accounting/usage-data", g.handleAccountUsage)
		r.Get("/accounting/skus", g.handleListSKUs)
		r.Get("/accounting/skus/{sku}", g.handleGetSKU)
		r.Get("/accounting/prices", g.handleListPrices)
	})
}

func (g *Gateway) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		g.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

func (g *Gateway) requestIDResponseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware decodes the bearer token and stores its claims in the
// request context. It does not itself enforce per-resource authorisation;
// individual handlers do that once they know which workspace or account is
// being requested.
func (g *Gateway) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := decodeBearerToken(r)
		if err != nil {
			if aerr, ok := err.(*authErr); ok {
				g.writeError(w, aerr.status, aerr.msg)
				return
			}
			g.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := g.store.Health(r.Context()); err != nil {
		g.writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// eventView is the JSON shape of a billing event as returned by the usage
// endpoints. The user field is included per this deployment's choice on the
// open question the spec leaves to the implementer (see DESIGN.md).
type eventView struct {
	UUID       uuid.UUID  `json:"uuid"`
	EventStart string     `json:"event_start"`
	EventEnd   string     `json:"event_end"`
	Item       string     `json:"item"`
	Workspace  string     `json:"workspace"`
	User       *uuid.UUID `json:"user,omitempty"`
	Quantity   float64    `json:"quantity"`
}

func toEventView(v models.BillingEventView) eventView {
	return eventView{
		UUID:       v.UUID,
		EventStart: v.EventStart.UTC().Format("2006-01-02T15:04:05Z"),
		EventEnd:   v.EventEnd.UTC().Format("2006-01-02T15:04:05Z"),
		Item:       v.SKU,
		Workspace:  v.Workspace,
		User:       v.User,
		Quantity:   v.Quantity,
	}
}

func (g *Gateway) handleWorkspaceUsage(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	ws := chi.URLParam(r, "workspace")
	if !claims.CanAccessWorkspace(ws) {
		g.writeError(w, http.StatusUnauthorized, "not a member of this workspace")
		return
	}

	params, err := parseUsageParams(r, 100)
	if err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.Workspace = ws

	views, err := g.query.FindEvents(r.Context(), *params)
	if err != nil {
		g.logger.Error("workspace usage query failed", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	g.addUsageDataHeaders(w)
	g.writeJSON(w, http.StatusOK, toEventViews(views))
}

func (g *Gateway) handleAccountUsage(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	account := chi.URLParam(r, "account")
	if !claims.CanAccessAccount(account) {
		g.writeError(w, http.StatusUnauthorized, "not authorised for this account")
		return
	}

	accountID, err := uuid.Parse(account)
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "malformed account id")
		return
	}

	params, err := parseUsageParams(r, 100)
	if err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.HasAccount = true
	params.Account = accountID

	views, err := g.query.FindEvents(r.Context(), *params)
	if err != nil {
		g.logger.Error("account usage query failed", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	g.addUsageDataHeaders(w)
	g.writeJSON(w, http.StatusOK, toEventViews(views))
}

func (g *Gateway) handleListSKUs(w http.ResponseWriter, r *http.Request) {
	items, err := g.catalogue.ListItems(r.Context())
	if err != nil {
		g.logger.Error("list skus failed", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	g.addGlobalDataHeaders(w)
	g.writeJSON(w, http.StatusOK, items)
}

func (g *Gateway) handleGetSKU(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	item, err := g.catalogue.GetItem(r.Context(), sku)
	if err != nil {
		w.Header().Set("Cache-Control", "max-age=60")
		g.writeError(w, http.StatusNotFound, "unknown sku")
		return
	}
	g.addGlobalDataHeaders(w)
	g.writeJSON(w, http.StatusOK, item)
}

func (g *Gateway) handleListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := g.catalogue.CurrentPrices(r.Context(), time.Now().UTC())
	if err != nil {
		g.logger.Error("list prices failed", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	g.addGlobalDataHeaders(w)
	g.writeJSON(w, http.StatusOK, prices)
}

// addUsageDataHeaders sets the declarative caching headers for
// per-workspace/account endpoints.
func (g *Gateway) addUsageDataHeaders(w http.ResponseWriter) {
	w.Header().Set("Vary", "Cookie,Authorization,Accept-Encoding")
	w.Header().Set("Cache-Control", "private,max-age=5")
}

// addGlobalDataHeaders sets the declarative caching headers for global
// (SKUs/prices) endpoints.
func (g *Gateway) addGlobalDataHeaders(w http.ResponseWriter) {
	w.Header().Set("Vary", "Accept-Encoding")
	w.Header().Set("Cache-Control", "private,max-age=300")
}

func toEventViews(views []models.BillingEventView) []eventView {
	out := make([]eventView, 0, len(views))
	for _, v := range views {
		out = append(out, toEventView(v))
	}
	return out
}

func parseUsageParams(r *http.Request, defaultLimit int) (*billing.Params, error) {
	q := r.URL.Query()
	p := &billing.Params{Limit: defaultLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errBadParam("limit")
		}
		p.Limit = n
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errBadParam("start")
		}
		t = t.UTC()
		p.Start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errBadParam("end")
		}
		t = t.UTC()
		p.End = &t
	}
	if v := q.Get("after"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, errBadParam("after")
		}
		p.After = &id
	}
	if v := q.Get("time-aggregation"); v != "" {
		switch v {
		case "day", "month":
			p.Aggregation = v
		default:
			return nil, errBadParam("time-aggregation")
		}
	}
	return p, nil
}

func errBadParam(name string) error {
	return &paramError{name}
}

type paramError struct{ name string }

func (e *paramError) Error() string { return "malformed query parameter: " + e.name }

func (g *Gateway) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, message string) {
	g.writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]string{"message": message},
	})
}
