package registryapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/vbonduro/loteamento/internal/domain"
	"github.com/vbonduro/loteamento/internal/metrics"
	"github.com/vbonduro/loteamento/internal/store"
)

// blockRepository is the subset of store.BlockStore the handler requires.
type blockRepository interface {
	List(ctx context.Context) ([]domain.Block, error)
	Save(ctx context.Context, b domain.Block) (domain.Block, error)
	Delete(ctx context.Context, id string) error
	AddLot(ctx context.Context, id string, lot domain.Lot) (domain.Block, error)
	Get(ctx context.Context, id string) (domain.Block, error)
	UpdateLotStatus(ctx context.Context, id string, number int, status domain.Status) (domain.Block, error)
	UpdateOwner(ctx context.Context, id string, number int, o domain.Owner) (domain.Block, error)
}

type Options struct {
	// RateLimit caps mutating requests per second across all clients.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
	Metrics   *metrics.Metrics
}

// Handler serves the Plot Registry Service API under /loteamentos.
type Handler struct {
	log     *slog.Logger
	blocks  blockRepository
	metrics *metrics.Metrics
	limiter *rate.Limiter
}

func NewHandler(log *slog.Logger, blocks blockRepository, opts Options) *Handler {
	h := &Handler{log: log, blocks: blocks, metrics: opts.Metrics}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/loteamentos", func(r chi.Router) {
		r.Get("/", h.handleListBlocks)
		r.With(h.rateLimit).Post("/", h.handleSaveBlock)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Delete("/", h.handleDeleteBlock)
			r.Put("/lotes", h.handleAddLot)
			r.Put("/lotes/{numero}", h.handleUpdateLotStatus)
			r.Put("/lotes/{numero}/proprietario", h.handleUpdateOwner)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
		h.log.Info("http_request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// rateLimit rejects mutating requests once the shared token bucket is empty.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			h.writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	})
}

// writeStoreError maps store failures to API errors.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	h.log.Error("store error",
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func blockID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

func lotNumber(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "numero"))
}
