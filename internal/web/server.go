package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/loteamento/internal/metrics"
	"github.com/vbonduro/loteamento/internal/plotmap"
	"github.com/vbonduro/loteamento/internal/session"
)

const sessionCookie = "loteamento_sessao"

type Server struct {
	sessions  *session.Manager
	templates embed.FS
	metrics   *metrics.Metrics
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
}

func NewServer(sessions *session.Manager, tmpl embed.FS, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		sessions:  sessions,
		templates: tmpl,
		metrics:   m,
		mux:       http.NewServeMux(),
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"statusLabel": statusLabel,
			"inc":         func(i int) int { return i + 1 },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handlePlotMap)
	s.mux.HandleFunc("POST /quadras", s.handleCreateBlock)
	s.mux.HandleFunc("DELETE /quadras/{id}", s.handleDeleteBlock)
	s.mux.HandleFunc("POST /quadras/{id}/select", s.handleSelectBlock)
	s.mux.HandleFunc("POST /quadras/{id}/lotes", s.handleAddLot)
	s.mux.HandleFunc("PUT /quadras/{id}/lotes/{numero}", s.handleUpdateLotStatus)
	s.mux.HandleFunc("DELETE /quadras/{id}/lotes/{numero}", s.handleDeleteLot)
	s.mux.HandleFunc("POST /quadras/{id}/lotes/{numero}/interligar", s.handleLinkLot)
	s.mux.HandleFunc("POST /quadras/{id}/lotes/{numero}/proprietario", s.handleToggleOwner)
	s.mux.HandleFunc("PUT /quadras/{id}/lotes/{numero}/proprietario", s.handleEditDraft)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		// The mux fills in r.Pattern on the way through.
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		m.ObserveHTTPRequest(r.Method, pattern, rec.status, elapsed)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// plotMap returns the caller's PlotMap, starting a session and setting the
// cookie when the browser has none or its session expired.
func (s *Server) plotMap(w http.ResponseWriter, r *http.Request) *plotmap.PlotMap {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	pm, id, created := s.sessions.Get(r.Context(), id)
	if created {
		sessionID := id
		pm.Store().OnSelect(func(blockID string) {
			s.logger.Debug("block selected", "session", sessionID, "block", blockID)
		})
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return pm
}

// redirect sends the browser back to target after a mutation: HTMX requests
// get an HX-Redirect header, plain form posts a 303.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}
