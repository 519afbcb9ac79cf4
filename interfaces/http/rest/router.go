package rest

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"portfolio/interfaces/http/rest/handlers"
	"portfolio/interfaces/http/rest/middleware"
	pkgerrors "portfolio/pkg/errors"
	"portfolio/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessChecker reports whether the content document can be served
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Options configures the outer HTTP surface
type Options struct {
	AdminToken      string
	StaticDir       string
	UploadDir       string
	UploadURLPrefix string
	EnableCORS      bool
	CORSOrigins     []string
}

// Router creates and configures the HTTP router
type Router struct {
	content *handlers.ContentHandler
	uploads *handlers.UploadHandler
	ready   ReadinessChecker
	metrics *observability.Collector
	errors  *pkgerrors.ErrorHandler
	opts    Options
	logger  *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	content *handlers.ContentHandler,
	uploads *handlers.UploadHandler,
	ready ReadinessChecker,
	metrics *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		content: content,
		uploads: uploads,
		ready:   ready,
		metrics: metrics,
		errors:  errorHandler,
		opts:    opts,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errors.Middleware)
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.AdminTokenHeader},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.NotFound(rt.apiNotFound)
		r.MethodNotAllowed(rt.apiMethodNotAllowed)

		r.Get("/content", rt.content.ListAll)
		r.Get("/content/{key}", rt.content.ListByKind)

		// Mutations need the admin token when one is configured
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(rt.opts.AdminToken, rt.errors))

			r.Post("/content", rt.content.Create)
			r.Put("/content/{key}", rt.content.Update)
			r.Delete("/content/{key}", rt.content.Delete)
			r.Post("/upload-attachment", rt.uploads.Upload("file"))
			r.Post("/upload-cv", rt.uploads.Upload("cv"))
		})
	})

	prefix := "/" + strings.Trim(rt.opts.UploadURLPrefix, "/")
	router.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(rt.opts.UploadDir)})))

	router.Get("/sitemap.xml", rt.sitemap)
	router.Get("/*", rt.static)

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck loads the content document
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	if err := rt.ready.Ready(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		rt.errors.HandleStatus(w, req, http.StatusServiceUnavailable, "Content store unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (rt *Router) apiNotFound(w http.ResponseWriter, req *http.Request) {
	rt.errors.HandleStatus(w, req, http.StatusNotFound, "Route not found")
}

func (rt *Router) apiMethodNotAllowed(w http.ResponseWriter, req *http.Request) {
	rt.errors.HandleStatus(w, req, http.StatusMethodNotAllowed, "Method not allowed")
}

func (rt *Router) sitemap(w http.ResponseWriter, req *http.Request) {
	file := filepath.Join(rt.opts.StaticDir, "sitemap.xml")
	if _, err := os.Stat(file); err != nil {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	http.ServeFile(w, req, file)
}

// static serves files from the static directory and falls back to
// index.html so client-side routes resolve.
func (rt *Router) static(w http.ResponseWriter, req *http.Request) {
	if rt.opts.StaticDir == "" {
		http.NotFound(w, req)
		return
	}

	name := filepath.Join(rt.opts.StaticDir, filepath.FromSlash(path.Clean("/"+req.URL.Path)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		http.ServeFile(w, req, name)
		return
	}

	index := filepath.Join(rt.opts.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, req)
		return
	}
	http.ServeFile(w, req, index)
}

// filesOnly hides directories so uploads cannot be listed
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
