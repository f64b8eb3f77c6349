// Package server exposes the store over a local JSON API for the rendering
// layer: browsing, ad-hoc queries, row edits, structure changes and export.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/rowcraft/internal/export"
	"github.com/koustreak/rowcraft/internal/logger"
	"github.com/koustreak/rowcraft/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server serves one store.
type Server struct {
	store    *store.Store
	exporter *export.Exporter
	log      *logger.Logger
	pageSize int
	router   chi.Router
}

// New builds the router. exporter may be nil, in which case the export
// routes answer 404. pageSize is the limit used when a select names none.
func New(st *store.Store, exporter *export.Exporter, log *logger.Logger, pageSize int) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	s := &Server{store: st, exporter: exporter, log: log, pageSize: pageSize}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/query", s.handleExecute)
	r.Get("/tables", s.handleListTables)

	r.Route("/tables/{schema}/{table}", func(r chi.Router) {
		r.Get("/columns", s.handleDescribe)
		r.Get("/structure", s.handleStructure)
		r.Post("/select", s.handleSelect)

		r.Post("/rows", s.handleInsert)
		r.Patch("/rows", s.handleUpdate)
		r.Delete("/rows", s.handleDelete)
		r.Post("/rows/preview", s.handlePreview)

		r.Post("/columns", s.handleAddColumn)
		r.Patch("/columns/{column}", s.handleAlterColumn)
		r.Delete("/columns/{column}", s.handleDropColumn)

		r.Post("/indexes", s.handleCreateIndex)
		r.Post("/constraints", s.handleAddConstraint)
		r.Delete("/constraints/{name}", s.handleDropConstraint)
	})
	r.Delete("/schemas/{schema}/indexes/{name}", s.handleDropIndex)

	r.Post("/exports", s.handleExport)
	r.Get("/exports", s.handleListExports)
	r.Get("/exports/*", s.handleLookupExport)

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// requestLogger logs each request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.Request(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
