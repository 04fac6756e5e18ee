// Package server exposes the mapping engine over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homemade/remap/internal/rulesource"
	"github.com/homemade/remap/internal/rulestore"
	"github.com/homemade/remap/mapping"
)

// RuleStore is the persistence the rule endpoints need. *rulestore.Store
// satisfies it.
type RuleStore interface {
	Get(ctx context.Context, code string) (rulestore.StoredRuleSet, error)
	Codes(ctx context.Context) ([]string, error)
	Create(ctx context.Context, code string, document []byte) error
	Save(ctx context.Context, code string, document []byte) error
	Delete(ctx context.Context, code string) error
}

type Server struct {
	registry *mapping.Registry
	executor *mapping.Executor
	store    RuleStore
	reloader rulesource.Reloader
	metrics  *Metrics
	logger   *slog.Logger
	engine   *gin.Engine
}

type Option func(*Server)

func WithStore(store RuleStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

func WithReloader(r rulesource.Reloader) Option {
	return func(s *Server) {
		s.reloader = r
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(registry *mapping.Registry, executor *mapping.Executor, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	m := r.Group("/mapping")
	m.POST("/process", s.process)
	m.GET("/rule", s.listRules)
	m.POST("/rule", s.createRule)
	m.GET("/rule/:code", s.getRule)
	m.PUT("/rule/:code", s.replaceRule)
	m.DELETE("/rule/:code", s.deleteRule)
	m.PUT("/rule/:code/mapping", s.putMapping)
	m.DELETE("/rule/:code/mapping", s.deleteMapping)
	m.GET("/rule/:code/doc.csv", s.ruleDoc)

	r.POST("/admin/reload", s.reload)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return r
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve runs an http.Server on addr until ctx is done, then shuts it down
// within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("address", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ruleSets": s.registry.Len()})
}

func (s *Server) reload(c *gin.Context) {
	if s.reloader == nil {
		abortWithError(c, http.StatusNotImplemented, "reload_unavailable", "no rule source configured")
		return
	}
	result, err := s.reloader.Reload(c.Request.Context())
	if err != nil {
		requestLogger(c, s.logger).Error("reload failed", slog.String("error", err.Error()))
		abortWithError(c, http.StatusBadGateway, "reload_failed", err.Error())
		return
	}
	s.metrics.SetRuleSets(s.registry.Len())
	invalid := make(map[string]string, len(result.Invalid))
	for code, err := range result.Invalid {
		invalid[code] = err.Error()
	}
	c.JSON(http.StatusOK, gin.H{"loaded": result.Loaded, "invalid": invalid})
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"code":    code,
		},
	})
}
