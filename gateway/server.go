// Package gateway is the browser-facing proxy in front of the reasoning
// service. It forwards scenario executions and tool calls upstream and turns
// every upstream outcome into a JSON body plus a status code.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/balazsgrill/synapse/internal/logger"
)

const requestIDHeader = "X-Request-ID"

var (
	allowedMethods = []string{"GET", "POST", "OPTIONS"}
	allowedHeaders = []string{"Content-Type", "Authorization"}
)

type Options struct {
	// UpstreamBaseURL is resolved once, at construction.
	UpstreamBaseURL string
	// UpstreamTimeout bounds each upstream call. Zero means no limit.
	UpstreamTimeout time.Duration
	// HTTPClient overrides the client built from UpstreamTimeout.
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

type Server struct {
	engine   *gin.Engine
	upstream *Upstream
	metrics  *Metrics
	log      *zap.SugaredLogger
}

func New(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.UpstreamTimeout}
	}
	upstream, err := NewUpstream(opts.UpstreamBaseURL, client)
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:   gin.New(),
		upstream: upstream,
		metrics:  NewMetrics(),
		log:      log,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.log.Errorw("Handler panicked", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: CodeInternal})
	}), requestLogger(s.log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              allowedMethods,
		AllowHeaders:              allowedHeaders,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}))

	r.POST("/agent", s.forwardExecute)
	r.GET("/agent", s.forwardHealth)
	r.GET("/tools", s.forwardToolList)
	r.POST("/tools", s.forwardToolInvoke)
	r.POST("/tools/:name", s.forwardToolInvokeByPath)

	// Preflight probes without an Origin header bypass the cors middleware.
	for _, path := range []string{"/agent", "/tools", "/tools/:name"} {
		r.OPTIONS(path, handlePreflight)
	}

	// Health/Ready of the gateway process itself
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Starting gateway", "addr", addr, "upstream", s.upstream.URL(""))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "gateway server failed")
	case <-ctx.Done():
		s.log.Infow("Shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		log.Infow("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
