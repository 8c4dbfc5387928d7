// Package server exposes the pricers over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/straddle-pricer/internal/config"
	"github.com/contactkeval/straddle-pricer/internal/data"
	"github.com/contactkeval/straddle-pricer/internal/engine"
	"github.com/contactkeval/straddle-pricer/internal/logger"
	"github.com/contactkeval/straddle-pricer/internal/pricing"
	"github.com/contactkeval/straddle-pricer/internal/report"
)

// MaxPaths caps the Monte Carlo paths of a single price request.
const MaxPaths = 10_000_000

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg     *config.Config
	prov    data.Provider
	metrics *metrics
	router  *gin.Engine
}

// PriceRequest is the body of POST /api/v1/straddle/price. Paths defaults to
// config.DefaultPaths and Seed to the clock.
type PriceRequest struct {
	pricing.MarketParameters
	Paths   int    `json:"paths"`
	Seed    uint64 `json:"seed"`
	Workers int    `json:"workers" binding:"gte=0,lte=256"`
}

// New builds the router. cfg and prov back POST /run.
func New(cfg *config.Config, prov data.Provider) *Server {
	s := &Server{cfg: cfg, prov: prov, metrics: newMetrics()}

	r := gin.New()
	r.Use(gin.Recovery(), s.metrics.middleware())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	r.POST("/run", s.run)

	api := r.Group("/api/v1/straddle")
	{
		api.POST("/price", s.price)
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("starting REST server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "REST server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Infof("shutting down REST server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// run executes the configured engine once.
func (s *Server) run(c *gin.Context) {
	logger.Infof("received /run request")

	cfg := *s.cfg
	res, err := engine.NewEngine(&cfg, s.prov).Run(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.paths.Add(float64(res.MonteCarlo.SampleCount))
	c.JSON(http.StatusOK, report.NewDocument(res))
}

func (s *Server) price(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Paths == 0 {
		req.Paths = config.DefaultPaths
	}
	if req.Paths > MaxPaths {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paths exceeds the per-request limit"})
		return
	}
	if req.Seed == 0 {
		req.Seed = uint64(time.Now().UnixNano())
	}

	q, err := engine.Price(c.Request.Context(), req.MarketParameters, req.Paths, req.Seed, req.Workers)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.paths.Add(float64(req.Paths))
	c.JSON(http.StatusOK, report.NewQuoteDocument(q))
}

// fail maps input errors to 400 and everything else to 500.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, pricing.ErrInvalidParameter) || errors.Is(err, pricing.ErrInvalidSampleCount) {
		status = http.StatusBadRequest
	} else {
		logger.Errorf("%s failed: %v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
