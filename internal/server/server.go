// Package server exposes the estimate lookup over HTTP. The estimate handler
// mirrors how the hosting quote API merges the settlementEstimate field: the
// field is omitted, never null, whenever no estimate can be produced.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"settlement-times/internal/adapter"
	"settlement-times/internal/engine"
)

// Options tune the HTTP surface.
type Options struct {
	ListenAddr     string
	RequestTimeout time.Duration
	// LatencyBudget bounds estimate resolution. When resolution takes longer
	// the field is omitted so the quote response is never delayed.
	LatencyBudget time.Duration
}

// Server wires the engine and adapter behind a gin router.
type Server struct {
	opts    Options
	engine  *engine.Engine
	adapter *adapter.Adapter
	holder  *engine.Holder
	logger  zerolog.Logger
	router  *gin.Engine
}

// New constructs the server and registers routes.
func New(opts Options, eng *engine.Engine, holder *engine.Holder, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		opts:    opts,
		engine:  eng,
		adapter: adapter.New(eng),
		holder:  holder,
		logger:  logger.With().Str("component", "server").Logger(),
		router:  router,
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/api/v1/estimate", s.handleEstimate)
	router.GET("/api/v1/snapshot", s.handleSnapshot)
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

// HTTPServer wraps the router in an http.Server with sane timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.opts.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.opts.RequestTimeout,
		WriteTimeout: s.opts.RequestTimeout,
		IdleTimeout:  2 * s.opts.RequestTimeout,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if _, err := s.holder.Current(); err != nil {
		status["dataset"] = "unavailable"
	} else {
		status["dataset"] = "loaded"
	}
	c.JSON(http.StatusOK, status)
}

type estimateResponse struct {
	OriginChain        string                      `json:"originChain"`
	DestinationChain   string                      `json:"destinationChain"`
	AssetSymbol        string                      `json:"assetSymbol,omitempty"`
	AmountUSD          float64                     `json:"amountUsd"`
	SettlementEstimate *adapter.SettlementEstimate `json:"settlementEstimate,omitempty"`
}

func (s *Server) handleEstimate(c *gin.Context) {
	started := time.Now()

	amountStr := c.Query("amountUsd")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amountUsd must be a number"})
		return
	}

	origin, destination, asset, ok := s.resolveQueryNames(c)
	if !ok {
		return
	}

	resp := estimateResponse{
		OriginChain:      origin,
		DestinationChain: destination,
		AssetSymbol:      asset,
		AmountUSD:        amount,
	}

	est, resolveErr := s.adapter.EstimateForRoute(origin, destination, asset, amount)
	switch {
	case errors.Is(resolveErr, engine.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": resolveErr.Error()})
		return
	case errors.Is(resolveErr, engine.ErrDatasetUnavailable):
		s.logger.Warn().Msg("estimate requested before first snapshot; field omitted")
	case resolveErr != nil:
		s.logger.Error().Err(resolveErr).Msg("estimate resolution failed; field omitted")
	default:
		resp.SettlementEstimate = est
	}

	if budget := s.opts.LatencyBudget; budget > 0 && time.Since(started) > budget {
		s.logger.Warn().Dur("elapsed", time.Since(started)).Msg("estimate exceeded latency budget; field omitted")
		resp.SettlementEstimate = nil
	}

	c.JSON(http.StatusOK, resp)
}

// resolveQueryNames accepts either dataset vocabulary (originChain,
// destinationChain, assetSymbol) or caller vocabulary (originChainId,
// destinationChainId, assetAddress).
func (s *Server) resolveQueryNames(c *gin.Context) (origin, destination, asset string, ok bool) {
	origin = c.Query("originChain")
	destination = c.Query("destinationChain")
	asset = c.Query("assetSymbol")

	if id := c.Query("originChainId"); origin == "" && id != "" {
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "originChainId must be an integer"})
			return "", "", "", false
		}
		origin, _ = adapter.ChainName(parsed)
	}
	if id := c.Query("destinationChainId"); destination == "" && id != "" {
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "destinationChainId must be an integer"})
			return "", "", "", false
		}
		destination, _ = adapter.ChainName(parsed)
	}
	if addr := c.Query("assetAddress"); asset == "" && addr != "" {
		asset = adapter.AssetSymbol(addr)
	}
	return origin, destination, asset, true
}

func (s *Server) handleSnapshot(c *gin.Context) {
	snap, err := s.holder.Current()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot loaded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":           snap.Version(),
		"lastUpdated":       snap.LastUpdated(),
		"routeAssetEntries": snap.RouteAssetCount(),
		"categoryEntries":   snap.CategoryCount(),
		"chains":            snap.ChainCount(),
	})
}
