package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-cache/src/analysis"
	"market-cache/src/cache"
	"market-cache/src/interfaces"
	"market-cache/src/logger"
	"market-cache/src/models"
	"market-cache/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer exposes the cache over REST and streams write-path events over
// WebSocket. It is the rendering-layer boundary; all data access goes
// through the orchestrator.
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	orchestrator *cache.Orchestrator
	fetcher      interfaces.IFetcher
	indicators   *analysis.IndicatorEngine

	// WebSocket clients
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan models.MCacheEvent
	register   chan *Client
	unregister chan *Client
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, orch *cache.Orchestrator, fetcher interfaces.IFetcher, ind *analysis.IndicatorEngine, log *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:       cfg,
		Logger:       log,
		engine:       gin.Default(),
		orchestrator: orch,
		fetcher:      fetcher,
		indicators:   ind,
		clients:      make(map[*Client]struct{}),
		// Buffered channel so write-path broadcasts never block the cache
		broadcast:  make(chan models.MCacheEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/events", s.getEvents)
	s.engine.GET("/api/candles/:symbol", s.getCandles)
	s.engine.GET("/api/indicators/:symbol/:name", s.getIndicator)
	s.engine.DELETE("/api/cache/:symbol", s.invalidateSymbol)
	s.engine.DELETE("/api/cache", s.clearCache)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": connections,
		"degraded":    s.orchestrator.Degraded(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.orchestrator.Stats())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	c.JSON(http.StatusOK, s.orchestrator.RecentEvents(limit))
}

// -----------------------------------------------------------------------------

func (s *APIServer) getCandles(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := c.DefaultQuery("interval", utils.Interval1d)
	rangeStr := c.DefaultQuery("range", s.defaultRange())

	series, err := s.orchestrator.GetWithFallback(c.Request.Context(), symbol, interval,
		s.candleFetchFn(symbol, interval, rangeStr))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   strings.ToLower(symbol),
		"interval": interval,
		"candles":  series,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getIndicator(c *gin.Context) {
	symbol := c.Param("symbol")
	name := c.Param("name")
	interval := c.DefaultQuery("interval", utils.Interval1d)
	rangeStr := c.DefaultQuery("range", s.defaultRange())

	// Every remaining query arg becomes an indicator parameter, so the key
	// covers exactly what the computation saw.
	params := make(map[string]string)
	for k, vs := range c.Request.URL.Query() {
		if k == "interval" || k == "range" || k == "from" || k == "to" || len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}

	from, to, err := parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cal := utils.GetCalendar(symbol)
	key := cache.IndicatorKey(symbol, interval, name, params, from, to, cal)

	computeFn := func(ctx context.Context) (*models.MIndicatorOutput, error) {
		candles, err := s.orchestrator.GetWithFallback(ctx, symbol, interval,
			s.candleFetchFn(symbol, interval, rangeStr))
		if err != nil {
			return nil, err
		}
		return s.indicators.Compute(name, params, candles)
	}

	out, err := s.orchestrator.GetIndicatorWithFallback(c.Request.Context(), key, computeFn)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":    key.ID,
		"result": out,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) invalidateSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	s.orchestrator.Invalidate(c.Request.Context(), symbol)
	c.JSON(http.StatusOK, gin.H{"invalidated": strings.ToLower(symbol)})
}

// -----------------------------------------------------------------------------

func (s *APIServer) clearCache(c *gin.Context) {
	s.orchestrator.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *APIServer) defaultRange() string {
	if r := s.Config.DataSource.DefaultRange; r != "" {
		return r
	}
	return "1mo"
}

// -----------------------------------------------------------------------------

func (s *APIServer) candleFetchFn(symbol, interval, rangeStr string) cache.FetchCandlesFunc {
	return func(ctx context.Context) ([]models.MCandle, error) {
		return s.fetcher.FetchCandles(ctx, symbol, interval, rangeStr)
	}
}

// -----------------------------------------------------------------------------

func parseRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	if fromRaw == "" && toRaw == "" {
		return nil, nil, nil
	}
	if fromRaw == "" || toRaw == "" {
		return nil, nil, fmt.Errorf("from and to must be supplied together")
	}

	from, err := time.Parse(time.RFC3339, fromRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid 'from': %w", err)
	}
	to, err := time.Parse(time.RFC3339, toRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid 'to': %w", err)
	}
	return &from, &to, nil
}
