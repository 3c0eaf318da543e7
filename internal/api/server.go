package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"MarketFeed/internal/collector"
	"MarketFeed/internal/history"
	"MarketFeed/internal/market"
	"MarketFeed/internal/model"
)

const defaultPeriod = string(model.Period3M)

// Market is the query surface the API serves.
type Market interface {
	Snapshot() model.RefreshState
	RefreshMarketData(ctx context.Context) error
	GetUniqueCommodities() []string
	GetUniqueDeliveryCentres() []string
	GetMarketStatistics() model.MarketStatistics
	GetHistoricalData(ctx context.Context, symbol, period string) (*model.HistoricalSeries, error)
	GetHistoricalChart(ctx context.Context, symbol, period string) ([]byte, *model.HistoricalSeries, error)
}

// Server exposes market data over HTTP.
type Server struct {
	market Market
	logger *zap.Logger
	engine *gin.Engine
	http   *http.Server
}

// NewServer creates a new Server listening on addr once Start is called.
func NewServer(m Market, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		market: m,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)

	g := s.engine.Group("/api/market")
	g.GET("", s.getMarket)
	g.GET("/commodities", s.getCommodities)
	g.GET("/centres", s.getCentres)
	g.GET("/stats", s.getStats)
	g.GET("/history/:symbol", s.getHistory)
	g.GET("/history/:symbol/chart.png", s.getChart)
	g.POST("/refresh", s.postRefresh)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func (s *Server) getHealth(c *gin.Context) {
	st := s.market.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"records":     len(st.Records),
		"lastUpdated": st.LastUpdated,
		"isLoading":   st.IsLoading,
		"isStale":     st.Stale(),
	})
}

// getMarket applies every given filter to one snapshot.
func (s *Server) getMarket(c *gin.Context) {
	st := s.market.Snapshot()
	records := st.Records
	if v := c.Query("commodity"); v != "" {
		records = market.FilterByCommodity(records, v)
	}
	if v := c.Query("centre"); v != "" {
		records = market.FilterByDeliveryCentre(records, v)
	}
	if v := c.Query("q"); v != "" {
		records = market.Search(records, v)
	}
	if records == nil {
		records = []model.ProcessedRecord{}
	}

	body := gin.H{
		"records":     records,
		"count":       len(records),
		"lastUpdated": st.LastUpdated,
		"isStale":     st.Stale(),
	}
	if st.LastError != nil {
		body["lastError"] = st.LastError.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) getCommodities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commodities": s.market.GetUniqueCommodities()})
}

func (s *Server) getCentres(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"deliveryCentres": s.market.GetUniqueDeliveryCentres()})
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.market.GetMarketStatistics())
}

func (s *Server) getHistory(c *gin.Context) {
	series, err := s.market.GetHistoricalData(c.Request.Context(), c.Param("symbol"), c.DefaultQuery("period", defaultPeriod))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) getChart(c *gin.Context) {
	png, series, err := s.market.GetHistoricalChart(c.Request.Context(), c.Param("symbol"), c.DefaultQuery("period", defaultPeriod))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("X-Series-Source", string(series.Source))
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) postRefresh(c *gin.Context) {
	if err := s.market.RefreshMarketData(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	st := s.market.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"records":     len(st.Records),
		"lastUpdated": st.LastUpdated,
		"isLoading":   st.IsLoading,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, history.ErrSymbolNotFound):
		return http.StatusNotFound
	case errors.Is(err, history.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrNotEnoughPoints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, collector.ErrFeedUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
