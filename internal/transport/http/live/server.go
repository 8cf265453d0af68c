// Package livehttp exposes the running agent over HTTP: health, decision
// history, performance and an equity curve page.
package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"arena/internal/executor/paper"
	"arena/internal/logger"
	"arena/internal/store/decisionlog"
)

// Server is the read-only status HTTP server.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server dependencies.
type ServerConfig struct {
	Addr      string
	Decisions *decisionlog.Store
	Broker    *paper.Broker
}

// NewServer builds the status server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Decisions == nil {
		return nil, errors.New("live http server requires the decision log")
	}
	if cfg.Broker == nil {
		return nil, errors.New("live http server requires the paper broker")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/live")
	api.GET("/decisions", decisionsHandler(cfg.Decisions))
	api.GET("/performance", performanceHandler(cfg.Decisions))
	api.GET("/account", accountHandler(cfg.Broker))
	api.GET("/positions", positionsHandler(cfg.Broker))
	api.GET("/orders", ordersHandler(cfg.Broker))

	router.GET("/charts/equity", equityChartHandler(cfg.Decisions))

	return &Server{addr: cfg.Addr, router: router}, nil
}

func decisionsHandler(store *decisionlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		records, err := store.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if records == nil {
			records = []decisionlog.Record{}
		}
		c.JSON(http.StatusOK, gin.H{"decisions": records})
	}
}

func performanceHandler(store *decisionlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := store.PerformanceSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func accountHandler(broker *paper.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := broker.Account(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func positionsHandler(broker *paper.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		positions, err := broker.Positions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if positions == nil {
			positions = []paper.PositionSnapshot{}
		}
		c.JSON(http.StatusOK, gin.H{"positions": positions})
	}
}

func ordersHandler(broker *paper.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		orders, err := broker.OrderHistory(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if orders == nil {
			orders = []paper.OrderReceipt{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// requestLogger traces manual API hits at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until the context is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
