// Package server exposes the websocket entry point and the REST view of
// archived samples.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"straddle-stream/internal/config"
	"straddle-stream/internal/storage"
	"straddle-stream/internal/stream"
)

const defaultSampleLimit = 100

// Server hosts the push channel and the sample history API.
type Server struct {
	cfg    config.ServerConfig
	engine *gin.Engine
	logger zerolog.Logger
}

// New wires routes into a gin engine. store may be nil; the history API
// then reports persistence as unavailable.
func New(cfg config.ServerConfig, broadcaster *stream.Broadcaster, store storage.SampleStore, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger.With().Str("component", "server").Logger(),
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/ws/straddle", func(c *gin.Context) {
		broadcaster.ServeWS(c.Writer, c.Request)
	})

	engine.GET("/api/samples", s.listSamples(store))

	return s
}

type sampleView struct {
	IndexID       string  `json:"index_id"`
	AtmStrike     int64   `json:"atm_strike"`
	CallPrice     float64 `json:"call_price"`
	PutPrice      float64 `json:"put_price"`
	StraddlePrice float64 `json:"straddle_price"`
	LTP           float64 `json:"ltp"`
	Timestamp     string  `json:"timestamp"`
}

func (s *Server) listSamples(store storage.SampleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not configured"})
			return
		}

		limit := defaultSampleLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		samples, err := store.ListRecentSamples(c.Request.Context(), limit)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list samples")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load samples"})
			return
		}

		views := make([]sampleView, 0, len(samples))
		for _, sample := range samples {
			views = append(views, sampleView{
				IndexID:       sample.IndexID,
				AtmStrike:     sample.AtmStrike,
				CallPrice:     sample.CallPrice.InexactFloat64(),
				PutPrice:      sample.PutPrice.InexactFloat64(),
				StraddlePrice: sample.StraddlePrice.InexactFloat64(),
				LTP:           sample.LTP.InexactFloat64(),
				Timestamp:     sample.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, gin.H{"samples": views})
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

// Handler exposes the gin engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
