// Package server - HTTP API для запуска отметки и просмотра истории.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"punchAgent/internal/agent"
	"punchAgent/internal/config"
	"punchAgent/internal/database"
	"punchAgent/internal/punch"
	"punchAgent/internal/sanitizer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Puncher interface {
	RunTriggered(ctx context.Context, action punch.Action, trigger string) (*agent.Result, error)
}

type History interface {
	GetRun(ctx context.Context, runID string) (*database.PunchRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]database.PunchRun, error)
}

type Server struct {
	cfg       *config.Cfg
	log       *zap.Logger
	puncher   Puncher
	history   History // nil без БД
	sanitizer *sanitizer.DataSanitizer
	now       func() time.Time
	base      context.Context // живет до остановки сервера
}

func New(cfg *config.Cfg, log *zap.Logger, puncher Puncher, history History, san *sanitizer.DataSanitizer) *Server {
	if san == nil {
		san = sanitizer.New()
	}
	return &Server{
		cfg:       cfg,
		log:       log,
		puncher:   puncher,
		history:   history,
		sanitizer: san,
		now:       time.Now,
		base:      context.Background(),
	}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/punch", s.handlePunch)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)

	return r
}

// Run слушает до отмены ctx, затем корректно останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	s.base = ctx
	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Сервер запущен", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("Остановка сервера")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handlePunch(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	override := req.Action
	if override == "" {
		override = s.cfg.Punch.Override
	}
	action, _, err := punch.Resolve(override, s.now(), s.cfg.Punch.TZOffset, s.cfg.Punch.CutoffHour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Отключение клиента не прерывает отметку, остановка сервера прерывает.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	res, err := s.puncher.RunTriggered(runCtx, action, agent.TriggerAPI)
	switch {
	case errors.Is(err, agent.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.log.Error("Отметка через API не удалась", zap.String("error", s.sanitizer.Error(err)))
		c.JSON(http.StatusBadGateway, gin.H{"error": s.sanitizer.Error(err), "action": action})
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "история запусков отключена"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad offset"})
		return
	}

	runs, err := s.history.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.log.Error("db list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "история запусков отключена"})
		return
	}

	run, err := s.history.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		s.log.Error("db get run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, run)
}
