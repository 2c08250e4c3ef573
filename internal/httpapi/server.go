// Package httpapi exposes the interview service over HTTP. Session
// events are streamed to clients as server-sent events, and a speech
// front end reports audio callbacks through the audio routes.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/session"
	"github.com/abhisek/intervue/internal/turn"
)

// Service is the application API the server adapts.
type Service interface {
	StartSession(ctx context.Context, plan session.Plan) (session.Handle, error)
	Resume(ctx context.Context, id string) (session.Handle, error)
	SubmitAnswer(ctx context.Context, id string, a turn.Answer) error
	Retry(ctx context.Context, id string) error
	EndSession(ctx context.Context, id string) (*interview.ScoreReport, error)
	Events(ctx context.Context, id string) (<-chan turn.Event, func(), error)
	Audio(id string) (session.AudioInput, error)
	Status(ctx context.Context, id string) (*session.Summary, error)
}

var _ Service = (*session.Service)(nil)

// Defaults fill the fields a start request leaves unset.
type Defaults struct {
	Difficulty interview.Difficulty
	Questions  int
	Duration   time.Duration
}

// Options configure a Server.
type Options struct {
	Logger *slog.Logger

	// RateLimit is requests per second per client; zero disables it.
	RateLimit float64
	Burst     int

	Defaults Defaults

	// KeepAlive is the SSE comment interval. Defaults to 15s.
	KeepAlive time.Duration
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	opts   Options
	logger *slog.Logger
	engine *gin.Engine
}

// New creates a Server and registers its routes.
func New(svc Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	s := &Server{
		svc:    svc,
		opts:   opts,
		logger: opts.Logger.With("component", "http"),
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(s.logger))
	if opts.RateLimit > 0 {
		s.engine.Use(newClientLimiter(opts.RateLimit, opts.Burst).middleware())
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/sessions")
	{
		api.POST("", s.startSession)
		api.GET("/:id", s.getSession)
		api.POST("/:id/resume", s.resumeSession)
		api.GET("/:id/events", s.streamEvents)
		api.POST("/:id/answers", s.submitAnswer)
		api.POST("/:id/retry", s.retry)
		api.POST("/:id/end", s.endSession)
		api.GET("/:id/report", s.getReport)
		api.GET("/:id/report.pdf", s.getReportPDF)
	}

	audio := api.Group("/:id/audio")
	{
		audio.POST("/onset", s.audioOnset)
		audio.POST("/partial", s.audioPartial)
		audio.POST("/end", s.audioEnd)
		audio.POST("/playback-done", s.audioPlaybackDone)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
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
