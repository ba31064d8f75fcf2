package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"heartrate-go/internal/auth"
	"heartrate-go/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authorizer builds authorization URLs and redeems the resulting codes.
type Authorizer interface {
	AuthCodeURL() (string, string, error)
	Exchange(ctx context.Context, code, state string) (auth.TokenRecord, error)
}

// TokenSaver persists a newly obtained token.
type TokenSaver interface {
	Save(ctx context.Context, record auth.TokenRecord) error
}

// JobControl exposes the scheduler to the HTTP surface.
type JobControl interface {
	Status() scheduler.Status
	Trigger()
}

// Server is the daemon's HTTP surface.
type Server struct {
	auth   Authorizer
	tokens TokenSaver
	jobs   JobControl
	logger *slog.Logger
	router *gin.Engine
}

// NewServer creates a new Server and registers its routes. jobs may be nil,
// in which case /healthz reports no scheduler state and /collect is not
// registered.
func NewServer(authorizer Authorizer, tokens TokenSaver, jobs JobControl, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		auth:   authorizer,
		tokens: tokens,
		jobs:   jobs,
		logger: logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/login", s.handleLogin)
	router.GET("/auth/callback", s.handleAuthCallback)
	if jobs != nil {
		router.POST("/collect", s.handleCollect)
	}

	s.router = router
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.jobs != nil {
		st := s.jobs.Status()
		body["runs"] = st.Runs
		body["failures"] = st.Failures
		if !st.NextRun.IsZero() {
			body["next_run"] = st.NextRun.Format(time.RFC3339)
		}
		if !st.LastRun.IsZero() {
			body["last_run"] = st.LastRun.Format(time.RFC3339)
		}
		if st.LastError != "" {
			body["status"] = "failing"
			body["last_error"] = st.LastError
		} else if st.LastResult.Key != "" {
			body["last_key"] = st.LastResult.Key
		}
	}
	c.JSON(http.StatusOK, body)
}

// handleLogin starts the authorization-code flow by redirecting to the
// provider's consent page.
func (s *Server) handleLogin(c *gin.Context) {
	authURL, _, err := s.auth.AuthCodeURL()
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "failed to generate auth URL", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate auth URL"})
		return
	}
	c.Redirect(http.StatusSeeOther, authURL)
}

// handleAuthCallback handles the provider's redirect after consent. It
// exchanges the code for a token and replaces the stored token.
func (s *Server) handleAuthCallback(c *gin.Context) {
	ctx := c.Request.Context()

	if providerErr := c.Query("error"); providerErr != "" {
		s.logger.WarnContext(ctx, "authorization denied", "error", providerErr, "description", c.Query("error_description"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization denied: " + providerErr})
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code or state"})
		return
	}

	record, err := s.auth.Exchange(ctx, code, state)
	if err != nil {
		s.logger.ErrorContext(ctx, "auth callback error", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, auth.ErrInvalidState) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "authentication failed"})
		return
	}

	if err := s.tokens.Save(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to save token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save token"})
		return
	}

	s.logger.InfoContext(ctx, "token saved from browser login", "scope", record.Scope)
	c.String(http.StatusOK, "Token saved. You can close this window.")
}

// handleCollect asks the scheduler for an immediate run.
func (s *Server) handleCollect(c *gin.Context) {
	s.jobs.Trigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}
