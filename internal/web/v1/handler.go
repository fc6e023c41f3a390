package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/imagegen-service/internal/core/domain"
	"github.com/duynhne/imagegen-service/internal/logger"
	logicv1 "github.com/duynhne/imagegen-service/internal/logic/v1"
	"github.com/duynhne/imagegen-service/middleware"
)

// Handler groups HTTP handlers for the image-studio API v1.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	studio *logicv1.StudioService
}

// NewHandler creates a new Handler with the given StudioService.
func NewHandler(studio *logicv1.StudioService) *Handler {
	return &Handler{studio: studio}
}

// RegisterRoutes registers all image-studio API v1 routes on the given
// router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.GetMe)
	rg.GET("/session", h.GetSession)
	rg.POST("/generations", h.Generate)
	rg.GET("/generations", h.Gallery)
}

// Register handles HTTP request for account creation.
func (h *Handler) Register(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		log.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.studio.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("username", req.Username).Msg("Registration failed")

		switch {
		case errors.Is(err, logicv1.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Int64("user_id", response.User.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, response)
}

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		log.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.studio.Login(ctx, req)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Login failed")

		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, logicv1.ErrUserNotFound):
			// Don't reveal that the account doesn't exist.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Int64("user_id", response.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, response)
}

// Logout handles HTTP request to close the current session.
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	token, ok := bearerToken(c)
	if !ok {
		return
	}

	if err := h.studio.Logout(ctx, token); err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Msg("Logout failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// GetMe handles HTTP request to get the current user from the session token.
// GET /api/v1/auth/me
// Authorization: Bearer <token>
func (h *Handler) GetMe(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	sess, ok := h.requireSession(ctx, c)
	if !ok {
		return
	}

	snap := sess.Snapshot()
	c.JSON(http.StatusOK, domain.User{ID: snap.UserID, Username: snap.Username})
}

// GetSession returns the full session snapshot, including the most recent
// successfully generated image URL for this session.
func (h *Handler) GetSession(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	sess, ok := h.requireSession(ctx, c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot())
}

// Generate handles HTTP request to generate an image from a prompt.
// The upstream call takes tens of seconds; the request blocks until the
// generation reaches a terminal state.
func (h *Handler) Generate(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	token, ok := bearerToken(c)
	if !ok {
		return
	}

	var req domain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		log.Error().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.studio.Generate(ctx, token, req.Prompt)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Generation failed")

		switch {
		case errors.Is(err, logicv1.ErrEmptyPrompt):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a prompt first"})
		case errors.Is(err, logicv1.ErrSessionNotFound), errors.Is(err, logicv1.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		case errors.Is(err, logicv1.ErrGenerationFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "The image service returned no image"})
		case errors.Is(err, logicv1.ErrUpstream):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Error generating image"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	log.Info().Str("image_url", result.ImageURL).Bool("saved", result.Saved).Msg("Image generated")
	c.JSON(http.StatusOK, result)
}

// Gallery handles HTTP request for the session user's generation history,
// newest first.
func (h *Handler) Gallery(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	token, ok := bearerToken(c)
	if !ok {
		return
	}

	rows, err := h.studio.ListGenerations(ctx, token)
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Msg("Gallery lookup rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	items := make([]domain.GalleryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.GalleryItem{
			ID:               row.ID,
			ImageLink:        row.ImageLink,
			PromptUsed:       row.PromptUsed,
			CreatedAt:        row.CreatedAt,
			CreatedAtDisplay: formatCreatedAt(row.CreatedAt),
		})
	}

	c.JSON(http.StatusOK, gin.H{"generations": items})
}

// requireSession resolves the bearer token to a live session, writing the
// 401 itself when the token is missing or unknown.
func (h *Handler) requireSession(ctx context.Context, c *gin.Context) (*domain.Session, bool) {
	token, ok := bearerToken(c)
	if !ok {
		return nil, false
	}

	sess, err := h.studio.SessionFromToken(ctx, token)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Token lookup failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return nil, false
	}

	return sess, true
}

// bearerToken extracts the token from the Authorization header, writing the
// 401 itself when the header is absent or malformed.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return "", false
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) <= len(bearerPrefix) || !strings.HasPrefix(authHeader, bearerPrefix) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
		return "", false
	}

	return authHeader[len(bearerPrefix):], true
}

// formatCreatedAt humanizes a store timestamp, e.g. "January 02, 2006
// 03:04 PM". Unparsable input is returned verbatim.
func formatCreatedAt(raw string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("January 02, 2006 03:04 PM")
		}
	}
	return raw
}
