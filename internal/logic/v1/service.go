package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/imagegen-service/internal/core/domain"
	"github.com/duynhne/imagegen-service/internal/images"
	"github.com/duynhne/imagegen-service/internal/logger"
	"github.com/duynhne/imagegen-service/internal/replicate"
	"github.com/duynhne/imagegen-service/middleware"
)

// Generator turns a prompt into a hosted image URL. Implemented by the
// replicate client; faked in tests.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageFetcher validates that a URL resolves to displayable image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*images.Result, error)
}

// StudioService implements the session-and-gallery business rules: account
// creation, login, image generation and the personal gallery. It depends on
// repository interfaces and collaborator interfaces injected via the
// constructor and MUST NOT touch the REST clients directly.
type StudioService struct {
	users       domain.UserRepository
	generations domain.GenerationRepository
	sessions    domain.SessionStore
	generator   Generator
	fetcher     ImageFetcher
}

// NewStudioService creates a StudioService with the given dependencies.
func NewStudioService(
	users domain.UserRepository,
	generations domain.GenerationRepository,
	sessions domain.SessionStore,
	generator Generator,
	fetcher ImageFetcher,
) *StudioService {
	return &StudioService{
		users:       users,
		generations: generations,
		sessions:    sessions,
		generator:   generator,
		fetcher:     fetcher,
	}
}

// Register creates an account and logs the new user straight in.
// Duplicate detection is check-then-insert: the store enforces no uniqueness
// constraint, so two concurrent registrations of the same username can both
// pass the check. Kept as a documented race from the original contract.
func (s *StudioService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "studio.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, fmt.Errorf("register user %q: %w", req.Username, ErrUsernameTaken)
	}

	userID, err := s.users.Create(ctx, req.Username, string(passwordHash))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	sess := domain.NewSession()
	sess.Authenticate(userID, req.Username)
	token := s.sessions.Create(sess)

	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &domain.AuthResponse{
		Token: token,
		User:  domain.User{ID: userID, Username: req.Username},
	}, nil
}

// Login authenticates a user and opens a fresh session.
func (s *StudioService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "studio.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	row, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %q: %w", req.Username, err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrInvalidCredentials)
	}

	sess := domain.NewSession()
	sess.Authenticate(row.ID, row.Username)
	token := s.sessions.Create(sess)

	span.SetAttributes(
		attribute.Int64("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return &domain.AuthResponse{
		Token: token,
		User:  domain.User{ID: row.ID, Username: row.Username},
	}, nil
}

// Logout resets the session to Anonymous and forgets its token.
func (s *StudioService) Logout(ctx context.Context, token string) error {
	_, span := middleware.StartSpan(ctx, "studio.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	sess, ok := s.sessions.Get(token)
	if !ok {
		return fmt.Errorf("logout: %w", ErrSessionNotFound)
	}

	// Reset before delete so any holder of the session pointer observes
	// Anonymous, not a stale LoggedIn snapshot.
	sess.Reset()
	s.sessions.Delete(token)

	span.AddEvent("session.closed")
	return nil
}

// SessionFromToken resolves the live session for a bearer token.
func (s *StudioService) SessionFromToken(ctx context.Context, token string) (*domain.Session, error) {
	_, span := middleware.StartSpan(ctx, "studio.session_from_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	sess, ok := s.sessions.Get(token)
	if !ok {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup session: %w", ErrSessionNotFound)
	}

	span.SetAttributes(attribute.Bool("session.valid", true))
	return sess, nil
}

// Generate runs one image generation for the session's user.
//
// Sequencing, in order: reject an empty prompt before any external call;
// invoke the generation service; fetch the result once purely to confirm it
// is displayable (failure is reported, not fatal); commit LastImage to the
// session; persist the gallery record. Persistence is unconditional on the
// display check, and a persistence failure leaves LastImage in place — the
// user keeps the image URL for the session even if it never reaches the
// gallery.
func (s *StudioService) Generate(ctx context.Context, token, prompt string) (*domain.GenerateResult, error) {
	ctx, span := middleware.StartSpan(ctx, "studio.generate", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	sess, err := s.SessionFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	if !snap.LoggedIn {
		return nil, fmt.Errorf("generate: %w", ErrNotAuthenticated)
	}

	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("generate: %w", ErrEmptyPrompt)
	}

	span.SetAttributes(attribute.Int64("user.id", snap.UserID))

	imageURL, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("generation.success", false))
		if errors.Is(err, replicate.ErrNoOutput) {
			return nil, fmt.Errorf("generate for user %d: %w", snap.UserID, ErrGenerationFailed)
		}
		return nil, fmt.Errorf("generate for user %d: %v: %w", snap.UserID, err, ErrUpstream)
	}

	result := &domain.GenerateResult{ImageURL: imageURL}

	if _, fetchErr := s.fetcher.Fetch(ctx, imageURL); fetchErr != nil {
		log.Warn().Err(fetchErr).Str("image_url", imageURL).Msg("Generated image failed display check")
		result.Warnings = append(result.Warnings, "image could not be verified as displayable")
	} else {
		result.DisplayVerified = true
	}

	sess.SetLastImage(imageURL)

	if _, saveErr := s.generations.Create(ctx, snap.UserID, imageURL, prompt); saveErr != nil {
		span.RecordError(saveErr)
		log.Error().Err(saveErr).Int64("user_id", snap.UserID).Msg("Failed to save generation")
		result.Warnings = append(result.Warnings, "image was generated but could not be saved to your gallery")
	} else {
		result.Saved = true
	}

	span.SetAttributes(
		attribute.Bool("generation.success", true),
		attribute.Bool("generation.saved", result.Saved),
	)
	span.AddEvent("image.generated")

	return result, nil
}

// ListGenerations returns the session user's gallery, newest first. A store
// failure is reported and comes back as an empty gallery, never an error:
// callers must treat "empty" as ambiguous between "no generations yet" and
// "query failed".
func (s *StudioService) ListGenerations(ctx context.Context, token string) ([]domain.GenerationRow, error) {
	ctx, span := middleware.StartSpan(ctx, "studio.list_generations", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	sess, err := s.SessionFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	if !snap.LoggedIn {
		return nil, fmt.Errorf("list generations: %w", ErrNotAuthenticated)
	}

	span.SetAttributes(attribute.Int64("user.id", snap.UserID))

	rows, err := s.generations.ListByUser(ctx, snap.UserID)
	if err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Error().Err(err).Int64("user_id", snap.UserID).Msg("Failed to fetch generations")
		return []domain.GenerationRow{}, nil
	}
	if rows == nil {
		rows = []domain.GenerationRow{}
	}

	return rows, nil
}
