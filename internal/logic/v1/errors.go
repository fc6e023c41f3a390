// Package v1 provides the session-and-gallery business logic for API
// version 1.
//
// Error Handling:
// This package defines sentinel errors for the failures a user can recover
// from by retrying a form, plus the upstream failures surfaced as visible
// messages. They should be wrapped with context using fmt.Errorf("%w") when
// returned from business logic methods.
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrUsernameTaken):
//	    c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
//	case errors.Is(err, logicv1.ErrInvalidCredentials):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
//
// No error defined here is fatal: every failure path produces a visible
// message and leaves the session interactive.
package v1

import "errors"

// Sentinel errors for session-and-gallery operations.
var (
	// ErrInvalidCredentials indicates the provided credentials are incorrect.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates the account does not exist.
	// HTTP Status: 401 Unauthorized (don't reveal account existence)
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken indicates the username already has an account.
	// HTTP Status: 409 Conflict
	ErrUsernameTaken = errors.New("username already exists")

	// ErrNotAuthenticated indicates the session is Anonymous and the
	// requested action needs a logged-in user.
	// HTTP Status: 401 Unauthorized
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionNotFound indicates the bearer token matches no live session.
	// HTTP Status: 401 Unauthorized
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyPrompt indicates a generation was requested with an empty
	// prompt. No external service is called in this case.
	// HTTP Status: 400 Bad Request
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrGenerationFailed indicates the generation service completed but
	// produced no image.
	// HTTP Status: 502 Bad Gateway
	ErrGenerationFailed = errors.New("generation produced no image")

	// ErrUpstream indicates the generation service call itself failed.
	// HTTP Status: 502 Bad Gateway
	ErrUpstream = errors.New("generation service unavailable")
)
