package v1

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/imagegen-service/internal/core/domain"
	"github.com/duynhne/imagegen-service/internal/core/repository"
	"github.com/duynhne/imagegen-service/internal/images"
	"github.com/duynhne/imagegen-service/internal/replicate"
)

// fakeUserRepo is an in-memory domain.UserRepository.
type fakeUserRepo struct {
	nextID      int64
	users       []domain.UserRow
	createCalls int
	getErr      error
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.UserRow, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.users {
		if f.users[i].Username == username {
			return &f.users[i], nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	row, err := f.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func (f *fakeUserRepo) Create(_ context.Context, username, passwordHash string) (int64, error) {
	f.createCalls++
	f.nextID++
	f.users = append(f.users, domain.UserRow{
		ID:           f.nextID,
		Username:     username,
		PasswordHash: passwordHash,
	})
	return f.nextID, nil
}

// fakeGenerationRepo is an in-memory domain.GenerationRepository. ListByUser
// honors the store contract of returning rows newest first.
type fakeGenerationRepo struct {
	nextID    int64
	rows      []domain.GenerationRow
	createErr error
	listErr   error
}

func (f *fakeGenerationRepo) Create(_ context.Context, userID int64, imageLink, promptUsed string) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.rows = append(f.rows, domain.GenerationRow{
		ID:         f.nextID,
		UserID:     userID,
		ImageLink:  imageLink,
		PromptUsed: promptUsed,
		CreatedAt:  fmt.Sprintf("2026-01-01T00:00:%02dZ", f.nextID),
	})
	return f.nextID, nil
}

func (f *fakeGenerationRepo) ListByUser(_ context.Context, userID int64) ([]domain.GenerationRow, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.GenerationRow
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

// fakeGenerator records calls and returns a canned URL or error.
type fakeGenerator struct {
	url   string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.url, f.err
}

// fakeFetcher passes or fails the display check.
type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(context.Context, string) (*images.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &images.Result{Format: "png"}, nil
}

type fixture struct {
	svc         *StudioService
	users       *fakeUserRepo
	generations *fakeGenerationRepo
	generator   *fakeGenerator
	fetcher     *fakeFetcher
}

func newFixture() *fixture {
	users := &fakeUserRepo{}
	generations := &fakeGenerationRepo{}
	generator := &fakeGenerator{url: "https://cdn.example.com/img-1.png"}
	fetcher := &fakeFetcher{}
	svc := NewStudioService(users, generations, repository.NewSessionStore(), generator, fetcher)
	return &fixture{svc: svc, users: users, generations: generations, generator: generator, fetcher: fetcher}
}

func register(t *testing.T, f *fixture, username, password string) *domain.AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterThenLoginReturnsSameAccount(t *testing.T) {
	f := newFixture()

	created := register(t, f, "alice", "hunter2")

	loggedIn, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Username: "alice",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, loggedIn.User.ID)
	assert.Equal(t, "alice", loggedIn.User.Username)
	assert.NotEmpty(t, loggedIn.Token)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newFixture()
	register(t, f, "alice", "hunter2")

	_, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice",
		Password: "other",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, 1, f.users.createCalls, "duplicate registration must not insert")
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	f := newFixture()
	register(t, f, "alice", "hunter2")

	require.Len(t, f.users.users, 1)
	assert.NotEqual(t, "hunter2", f.users.users[0].PasswordHash)
	assert.NotEmpty(t, f.users.users[0].PasswordHash)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture()
	register(t, f, "alice", "hunter2")

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Username: "nobody",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGenerateEmptyPromptNeverCallsService(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.Generate(context.Background(), auth.Token, prompt)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
	assert.Zero(t, f.generator.calls)
}

func TestGenerateSuccess(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")

	result, err := f.svc.Generate(context.Background(), auth.Token, "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/img-1.png", result.ImageURL)
	assert.True(t, result.Saved)
	assert.True(t, result.DisplayVerified)
	assert.Empty(t, result.Warnings)

	sess, err := f.svc.SessionFromToken(context.Background(), auth.Token)
	require.NoError(t, err)
	assert.Equal(t, result.ImageURL, sess.Snapshot().LastImage)

	require.Len(t, f.generations.rows, 1)
	assert.Equal(t, "a red fox", f.generations.rows[0].PromptUsed)
}

func TestGeneratePersistFailureKeepsLastImage(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")
	f.generations.createErr = fmt.Errorf("store down")

	result, err := f.svc.Generate(context.Background(), auth.Token, "a red fox")
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.Equal(t, "https://cdn.example.com/img-1.png", result.ImageURL)
	assert.NotEmpty(t, result.Warnings)

	// Re-reading session state yields the same URL until the next
	// generation or logout.
	for i := 0; i < 2; i++ {
		sess, err := f.svc.SessionFromToken(context.Background(), auth.Token)
		require.NoError(t, err)
		assert.Equal(t, result.ImageURL, sess.Snapshot().LastImage)
	}
}

func TestGenerateDisplayCheckFailureStillSaves(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")
	f.fetcher.err = fmt.Errorf("decode failed")

	result, err := f.svc.Generate(context.Background(), auth.Token, "a red fox")
	require.NoError(t, err)
	assert.False(t, result.DisplayVerified)
	assert.True(t, result.Saved, "persistence is unconditional on the display check")
	assert.Len(t, f.generations.rows, 1)
}

func TestGenerateUpstreamFailure(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")
	f.generator.url = ""
	f.generator.err = fmt.Errorf("dial tcp: connection refused")

	_, err := f.svc.Generate(context.Background(), auth.Token, "a red fox")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, f.generations.rows)
}

func TestGenerateNoOutputMapsToGenerationFailed(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")
	f.generator.url = ""
	f.generator.err = fmt.Errorf("prediction abc: %w", replicate.ErrNoOutput)

	_, err := f.svc.Generate(context.Background(), auth.Token, "a red fox")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestListGenerationsEmptyGallery(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")

	rows, err := f.svc.ListGenerations(context.Background(), auth.Token)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestListGenerationsStoreFailureYieldsEmpty(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")
	f.generations.listErr = fmt.Errorf("store down")

	rows, err := f.svc.ListGenerations(context.Background(), auth.Token)
	require.NoError(t, err, "store failure is reported, not returned")
	assert.Empty(t, rows)
}

func TestListGenerationsNewestFirst(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")

	for _, prompt := range []string{"first", "second", "third"} {
		_, err := f.svc.Generate(context.Background(), auth.Token, prompt)
		require.NoError(t, err)
	}

	rows, err := f.svc.ListGenerations(context.Background(), auth.Token)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "third", rows[0].PromptUsed)
	assert.Equal(t, "second", rows[1].PromptUsed)
	assert.Equal(t, "first", rows[2].PromptUsed)
}

func TestListGenerationsOnlyOwnRecords(t *testing.T) {
	f := newFixture()
	alice := register(t, f, "alice", "hunter2")
	bob := register(t, f, "bob", "hunter3")

	_, err := f.svc.Generate(context.Background(), alice.Token, "alice's fox")
	require.NoError(t, err)

	rows, err := f.svc.ListGenerations(context.Background(), bob.Token)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLogoutClearsSessionAndRejectsFurtherActions(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")

	sess, err := f.svc.SessionFromToken(context.Background(), auth.Token)
	require.NoError(t, err)
	require.True(t, sess.Snapshot().LoggedIn)

	require.NoError(t, f.svc.Logout(context.Background(), auth.Token))

	// The session object itself is reset to Anonymous.
	assert.Equal(t, domain.SessionSnapshot{}, sess.Snapshot())

	_, err = f.svc.Generate(context.Background(), auth.Token, "a red fox")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.ListGenerations(context.Background(), auth.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLogoutUnknownToken(t *testing.T) {
	f := newFixture()
	err := f.svc.Logout(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// A generation request writes LastImage while the latest-creation panel polls
// the same session. Exercised under -race.
func TestGenerateConcurrentWithSessionReads(t *testing.T) {
	f := newFixture()
	auth := register(t, f, "alice", "hunter2")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_, err := f.svc.Generate(context.Background(), auth.Token, "a red fox")
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 200; i++ {
		sess, err := f.svc.SessionFromToken(context.Background(), auth.Token)
		require.NoError(t, err)
		snap := sess.Snapshot()
		if snap.LastImage != "" {
			assert.Equal(t, "https://cdn.example.com/img-1.png", snap.LastImage)
		}
	}
	<-done
}
