package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionIsAnonymous(t *testing.T) {
	snap := NewSession().Snapshot()
	assert.False(t, snap.LoggedIn)
	assert.Zero(t, snap.UserID)
	assert.Empty(t, snap.Username)
	assert.Empty(t, snap.LastImage)
}

func TestAuthenticateSetsUserIDAndUsernameTogether(t *testing.T) {
	sess := NewSession()
	sess.Authenticate(42, "alice")

	snap := sess.Snapshot()
	assert.True(t, snap.LoggedIn)
	assert.EqualValues(t, 42, snap.UserID)
	assert.Equal(t, "alice", snap.Username)
}

func TestResetClearsEveryField(t *testing.T) {
	sess := NewSession()
	sess.Authenticate(42, "alice")
	sess.SetLastImage("https://cdn.example.com/img.png")

	sess.Reset()

	assert.Equal(t, SessionSnapshot{}, sess.Snapshot())
}

// Exercised under -race: writers and readers share one session the way
// concurrent requests on the same token do.
func TestSessionConcurrentAccess(t *testing.T) {
	sess := NewSession()
	sess.Authenticate(42, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sess.SetLastImage(fmt.Sprintf("https://cdn.example.com/%d-%d.png", n, j))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := sess.Snapshot()
				if snap.LoggedIn {
					_ = snap.LastImage
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sess.Reset()
		sess.Authenticate(42, "alice")
	}()
	wg.Wait()
}
