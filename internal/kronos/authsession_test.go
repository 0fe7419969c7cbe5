// internal/kronos/authsession_test.go
package kronos

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const loginPage = `<html><head><meta name="csrf-token" content="csrf-123"></head></html>`

// adminLoginServer serves the two-step login flow and counts completed logins.
func adminLoginServer(t *testing.T, loginCount *atomic.Int32, loginDelay time.Duration) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/app/admin/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "kronos_session", Value: "cookie-abc"})
			fmt.Fprint(w, loginPage)
			return
		}

		require.Equal(t, "csrf-123", r.Header.Get("X-Csrf-Token"))
		cookie, err := r.Cookie("kronos_session")
		require.NoError(t, err)
		require.Equal(t, "cookie-abc", cookie.Value)

		if loginDelay > 0 {
			time.Sleep(loginDelay)
		}
		loginCount.Add(1)
		writeJSON(t, w, map[string]any{"token": "admin-token"})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestCredentialAcquisition(t *testing.T) {
	var logins atomic.Int32
	ts := adminLoginServer(t, &logins, 0)
	session := NewAuthSession(ts.URL, "admin@example.com", "hunter2", 5*time.Second)

	cred, err := session.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "admin-token", cred.AuthToken)
	require.Equal(t, "csrf-123", cred.CSRFToken)
	require.Equal(t, int32(1), logins.Load())

	// A second call reuses the held credential.
	_, err = session.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), logins.Load())
}

func TestCredentialRefreshBoundary(t *testing.T) {
	var logins atomic.Int32
	ts := adminLoginServer(t, &logins, 0)
	session := NewAuthSession(ts.URL, "admin@example.com", "hunter2", 5*time.Second)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	session.now = func() time.Time { return now }

	cred, err := session.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), logins.Load())

	// One second before the margin the credential is still used.
	now = cred.ExpiresAt.Add(-refreshMargin).Add(-time.Second)
	_, err = session.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), logins.Load())

	// Exactly at the margin the credential counts as invalid.
	now = cred.ExpiresAt.Add(-refreshMargin)
	_, err = session.Credential(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), logins.Load())
}

func TestCredentialMissingCSRFTokenFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head></head></html>`)
	}))
	t.Cleanup(ts.Close)

	session := NewAuthSession(ts.URL, "admin@example.com", "hunter2", 5*time.Second)
	_, err := session.Credential(context.Background())
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestCredentialLoginRejectionFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/app/admin/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, loginPage)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	session := NewAuthSession(ts.URL, "admin@example.com", "wrong", 5*time.Second)
	_, err := session.Credential(context.Background())
	require.ErrorIs(t, err, ErrAuthentication)

	// The failed attempt must not leave a partial credential behind.
	session.mu.Lock()
	require.Nil(t, session.cred)
	session.mu.Unlock()
}

func TestCredentialRefreshSurvivesCallerCancellation(t *testing.T) {
	var logins atomic.Int32
	ts := adminLoginServer(t, &logins, 50*time.Millisecond)
	session := NewAuthSession(ts.URL, "admin@example.com", "hunter2", 5*time.Second)

	// The credential is process-wide; one caller's deadline dying mid-login
	// must not fail the refresh for everyone waiting on it.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	cred, err := session.Credential(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin-token", cred.AuthToken)
	require.Equal(t, int32(1), logins.Load())
}

func TestConcurrentRefreshCollapsesToOneLogin(t *testing.T) {
	var logins atomic.Int32
	ts := adminLoginServer(t, &logins, 50*time.Millisecond)
	session := NewAuthSession(ts.URL, "admin@example.com", "hunter2", 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.Credential(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), logins.Load())
}
