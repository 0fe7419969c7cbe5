// internal/kronos/authsession.go
package kronos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/lramos15/kronos-discord/internal/models"
)

// ErrAuthentication is returned when the admin login flow fails. It is the
// only failure that propagates out of the admin API client.
var ErrAuthentication = errors.New("failed to get admin token")

const (
	// credentialLifetime is how long an admin token is assumed to live.
	credentialLifetime = 8 * time.Hour
	// refreshMargin re-authenticates well before the token actually expires
	// so in-flight requests never fail mid-call.
	refreshMargin = 3 * time.Hour
)

// The CSRF token is embedded in the login page HTML as
// <meta name="csrf-token" content="TOKEN">
var csrfTokenPattern = regexp.MustCompile(`<meta name="csrf-token" content="(.*)">`)

// Credential is the admin token pair issued by the login flow.
type Credential struct {
	AuthToken string
	CSRFToken string
	ExpiresAt time.Time
}

// valid reports whether the credential can still back new requests.
// A credential exactly at the refresh margin counts as invalid.
func (c *Credential) valid(now time.Time) bool {
	return c != nil && c.ExpiresAt.Add(-refreshMargin).After(now)
}

// AuthSession owns the process-wide admin credential for the internal Kronos
// API. Concurrent callers needing a refresh are collapsed into a single login
// round trip; a failed login leaves no partial credential behind.
type AuthSession struct {
	endpoint   string
	email      string
	password   string
	httpClient *http.Client

	now func() time.Time

	mu    sync.Mutex
	cred  *Credential
	group singleflight.Group
}

func NewAuthSession(endpoint, email, password string, timeout time.Duration) *AuthSession {
	return &AuthSession{
		endpoint:   endpoint,
		email:      email,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Credential returns the held admin credential, signing in first when none is
// held or the held one is inside the refresh margin.
func (a *AuthSession) Credential(ctx context.Context) (Credential, error) {
	a.mu.Lock()
	if a.cred.valid(a.now()) {
		cred := *a.cred
		a.mu.Unlock()
		return cred, nil
	}
	a.mu.Unlock()

	v, err, _ := a.group.Do("admin-login", func() (any, error) {
		// A queued caller may arrive after the winner already refreshed.
		a.mu.Lock()
		if a.cred.valid(a.now()) {
			cred := *a.cred
			a.mu.Unlock()
			return cred, nil
		}
		a.mu.Unlock()

		// The credential outlives any one caller, so the login must not die
		// with the winner's context. The HTTP client timeout still bounds it.
		cred, err := a.login(context.WithoutCancel(ctx))
		if err != nil {
			return Credential{}, err
		}

		a.mu.Lock()
		a.cred = &cred
		a.mu.Unlock()
		return cred, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// login performs the two-step admin sign-in: fetch the login page for a
// session cookie and CSRF token, then post the credentials with both attached.
func (a *AuthSession) login(ctx context.Context) (Credential, error) {
	authEndpoint := a.endpoint + "/app/admin/login"

	pageReq, err := http.NewRequestWithContext(ctx, http.MethodGet, authEndpoint, nil)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	pageResp, err := a.httpClient.Do(pageReq)
	if err != nil {
		log.Error("Failed to fetch admin login page", "error", err)
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer pageResp.Body.Close()

	page, err := io.ReadAll(pageResp.Body)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	match := csrfTokenPattern.FindSubmatch(page)
	if match == nil {
		log.Error("No CSRF token found in admin login page")
		return Credential{}, fmt.Errorf("%w: csrf token not found in login page", ErrAuthentication)
	}
	csrfToken := string(match[1])

	body, err := json.Marshal(struct {
		Authenticator *string `json:"authenticator"`
		Email         string  `json:"email"`
		Password      string  `json:"password"`
	}{nil, a.email, a.password})
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	loginReq, err := http.NewRequestWithContext(ctx, http.MethodPost, authEndpoint, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	loginReq.Header.Set("Content-Type", "application/json")
	loginReq.Header.Set("X-Csrf-Token", csrfToken)
	// The login POST must present the session cookie handed out with the page.
	for _, cookie := range pageResp.Cookies() {
		loginReq.AddCookie(cookie)
	}

	loginResp, err := a.httpClient.Do(loginReq)
	if err != nil {
		log.Error("Admin login request failed", "error", err)
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer loginResp.Body.Close()

	if loginResp.StatusCode < 200 || loginResp.StatusCode > 299 {
		log.Error("Admin login rejected", "status", loginResp.StatusCode)
		return Credential{}, fmt.Errorf("%w: login returned status %d", ErrAuthentication, loginResp.StatusCode)
	}

	var login models.AdminLoginResponse
	if err := json.NewDecoder(loginResp.Body).Decode(&login); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	log.Debug("Admin login succeeded", "lifetime", credentialLifetime)
	return Credential{
		AuthToken: login.Token,
		CSRFToken: csrfToken,
		ExpiresAt: a.now().Add(credentialLifetime),
	}, nil
}
