package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"

	"fairloan.org/internal/auth"
)

const (
	authHeader        = "Authorization"
	adminSecretHeader = "X-Admin-Secret"
	bearer            = "Bearer "

	adminSecretEnv     = "FAIRLOAN_ADMIN_SECRET"
	defaultAdminSecret = "admin123"
)

var (
	secretMu     sync.Mutex
	cachedSecret string
	secretLoaded bool
)

// adminSecret returns the shared administrator secret, cached after the
// first read.
func adminSecret() string {
	secretMu.Lock()
	defer secretMu.Unlock()
	if secretLoaded {
		return cachedSecret
	}
	cachedSecret = strings.TrimSpace(os.Getenv(adminSecretEnv))
	if cachedSecret == "" {
		cachedSecret = defaultAdminSecret
	}
	secretLoaded = true
	return cachedSecret
}

// ResetAdminSecretForTests clears the cached secret.
func ResetAdminSecretForTests() {
	secretMu.Lock()
	defer secretMu.Unlock()
	cachedSecret = ""
	secretLoaded = false
}

// requireAdmin authorizes an administrator request. Either the raw shared
// secret header or a Bearer session token with the admin role is accepted.
func (a *API) requireAdmin(r *http.Request) error {
	if raw := strings.TrimSpace(r.Header.Get(adminSecretHeader)); raw != "" {
		if subtle.ConstantTimeCompare([]byte(raw), []byte(a.adminSecret)) == 1 {
			return nil
		}
		return errors.New("invalid administrator secret")
	}

	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		return err
	}
	claims, err := auth.ParseAndValidate(token)
	if err != nil {
		return errors.New("invalid session token")
	}
	if !claims.IsAdmin() {
		return errors.New("administrator role required")
	}
	return nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
