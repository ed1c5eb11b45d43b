package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"fairloan.org/internal/audit"
	"fairloan.org/internal/auth"
)

const adminSessionTTL = 8 * time.Hour

type adminLoginRequest struct {
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"`
}

func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.adminSecret)) != 1 {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken("admin", "admin", adminSessionTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not issue session token")
		return
	}

	_ = audit.LogEvent(r.Context(), "admin.login", map[string]any{})

	writeJSON(w, http.StatusOK, adminLoginResponse{
		Token:     token,
		Role:      "admin",
		ExpiresIn: int64(adminSessionTTL.Seconds()),
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	st, err := a.svc.Stats(r.Context())
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
