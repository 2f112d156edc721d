package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"autoflow/workshop-service/internal/auth"
	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

var errAccessDenied = errors.New("access denied")

type authContextKey struct{}

type authInfo struct {
	User    models.User
	Session auth.Session
}

// SessionMiddleware resolves a bearer token when one is sent. Requests
// without a token pass through anonymously; a bad token is rejected. A
// session resolved further out is reused.
func SessionMiddleware(authService *auth.Service, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		token := sessionTokenFromRequest(r)
		if token == "" || authService == nil {
			next.ServeHTTP(w, r)
			return
		}
		user, session, err := authService.Authenticate(r.Context(), token)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{User: user, Session: session})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(authContextKey{}).(authInfo)
	return info, ok
}

func requireSession(w http.ResponseWriter, r *http.Request) (authInfo, bool) {
	info, ok := authFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing session")
		return authInfo{}, false
	}
	return info, true
}

// canAccessBranch reports whether the caller may touch records in branch.
// Anonymous callers are not branch scoped.
func canAccessBranch(r *http.Request, branch string) bool {
	info, ok := authFromContext(r.Context())
	if !ok || info.User.SeesAllBranches() {
		return true
	}
	return info.User.Branch == branch
}

func sessionTokenFromRequest(r *http.Request) string {
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Branch   string      `json:"branch"`
	Role     models.Role `json:"role"`
}

type loginResponse struct {
	userResponse
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{ID: user.ID, Username: user.Username, Branch: user.Branch, Role: user.Role}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		userResponse: newUserResponse(result.User),
		AccessToken:  result.Session.Token,
		ExpiresAt:    result.Session.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(info.User))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireSession(w, r)
	if !ok {
		return
	}
	h.auth.Logout(info.Session.Token)
	w.WriteHeader(http.StatusNoContent)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Branch   string `json:"branch"`
	Role     string `json:"role"`
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := requireSession(w, r)
	if !ok {
		return
	}
	if info.User.Role != models.RoleSuperadmin {
		writeStoreError(w, r, errAccessDenied)
		return
	}

	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Branch = strings.TrimSpace(req.Branch)
	role := models.Role(strings.TrimSpace(req.Role))
	switch {
	case req.Username == "":
		writeFieldError(w, r, "username", "Username is required")
		return
	case len(req.Password) < 6:
		writeFieldError(w, r, "password", "Password must be at least 6 characters")
		return
	case req.Branch == "":
		writeFieldError(w, r, "branch", "Branch is required")
		return
	case role != "" && !models.ValidRole(role):
		writeFieldError(w, r, "role", "Role must be staff or superadmin")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	user, err := h.store.CreateUser(r.Context(), store.CreateUserInput{
		Username: req.Username,
		Password: hash,
		Branch:   req.Branch,
		Role:     role,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}
