package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"CatalogConsole/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20

	loginLimitPerMin    = 5
	registerLimitPerMin = 3
	limitWindow         = 60 * time.Second
)

type Server struct {
	Log   *zap.Logger
	Store *Store
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)
	registerLimiter := kit.NewIPRateLimiter(registerLimitPerMin, limitWindow)

	r.With(loginLimiter.Middleware).Post("/login", s.handleLogin)
	r.With(registerLimiter.Middleware).Post("/register", s.handleRegister)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/logout", s.handleLogout)
	r.Get("/whoami", s.handleWhoAmI)

	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	sess, err := s.Store.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		s.Log.Error("login failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var nu NewUser
	if err := decodeJSON(w, r, &nu); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	sess, err := s.Store.Register(r.Context(), nu)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			kit.WriteError(w, r, http.StatusConflict, "email already exists", nil)
		case errors.Is(err, ErrRegistrationFailed):
			kit.WriteError(w, r, http.StatusBadRequest, "registration failed", nil)
		default:
			s.Log.Error("register failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		}
		return
	}

	kit.WriteJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Store.RefreshToken(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			kit.WriteError(w, r, http.StatusNotFound, "stored user not found", nil)
			return
		}
		s.Log.Error("refresh failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	kit.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Store.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
		return
	}

	claims, err := s.Store.tokens.Parse(strings.TrimPrefix(authz, "Bearer "))
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
