package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/listforge/listforge/internal/domain"
)

// ─── Authentication ─────────────────────────────────────────────────────────
// Accounts authenticate once and carry a signed bearer token afterwards.
// Tokens are HS256 JWTs; the username travels in the claims so handlers
// never trust a client-supplied account name.

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

type ctxKey int

const accountKey ctxKey = 0

// accountFrom returns the authenticated username stored by the middleware.
func accountFrom(ctx context.Context) string {
	u, _ := ctx.Value(accountKey).(string)
	return u
}

// Auth issues and verifies account tokens.
type Auth struct {
	store  domain.LedgerStore
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
}

// NewAuth creates the auth component.
func NewAuth(store domain.LedgerStore, secret string, ttl time.Duration, log *zap.Logger) *Auth {
	return &Auth{store: store, secret: []byte(secret), ttl: ttl, log: log}
}

func (a *Auth) issueToken(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Username: username,
	})
	return token.SignedString(a.secret)
}

func (a *Auth) parseToken(raw string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidCredentials
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid || claims.Username == "" {
		return "", domain.ErrInvalidCredentials
	}
	return claims.Username, nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// HandleRegister creates an account and returns its first token.
// POST /api/auth/register
func (a *Auth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash password")
		return
	}
	if err := a.store.CreateAccount(r.Context(), req.Username, string(hash)); err != nil {
		if errors.Is(err, domain.ErrDuplicateAccount) {
			writeError(w, http.StatusConflict, "account already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := a.issueToken(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	a.log.Info("account registered", zap.String("account", req.Username))
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

// HandleLogin verifies credentials and returns a fresh token.
// POST /api/auth/login
func (a *Auth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := a.store.GetAccount(r.Context(), req.Username)
	if err != nil {
		// Same response for a missing account and a wrong password.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := a.issueToken(acct.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// Middleware rejects requests without a valid bearer token and stores the
// account name on the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		username, err := a.parseToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, username)))
	})
}
