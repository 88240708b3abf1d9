/*
auth.go - JWT authentication and request identity

PURPOSE:
  Issues and verifies the bearer tokens the frontend sends with every
  request. The token carries the user's role; the authorization policy in
  clinic/authz.go is applied against that role server-side, so a tampered
  client cannot widen its own permissions.

TOKEN SHAPE:
  HS256-signed JWT. Subject is the user ID; custom claims carry role and
  display name. Expiry comes from TOKEN_TTL.

SEE ALSO:
  - clinic/authz.go: The policy the role feeds into
  - handlers.go: requireAction, where identity meets policy
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dentaldesk/clinic-api/clinic"
)

// Claims is the JWT payload for a logged-in user.
type Claims struct {
	Role clinic.Role `json:"role"`
	Name string      `json:"name"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// issueToken signs a token for the user, valid for ttl.
func issueToken(u clinic.User, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: u.Role,
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseToken verifies the signature and expiry and returns the claims.
func parseToken(raw, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// authMiddleware rejects requests without a valid bearer token and stashes
// the claims in the request context.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := parseToken(raw, h.opts.JWTSecret)
		if err != nil {
			h.log.Debug().Err(err).Msg("rejected token")
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the authenticated identity, or nil outside the
// authenticated route group.
func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// requireAction checks the caller's role against the policy table. It writes
// the 401/403 response itself and reports whether the handler may proceed.
func (h *Handler) requireAction(w http.ResponseWriter, r *http.Request, action clinic.Action) (*Claims, bool) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if err := clinic.Authorize(h.authz, claims.Role, action); err != nil {
		h.log.Warn().
			Str("user_id", claims.Subject).
			Str("role", string(claims.Role)).
			Str("action", string(action)).
			Msg("forbidden")
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return nil, false
	}
	return claims, true
}

// Login authenticates by email/password and returns a signed token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if clinic.IsNotFound(err) {
			// Same response as a bad password; don't leak which emails exist.
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.serverError(w, err, "login lookup failed")
		return
	}

	if err := user.CheckPassword(req.Password); err != nil {
		if errors.Is(err, clinic.ErrUserInactive) {
			writeError(w, http.StatusForbidden, "account is deactivated")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueToken(*user, h.opts.JWTSecret, h.opts.TokenTTL, time.Now().UTC())
	if err != nil {
		h.serverError(w, err, "failed to sign token")
		return
	}

	h.log.Info().Str("user_id", string(user.ID)).Str("role", string(user.Role)).Msg("login")
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserDTO(*user)})
}
