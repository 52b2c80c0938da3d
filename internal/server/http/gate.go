package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/orgdesk/internal/errs"
	"github.com/and161185/orgdesk/internal/model"
)

var errInvalidToken = errs.New(errs.ErrUnauthorized, "invalid token")

// Authenticator resolves a raw bearer token into the current identity.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.Identity, error)
}

// Route names a method and a registered gin path, e.g. "POST /auth/signIn".
type Route struct {
	Method string
	Path   string
}

func (r Route) key() string { return r.Method + " " + r.Path }

// Gate authenticates every request except the public routes. It must be
// installed globally so new routes are protected unless listed.
type Gate struct {
	auth   Authenticator
	log    *zap.Logger
	public map[string]struct{}
}

// NewGate builds a Gate with the given public routes.
func NewGate(auth Authenticator, log *zap.Logger, public ...Route) *Gate {
	g := &Gate{auth: auth, log: log, public: make(map[string]struct{}, len(public))}
	for _, r := range public {
		g.public[r.key()] = struct{}{}
	}
	return g
}

// Public reports whether the route skips authentication.
func (g *Gate) Public(method, path string) bool {
	if path == "" {
		return false
	}
	_, ok := g.public[Route{Method: method, Path: path}.key()]
	return ok
}

// Handler returns the gin middleware.
func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Public(c.Request.Method, c.FullPath()) {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.Request.Header)
		if !ok {
			abortWithError(c, g.log, errs.New(errs.ErrUnauthorized, "missing bearer token"))
			return
		}

		id, err := g.auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			// Every authentication failure looks the same to the caller.
			if errors.Is(err, errs.ErrUnauthorized) {
				g.log.Debug("token rejected", zap.String("reason", rejectReason(err)))
				err = errInvalidToken
			}
			abortWithError(c, g.log, err)
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrTokenExpired):
		return "expired"
	case errors.Is(err, errs.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, errs.ErrTokenMalformed):
		return "malformed"
	default:
		return "account_missing"
	}
}

// bearerToken extracts "Authorization: Bearer <token>".
func bearerToken(h http.Header) (string, bool) {
	for _, v := range h.Values("Authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			if t := strings.TrimSpace(v[7:]); t != "" {
				return t, true
			}
		}
	}
	return "", false
}
