package httppresentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

const roleAdmin = "admin"

var errAdminOnly = apperr.New(apperr.Forbidden, "admin role required")

// Claims are the bearer token claims; the subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type actorKey struct{}

func contextWithActor(ctx context.Context, a application.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func actorFrom(ctx context.Context) application.Actor {
	a, _ := ctx.Value(actorKey{}).(application.Actor)
	return a
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// Sign issues a token for userID. It backs local tooling and tests.
func (a *Authenticator) Sign(userID, role string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parse(header string) (application.Actor, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return application.Actor{}, errUnauthorized
	}
	claims := &Claims{}
	token, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return application.Actor{}, fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	if claims.Subject == "" {
		return application.Actor{}, errors.New("token has no subject")
	}
	return application.Actor{UserID: claims.Subject, Role: claims.Role}, nil
}

// Authenticate rejects requests without a valid bearer token and binds the actor
// and user_id onto the request context.
func (a *Authenticator) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, err := a.parse(r.Header.Get("Authorization"))
		if err != nil {
			logctx.From(r.Context()).Warn("http_unauthorized", observability.F("error", err.Error()))
			writeError(w, http.StatusUnauthorized, "unauthorized", errUnauthorized)
			return
		}
		ctx := contextWithActor(r.Context(), actor)
		ctx = logctx.Enrich(ctx, observability.F("user_id", actor.UserID))
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if actorFrom(r.Context()).Role != roleAdmin {
			writeAppError(r.Context(), w, errAdminOnly)
			return
		}
		next(w, r, ps)
	}
}
