package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carry the caller identity. The subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// Authenticator validates HS256 bearer tokens and puts the principal on the request context.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken signs a token for userID. Used by operators' tooling and tests.
func (a *Authenticator) IssueToken(userID string, role domain.Role, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a raw token and returns the principal it names.
func (a *Authenticator) Parse(raw string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Principal{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return domain.Principal{}, errors.New("token has no subject")
	}

	role := domain.RoleUser
	if domain.Role(claims.Role) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	return domain.Principal{UserID: claims.Subject, Role: role}, nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		fields := strings.Fields(header)
		if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
			respondUnauthenticated(w, "missing bearer token")
			return
		}

		principal, err := a.Parse(fields[1])
		if err != nil {
			respondUnauthenticated(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFrom returns the caller set by Middleware.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}
