package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "careconnect.user_id"

var (
	ErrNoSecret     = errors.New("auth: signing secret not configured")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Service issues and verifies anonymous session tokens. A client without
// credentials calls Issue once and presents the returned bearer token on
// every subsequent request; the subject is a generated user id that scopes
// that client's appointments.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a signed anonymous session token with a fresh user id.
func (s *Service) Issue() (token, userID string, err error) {
	if len(s.secret) == 0 {
		return "", "", ErrNoSecret
	}
	userID = "anon-" + uuid.NewString()
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("auth: sign failed: %w", err)
	}
	return token, userID, nil
}

// Verify parses a bearer token and returns its subject.
func (s *Service) Verify(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware resolves the bearer token into a user id on the request
// context. Requests without a token pass through unauthenticated; write
// paths reject them later via the identity resolver.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			// WebSocket clients cannot set headers; they pass the
			// token as a query parameter instead.
			if q := r.URL.Query().Get("token"); q != "" {
				header = "Bearer " + q
			}
		}
		if strings.HasPrefix(header, "Bearer ") {
			if userID, err := s.Verify(strings.TrimPrefix(header, "Bearer ")); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID stores the authenticated user id on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// ContextResolver satisfies the identity dependency of the appointment
// coordinator by reading the user id the middleware stored.
type ContextResolver struct{}

func (ContextResolver) Resolve(ctx context.Context) (string, error) {
	userID, _ := UserIDFromContext(ctx)
	return userID, nil
}
