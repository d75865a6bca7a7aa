package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
)

// UserResolver maps a bearer token to a user id. Empty id = unknown
// session. Session management itself lives outside this service.
type UserResolver interface {
	UserID(ctx context.Context, token string) (string, error)
}

// SessionStore resolves sessions out of the shared redis the auth
// service writes to.
type SessionStore struct{ Redis *redis.Client }

func (s *SessionStore) UserID(ctx context.Context, token string) (string, error) {
	id, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeySession, token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

type ctxKey int

const userIDKey ctxKey = iota

// Auth rejects requests without a resolvable bearer token and stashes
// the user id on the context.
func Auth(res UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}
			uid, err := res.UserID(r.Context(), token)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session lookup failed"})
				return
			}
			if uid == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
		})
	}
}

func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
