package flagsapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrymomot/flagkit/pkg/apikey"
)

type actorKeyType struct{}

var actorCtxKey actorKeyType

// ActorFromContext returns the id of the API key that authenticated the
// request. The audit logger uses it to attribute trail entries.
func ActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorCtxKey).(string)
	return id, ok
}

// requireAPIKey authenticates admin routes with a bearer API key and
// stashes the key id in the request context.
func requireAPIKey(keys *apikey.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := bearerToken(r)
			if secret == "" {
				respondError(w, apikey.ErrInvalidKey)
				return
			}

			key, err := keys.Verify(r.Context(), secret)
			if err != nil {
				respondError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), actorCtxKey, key.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	// X-API-Key supports clients that cannot set Authorization headers.
	return r.Header.Get("X-API-Key")
}
