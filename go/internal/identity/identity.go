// Package identity resolves the display name of the calling player.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// HeaderPlayerName carries the caller's display name on HTTP and RPC requests.
const HeaderPlayerName = "X-Player-Name"

// QueryPlayerName is the fallback for browsers, which cannot set headers on a websocket upgrade.
const QueryPlayerName = "player"

// ErrUnauthenticated is returned when the request carries no player name.
var ErrUnauthenticated = errors.New("unauthenticated: no player name on request")

type contextKey struct{}

// WithPlayerName returns a copy of ctx carrying name
func WithPlayerName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, contextKey{}, name)
}

// CurrentPlayerName returns the player name bound to ctx.
func CurrentPlayerName(ctx context.Context) (string, error) {
	name, ok := ctx.Value(contextKey{}).(string)
	if !ok || name == "" {
		return "", ErrUnauthenticated
	}
	return name, nil
}

// Middleware binds the player name found on the request, if any, to the request context.
// Requests without a name pass through untouched so read-only routes keep working.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if name := FromRequest(r); name != "" {
			r = r.WithContext(WithPlayerName(r.Context(), name))
		}
		next.ServeHTTP(w, r)
	})
}

// FromRequest extracts the trimmed player name from the header or query string
func FromRequest(r *http.Request) string {
	if name := strings.TrimSpace(r.Header.Get(HeaderPlayerName)); name != "" {
		return name
	}
	return strings.TrimSpace(r.URL.Query().Get(QueryPlayerName))
}
