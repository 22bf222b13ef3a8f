package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentPlayerNameMissing(t *testing.T) {
	_, err := CurrentPlayerName(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = CurrentPlayerName(WithPlayerName(context.Background(), ""))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{name: "header", url: "/ws/course", header: "Alice", want: "Alice"},
		{name: "query", url: "/ws/course?player=Bob", want: "Bob"},
		{name: "header wins", url: "/ws/course?player=Bob", header: "Alice", want: "Alice"},
		{name: "trimmed", url: "/ws/course?player=%20Carol%20", want: "Carol"},
		{name: "anonymous", url: "/ws/course", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			var gotErr error
			h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, gotErr = CurrentPlayerName(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set(HeaderPlayerName, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.want == "" {
				require.ErrorIs(t, gotErr, ErrUnauthenticated)
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.want, got)
		})
	}
}
