package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scout/scout/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.Config{JWTSecret: "s3cret"}
	var gotUser int
	h := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Context().Value(UserIDKey).(int)
	}))
	valid := sign(t, "s3cret", jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()})

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		target string
		status int
	}{
		{"missing", func(r *http.Request) {}, "/", http.StatusUnauthorized},
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, "/", http.StatusOK},
		{"query", func(r *http.Request) {}, "/?token=" + valid, http.StatusOK},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", valid) }, "/", http.StatusUnauthorized},
		{"wrong secret", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+sign(t, "other", jwt.MapClaims{"user_id": 7}))
		}, "/", http.StatusUnauthorized},
		{"expired", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+sign(t, "s3cret", jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(-time.Hour).Unix()}))
		}, "/", http.StatusUnauthorized},
		{"no user", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+sign(t, "s3cret", jwt.MapClaims{"sub": "x"}))
		}, "/", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotUser = 0
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			tc.setup(req)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, 7, gotUser)
			}
		})
	}
}
