package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys disables auth", nil, "/v1/search", "", http.StatusOK},
		{"blank keys disable auth", []string{"", "  "}, "/v1/search", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/v1/search", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/v1/search", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, "/v1/search", "Bearer wrong", http.StatusUnauthorized},
		{"key prefix is not enough", []string{"secret"}, "/v1/search", "Bearer secre", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, "/v1/search", "Bearer secret", http.StatusOK},
		{"second of two keys", []string{"k1", "k2"}, "/v1/collections", "Bearer k2", http.StatusOK},
		{"keys are trimmed", []string{" secret "}, "/v1/search", "Bearer secret", http.StatusOK},
		{"health is public", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics is public", []string{"secret"}, "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BearerAuthMiddleware(tt.keys)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if body.Code != ErrorCodeUnauthorized {
				t.Errorf("code = %s, want %s", body.Code, ErrorCodeUnauthorized)
			}
		})
	}
}
