package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		header     string
		value      string
		wantStatus int
	}{
		{name: "disabled passes through", apiKey: "", wantStatus: http.StatusOK},
		{name: "missing token", apiKey: "secret", wantStatus: http.StatusUnauthorized},
		{name: "bearer token", apiKey: "secret", header: "Authorization", value: "Bearer secret", wantStatus: http.StatusOK},
		{name: "bearer case insensitive", apiKey: "secret", header: "Authorization", value: "bearer secret", wantStatus: http.StatusOK},
		{name: "wrong bearer", apiKey: "secret", header: "Authorization", value: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "api key header", apiKey: "secret", header: "X-API-Key", value: "secret", wantStatus: http.StatusOK},
		{name: "wrong api key", apiKey: "secret", header: "X-API-Key", value: "nope", wantStatus: http.StatusUnauthorized},
		{name: "malformed authorization", apiKey: "secret", header: "Authorization", value: "secret", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth(tt.apiKey)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
