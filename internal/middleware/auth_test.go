package middleware_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/auth"
	"github.com/vyrodovalexey/inventory-tracker/internal/middleware"
)

// testAuthenticator is a mock authenticator for middleware tests.
type testAuthenticator struct {
	info   *auth.AuthInfo
	err    error
	method auth.AuthMethod
}

func (a *testAuthenticator) Authenticate(
	_ *http.Request,
) (*auth.AuthInfo, error) {
	return a.info, a.err
}

func (a *testAuthenticator) Method() auth.AuthMethod {
	return a.method
}

// successHandler is a simple handler that writes 200 OK.
func successHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// contextCheckHandler verifies AuthInfo is in the context.
func contextCheckHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := auth.FromContext(r.Context())
		if !ok || info == nil {
			t.Error("AuthInfo not found in context")
			w.WriteHeader(http.StatusInternalServerError)

			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("authenticated: " + info.Subject))
	})
}

func failingAuthenticator(err error) *testAuthenticator {
	return &testAuthenticator{err: err, method: auth.AuthMethodMulti}
}

func TestAuth_PublicPaths(t *testing.T) {
	t.Parallel()

	failAuth := failingAuthenticator(auth.ErrUnauthenticated)
	logger := zap.NewNop()

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"health endpoint bypasses auth", "/health", http.StatusOK},
		{"ready endpoint bypasses auth", "/ready", http.StatusOK},
		{"metrics endpoint bypasses auth", "/metrics", http.StatusOK},
		{"health subpath bypasses auth", "/health/live", http.StatusOK},
		{"healthcheck does not bypass auth", "/healthcheck", http.StatusUnauthorized},
		{"health prefix does not bypass auth", "/healthXXX", http.StatusUnauthorized},
		{"items require auth", "/api/v1/items", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			handler := middleware.Auth(failAuth, logger)(successHandler())
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d for path %s", rr.Code, tt.wantCode, tt.path)
			}
		})
	}
}

func TestAuth_WebSocketUpgradeRequiresAuth(t *testing.T) {
	t.Parallel()

	// Arrange
	handler := middleware.Auth(failingAuthenticator(auth.ErrUnauthenticated), zap.NewNop())(successHandler())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	rr := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuth_OptionsRequestBypassesAuth(t *testing.T) {
	t.Parallel()

	// Arrange
	handler := middleware.Auth(failingAuthenticator(auth.ErrUnauthenticated), zap.NewNop())(successHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/items", nil)
	rr := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuth_ValidAuth_PassesThrough(t *testing.T) {
	t.Parallel()

	// Arrange
	okAuth := &testAuthenticator{
		info: &auth.AuthInfo{
			Method:  auth.AuthMethodAPIKey,
			Subject: "cli",
			Role:    auth.RoleEditor,
		},
		method: auth.AuthMethodAPIKey,
	}
	handler := middleware.Auth(okAuth, zap.NewNop())(contextCheckHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	rr := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Body.String(); got != "authenticated: cli" {
		t.Errorf("body = %q, want %q", got, "authenticated: cli")
	}
}

func TestAuth_ReaderRole(t *testing.T) {
	t.Parallel()

	reader := &testAuthenticator{
		info: &auth.AuthInfo{
			Method:  auth.AuthMethodBasic,
			Subject: "viewer",
			Role:    auth.RoleReader,
		},
		method: auth.AuthMethodBasic,
	}

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/api/v1/items", http.StatusOK},
		{http.MethodGet, "/api/v1/items/123", http.StatusOK},
		{http.MethodGet, "/ws", http.StatusOK},
		{http.MethodPost, "/api/v1/items", http.StatusForbidden},
		{http.MethodPut, "/api/v1/items/123", http.StatusForbidden},
		{http.MethodPatch, "/api/v1/items/123", http.StatusForbidden},
		{http.MethodDelete, "/api/v1/items/123", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			// Arrange
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})
			handler := middleware.Auth(reader, zap.NewNop())(next)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusForbidden {
				if called {
					t.Error("handler should not be called for a rejected write")
				}
				var body map[string]interface{}
				if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body["message"] != auth.ErrForbidden.Error() {
					t.Errorf("message = %v, want %q", body["message"], auth.ErrForbidden.Error())
				}
				if rr.Header().Get("WWW-Authenticate") != "" {
					t.Error("403 should not carry a WWW-Authenticate challenge")
				}
			}
		})
	}
}

func TestAuth_401Response(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantChallenge string
	}{
		{
			name:          "no credentials",
			err:           auth.ErrUnauthenticated,
			wantChallenge: `Basic realm="inventory", API-Key`,
		},
		{
			name:          "bad password",
			err:           auth.ErrInvalidCredentials,
			wantChallenge: `Basic realm="inventory"`,
		},
		{
			name:          "bad api key",
			err:           auth.ErrInvalidAPIKey,
			wantChallenge: "API-Key",
		},
		{
			name:          "wrapped api key error",
			err:           fmt.Errorf("multi: %w", auth.ErrInvalidAPIKey),
			wantChallenge: "API-Key",
		},
		{
			name:          "unrelated error",
			err:           fmt.Errorf("boom"),
			wantChallenge: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			called := false
			next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				called = true
			})
			handler := middleware.Auth(failingAuthenticator(tt.err), zap.NewNop())(next)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
			rr := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rr, req)

			// Assert
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
			}
			if called {
				t.Error("handler should not be called on 401")
			}
			if got := rr.Header().Get("WWW-Authenticate"); got != tt.wantChallenge {
				t.Errorf("WWW-Authenticate = %q, want %q", got, tt.wantChallenge)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var body map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if code, ok := body["code"].(float64); !ok || int(code) != http.StatusUnauthorized {
				t.Errorf("code = %v, want %d", body["code"], http.StatusUnauthorized)
			}
			if body["message"] != tt.err.Error() {
				t.Errorf("message = %v, want %q", body["message"], tt.err.Error())
			}
		})
	}
}
