package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/minishop/internal/metrics"
	"github.com/hitoshi/minishop/internal/model"
)

// fakeAuthenticator はAuthorizationヘッダーの値で結果を切り替えるAuthenticator。
type fakeAuthenticator struct{}

func (fakeAuthenticator) Authenticate(r *http.Request) (*model.AuthContext, error) {
	switch r.Header.Get("Authorization") {
	case "":
		return nil, model.ErrTokenMissing
	case "Bearer good":
		return &model.AuthContext{ID: 7, OpenID: "abc"}, nil
	default:
		return nil, model.ErrTokenInvalid
	}
}

// recordingCollector は呼び出しを記録するMetricsCollector。
type recordingCollector struct {
	verifications []string
	statuses      []int
}

func (c *recordingCollector) RecordLogin(string, string) {}
func (c *recordingCollector) RecordUserCreated() {}
func (c *recordingCollector) RecordProviderLatency(time.Duration) {}
func (c *recordingCollector) RecordTokenVerification(result string) {
	c.verifications = append(c.verifications, result)
}
func (c *recordingCollector) RecordHTTPStatus(statusCode int) {
	c.statuses = append(c.statuses, statusCode)
}

func TestTokenMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
		wantResult string
	}{
		{"missing header", "", http.StatusUnauthorized, model.ErrCodeTokenMissing, metrics.VerifyMissing},
		{"invalid token", "Bearer forged", http.StatusForbidden, model.ErrCodeTokenInvalid, metrics.VerifyInvalid},
		{"valid token", "Bearer good", http.StatusOK, "", metrics.VerifyAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &recordingCollector{}
			called := false
			var gotAuth *model.AuthContext

			handler := NewTokenMiddleware(fakeAuthenticator{}, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotAuth, _ = AuthFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if len(collector.verifications) != 1 || collector.verifications[0] != tt.wantResult {
				t.Errorf("verifications = %v, want [%s]", collector.verifications, tt.wantResult)
			}

			if tt.wantCode == "" {
				if !called {
					t.Fatal("downstream handler should be called")
				}
				if gotAuth == nil || gotAuth.ID != 7 || gotAuth.OpenID != "abc" {
					t.Errorf("auth context = %+v, want {ID:7 OpenID:abc}", gotAuth)
				}
				return
			}

			if called {
				t.Error("downstream handler must not be called")
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestTokenMiddleware_NilCollector(t *testing.T) {
	handler := NewTokenMiddleware(fakeAuthenticator{}, nil)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := AuthFromContext(req.Context()); err == nil {
		t.Error("expected error for context without auth")
	}
}
