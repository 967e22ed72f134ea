package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/dto"
	pkgerrors "fitcoach/backend/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator struct {
	principal *dto.Principal
	err       error
	gotToken  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*dto.Principal, error) {
	s.gotToken = token
	return s.principal, s.err
}

func newAuthEngine(authn Authenticator, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(authn)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id")+"|"+c.GetString("role"))
	})
	r.GET("/secure", handlers...)
	return r
}

// ── Auth ──

func TestAuth_MissingHeader(t *testing.T) {
	r := newAuthEngine(&stubAuthenticator{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_MalformedHeader(t *testing.T) {
	stub := &stubAuthenticator{}
	r := newAuthEngine(stub)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if stub.gotToken != "" {
		t.Error("authenticator must not be called for malformed header")
	}
}

func TestAuth_InjectsPrincipal(t *testing.T) {
	stub := &stubAuthenticator{principal: &dto.Principal{UserID: "u-1", Email: "alex@example.com", Role: "user"}}
	r := newAuthEngine(stub)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.gotToken != "good-token" {
		t.Errorf("expected token forwarded, got %q", stub.gotToken)
	}
	if w.Body.String() != "u-1|user" {
		t.Errorf("unexpected principal in context: %s", w.Body.String())
	}
}

func TestAuth_RendersServiceError(t *testing.T) {
	stub := &stubAuthenticator{err: pkgerrors.Forbidden("User account is deactivated.")}
	r := newAuthEngine(stub)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer retired")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		allowed []string
		want    int
	}{
		{"allowed", "coach", []string{"coach", "admin"}, http.StatusOK},
		{"forbidden", "user", []string{"coach"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAuthenticator{principal: &dto.Principal{UserID: "u-1", Role: tt.role}}
			r := newAuthEngine(stub, RoleAuth(tt.allowed...))

			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			req.Header.Set("Authorization", "Bearer t")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRoleAuth_NoPrincipal(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RoleAuth("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ── RequestID / BodyLimit ──

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if rid := w.Header().Get("X-Request-ID"); rid == "" || rid != w.Body.String() {
		t.Errorf("expected generated request id echoed, header=%q body=%q", rid, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "gw-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "gw-123" {
		t.Errorf("expected upstream request id kept, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestBodyLimit_RejectsDeclaredLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"far too long"}`)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}
