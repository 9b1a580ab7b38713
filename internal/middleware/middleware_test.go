package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-survey/backend/internal/auth"
)

func newProtected(svc *auth.JWTService, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://editor.local"}))
	g := r.Group("/", JWT(svc), RequireRole(roles...))
	g.GET("/surveys", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestJWTAndRole(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	r := newProtected(svc, "admin")

	admin, err := svc.Generate(uuid.New(), "a@example.com", "admin")
	if err != nil {
		t.Fatal(err)
	}
	viewer, err := svc.Generate(uuid.New(), "v@example.com", "viewer")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + admin, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"other role", "Bearer " + viewer, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
		{"lowercase scheme", "bearer " + admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/surveys", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	r := newProtected(auth.NewJWTService("secret", 1), "admin")

	req := httptest.NewRequest(http.MethodOptions, "/surveys", nil)
	req.Header.Set("Origin", "http://editor.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://editor.local" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/surveys", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestLevelFor(t *testing.T) {
	if levelFor(200).String() != "info" || levelFor(404).String() != "warn" || levelFor(502).String() != "error" {
		t.Error("unexpected level mapping")
	}
}
