package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"indiehub/pkg/database"
)

func testTokenService() TokenService {
	return TokenService{
		Secret:   []byte("middleware-test-secret"),
		Issuer:   "indiehub-test",
		Duration: time.Hour,
	}
}

func newAuthRouter(tokens TokenService, repo *Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(tokens, repo), func(c *gin.Context) {
		claims := MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	router := newAuthRouter(testTokenService(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddlewareAcceptsHeaderToken(t *testing.T) {
	tokens := testTokenService()
	router := newAuthRouter(tokens, nil)

	signed, _, err := tokens.Sign(&User{ID: "u-header", Username: "alice"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

// WebSocket dials cannot carry headers from browsers, so the token may
// ride in the access_token query parameter instead.
func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	tokens := testTokenService()
	router := newAuthRouter(tokens, nil)

	signed, _, err := tokens.Sign(&User{ID: "u-query", Username: "bob"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami?access_token="+signed, nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	tokens := testTokenService()
	router := newAuthRouter(tokens, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc123")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for non-bearer scheme", w.Code)
	}
}

func TestAuthMiddlewareRejectsStaleTokenVersion(t *testing.T) {
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := database.MigrateFrom(db, "../../docs/schema.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepo(db)
	ctx := context.Background()

	u := User{ID: "u-stale", Username: "carol", Email: "carol@example.com", PasswordHash: "x"}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	version, err := repo.GetTokenVersion(ctx, u.ID)
	if err != nil {
		t.Fatalf("token version: %v", err)
	}
	u.TokenVersion = version

	tokens := testTokenService()
	signed, _, err := tokens.Sign(&u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	router := newAuthRouter(tokens, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("fresh token status = %d, body = %s", w.Code, w.Body.String())
	}

	if err := repo.BumpTokenVersion(ctx, u.ID); err != nil {
		t.Fatalf("bump version: %v", err)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("stale token status = %d, want 401", w.Code)
	}
}
