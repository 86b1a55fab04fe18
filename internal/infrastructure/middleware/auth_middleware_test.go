package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const authTestSecret = "unit-test-secret"

func signIdentity(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()
	claims := identityClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(authTestSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func authRouter(enabled bool) (*gin.Engine, *struct{ userID domain.UserID }) {
	gin.SetMode(gin.TestMode)
	captured := &struct{ userID domain.UserID }{}

	router := gin.New()
	router.Use(AuthMiddleware(enabled, authTestSecret))
	router.GET("/whoami", func(c *gin.Context) {
		if v, ok := c.Get("user_id"); ok {
			captured.userID = v.(domain.UserID)
		}
		c.Status(http.StatusOK)
	})
	return router, captured
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, captured := authRouter(true)

	req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signIdentity(t, "doctor-1", "doctor", time.Hour))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if captured.userID != "doctor-1" {
		t.Errorf("user_id = %q, want doctor-1", captured.userID)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router, _ := authRouter(true)

	req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	router, _ := authRouter(true)

	req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signIdentity(t, "doctor-1", "doctor", -time.Minute))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_DisabledTrustsHeaders(t *testing.T) {
	router, captured := authRouter(false)

	req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "patient-9")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if captured.userID != "patient-9" {
		t.Errorf("user_id = %q, want patient-9", captured.userID)
	}
}

func TestOptionalAuthMiddleware_NeverRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OptionalAuthMiddleware(true, authTestSecret))
	router.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with a bad token", w.Code)
	}
}
