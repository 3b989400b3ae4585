// README: Auth middleware tests.
package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/auth"
	"dormdrop/internal/http/middleware"
	"dormdrop/internal/types"
)

const testSecret = "test-secret"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(testSecret))
	r.GET("/test", func(c *gin.Context) {
		actor := middleware.Actor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	w := doRequest(newTestRouter(), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_InvalidBearerPrefix(t *testing.T) {
	w := doRequest(newTestRouter(), "Token sometoken")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_GarbageToken(t *testing.T) {
	w := doRequest(newTestRouter(), "Bearer not.a.token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	token, err := auth.Sign(types.Actor{ID: "u1", Name: "Asha", Role: types.RoleCustomer}, "other-secret")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	w := doRequest(newTestRouter(), "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	token, err := auth.Sign(types.Actor{ID: "u1", Name: "Asha", Role: types.RoleCustomer}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	w := doRequest(newTestRouter(), "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); !strings.Contains(body, `"id":"u1"`) {
		t.Errorf("unexpected body: %s", body)
	}
}
