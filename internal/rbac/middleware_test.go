package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/auth"
)

func serve(t *testing.T, id auth.Identity, chain ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}}, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AllowsListedRole(t *testing.T) {
	code := serve(t, auth.Identity{UserID: "u", AccountID: "a", Role: RoleOperator},
		RequireAccount(), RequireAnyRole(Operators...))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_ViewerCannotOperate(t *testing.T) {
	code := serve(t, auth.Identity{UserID: "u", AccountID: "a", Role: RoleViewer},
		RequireAccount(), RequireAnyRole(Operators...))
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_AutomationOptIn(t *testing.T) {
	id := auth.Identity{UserID: "svc", AccountID: "a", Role: RoleAutomation}
	if code := serve(t, id, RequireAnyRole(Operators...)); code != http.StatusForbidden {
		t.Fatalf("automation must not pass operator routes, got %d", code)
	}
	if code := serve(t, id, RequireAnyRole(RoleAutomation)); code != http.StatusOK {
		t.Fatalf("automation should pass when listed, got %d", code)
	}
}

func TestRequireAccount_Missing(t *testing.T) {
	code := serve(t, auth.Identity{UserID: "u", Role: RoleOwner}, RequireAccount(), RequireAnyRole(RoleOwner))
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
