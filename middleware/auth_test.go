package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-ordering-api/config"
	"food-ordering-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(roles ...models.UserRole) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", AuthRequired(), RoleRequired(roles...), func(c *gin.Context) {
		id := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": id.Role()})
	})
	return r
}

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.JWTSecret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAuthRequired(t *testing.T) {
	customer := &models.User{ID: 7, Email: "c@example.com", Role: models.RoleCustomer}
	valid, err := GenerateToken(customer)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	expired := signed(t, Claims{
		UserID: 7, Role: models.RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	driver := signed(t, Claims{UserID: 8, Role: "driver"})
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7, Role: models.RoleCustomer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK},
		{"query token", "", valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"unknown role", "Bearer " + driver, "", http.StatusUnauthorized},
		{"alg none", "Bearer " + unsigned, "", http.StatusUnauthorized},
	}
	r := newRouter(models.RoleCustomer)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/me"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRoleRequired(t *testing.T) {
	owner := &models.User{ID: 3, Email: "o@example.com", Role: models.RoleRestaurant}
	token, _ := GenerateToken(owner)

	for _, tt := range []struct {
		roles []models.UserRole
		want  int
	}{
		{[]models.UserRole{models.RoleRestaurant}, http.StatusOK},
		{[]models.UserRole{models.RoleAdmin, models.RoleRestaurant}, http.StatusOK},
		{[]models.UserRole{models.RoleCustomer}, http.StatusForbidden},
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		newRouter(tt.roles...).ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("roles %v: status = %d, want %d", tt.roles, w.Code, tt.want)
		}
	}
}

func TestIdentityFromClaims(t *testing.T) {
	tests := []struct {
		role models.UserRole
		want Identity
	}{
		{models.RoleCustomer, Customer{ID: 1, Email: "x"}},
		{models.RoleRestaurant, RestaurantOwner{ID: 1, Email: "x"}},
		{models.RoleAdmin, Admin{ID: 1, Email: "x"}},
	}
	for _, tt := range tests {
		got, err := IdentityFromClaims(&Claims{UserID: 1, Email: "x", Role: tt.role})
		if err != nil {
			t.Fatalf("IdentityFromClaims(%s): %v", tt.role, err)
		}
		if got != tt.want || got.Role() != tt.role || got.UserID() != 1 {
			t.Errorf("IdentityFromClaims(%s) = %#v", tt.role, got)
		}
	}
	if _, err := IdentityFromClaims(&Claims{Role: "driver"}); err == nil {
		t.Error("expected an error for an unknown role")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("request id = %q, want req-123", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("no request id minted")
	}
}
