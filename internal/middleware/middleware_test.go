package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

const testSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, userID uint, role string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   "someone@example.com",
		"role":    role,
		"exp":     exp.Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(Auth(testSecret, nil))
	r.GET("/me", func(c *gin.Context) {
		actor, ok := models.ActorFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role, "ctx_id": GetUserID(c)})
	})
	r.POST("/me", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuth(t *testing.T) {
	valid := signToken(t, testSecret, 7, "staff", time.Now().Add(time.Hour))

	tests := []struct {
		name       string
		method     string
		target     string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing header", http.MethodGet, "/me", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", http.MethodGet, "/me", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", http.MethodGet, "/me", "Bearer not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong secret", http.MethodGet, "/me", "Bearer " + signToken(t, "other", 7, "staff", time.Now().Add(time.Hour)), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired", http.MethodGet, "/me", "Bearer " + signToken(t, testSecret, 7, "staff", time.Now().Add(-time.Minute)), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid header", http.MethodGet, "/me", "Bearer " + valid, http.StatusOK, ""},
		{"query token on GET", http.MethodGet, "/me?token=" + valid, "", http.StatusOK, ""},
		{"query token ignored on POST", http.MethodPost, "/me?token=" + valid, "", http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	r := authRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			}
		})
	}
}

func TestAuth_ActorInContext(t *testing.T) {
	r := authRouter()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, 42, "admin", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 42, body["user_id"])
	assert.EqualValues(t, 42, body["ctx_id"])
	assert.Equal(t, "admin", body["role"])
}

type accountStub map[uint]*models.User

func (a accountStub) Account(_ context.Context, id uint) (*models.User, error) {
	if u, ok := a[id]; ok {
		return u, nil
	}
	return nil, services.ErrUserNotFound
}

func TestAuth_ReloadsAccount(t *testing.T) {
	accounts := accountStub{
		1: {ID: 1, Email: "ana@example.com", Role: models.RoleViewer, Status: models.StatusActive},
		2: {ID: 2, Email: "bo@example.com", Role: models.RoleStaff, Status: models.StatusInactive},
	}
	r := gin.New()
	r.Use(Auth(testSecret, accounts))
	r.POST("/payments", RequirePermission(services.PermRecordPayment), func(c *gin.Context) { c.Status(http.StatusCreated) })

	tests := []struct {
		name       string
		userID     uint
		role       string
		wantStatus int
		wantCode   string
	}{
		{"demoted since the token was issued", 1, models.RoleStaff, http.StatusForbidden, "FORBIDDEN"},
		{"deactivated", 2, models.RoleStaff, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"deleted", 3, models.RoleStaff, http.StatusUnauthorized, "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payments", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, tt.userID, tt.role, time.Now().Add(time.Hour)))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestRequirePermission(t *testing.T) {
	r := gin.New()
	r.Use(Auth(testSecret, nil))
	r.GET("/users", RequirePermission(services.PermUsersManage), func(c *gin.Context) { c.Status(http.StatusOK) })

	for role, want := range map[string]int{
		"admin":  http.StatusOK,
		"staff":  http.StatusForbidden,
		"viewer": http.StatusForbidden,
	} {
		t.Run(role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, 1, role, time.Now().Add(time.Hour)))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, want, w.Code)
			if want == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", errorCode(t, w))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestID")) })

	t.Run("generates", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("reuses inbound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			assert.ErrorIs(t, c.Request.Context().Err(), context.DeadlineExceeded)
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(2, time.Minute))
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// a different client has its own budget
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("preflight answered without reaching handlers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(false))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
