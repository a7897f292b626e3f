package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// Claims represents the JWT claims structure
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AccountLoader returns the stored account behind a token
type AccountLoader interface {
	Account(ctx context.Context, id uint) (*models.User, error)
}

// Auth validates the bearer token and stores the caller as the request's
// actor. Services read the actor from the request context. With a non-nil
// accounts the user is reloaded on every request, so a deactivated account
// is locked out and a changed role applies before the token expires.
func Auth(jwtSecret string, accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""

		if authHeader == "" {
			// download links cannot carry headers
			if c.Request.Method == http.MethodGet {
				tokenString = c.Query("token")
			}
			if tokenString == "" {
				abortWithError(c, http.StatusUnauthorized, services.ErrUnauthorized.Code, "authorization header is required")
				return
			}
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				abortWithError(c, http.StatusUnauthorized, services.ErrUnauthorized.Code, "invalid authorization header format")
				return
			}
			tokenString = strings.TrimSpace(parts[1])
		}

		claims, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, services.ErrInvalidToken.Code, err.Error())
			return
		}

		email, role := claims.Email, claims.Role
		if accounts != nil {
			user, err := accounts.Account(c.Request.Context(), claims.UserID)
			switch {
			case errors.Is(err, services.ErrUserNotFound):
				abortWithError(c, http.StatusUnauthorized, services.ErrInvalidToken.Code, "account no longer exists")
				return
			case err != nil:
				logger.FromContext(c.Request.Context()).Error("load account", "user_id", claims.UserID, "error", err)
				abortWithError(c, http.StatusInternalServerError, services.ErrStorage.Code, services.ErrStorage.Message)
				return
			case !user.IsActive():
				abortWithError(c, http.StatusUnauthorized, services.ErrUnauthorized.Code, "account is inactive")
				return
			}
			email, role = user.Email, user.Role
		}

		actor := models.Actor{
			UserID:    claims.UserID,
			Email:     email,
			Role:      role,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		ctx := models.ContextWithActor(c.Request.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user_id", claims.UserID))
		c.Request = c.Request.WithContext(ctx)

		c.Set("userID", claims.UserID)
		c.Set("userRole", role)
		c.Set("claims", claims)

		c.Next()
	}
}

// validateToken parses and validates a JWT token string
func validateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get("userID")
	if !exists {
		return 0
	}
	return userID.(uint)
}

// GetUserRole extracts the user role from the Gin context
func GetUserRole(c *gin.Context) string {
	role, exists := c.Get("userRole")
	if !exists {
		return ""
	}
	return role.(string)
}

// RequireRole returns a middleware that requires one of the given roles
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRole(c)
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, services.ErrForbidden.Code, services.ErrForbidden.Message)
	}
}

// RequirePermission admits the roles holding perm in the access gate table
func RequirePermission(perm services.Permission) gin.HandlerFunc {
	return RequireRole(services.RolesFor(perm)...)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
