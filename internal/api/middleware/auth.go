package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"stocksync/internal/models"
)

const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

var errInvalidToken = errors.New("invalid token")

// Auth verifies an HS256 bearer token and stores its subject and role on the
// context. Tokens are issued elsewhere; the subject is the user id.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if header == "" || raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
			return
		}

		claims, err := parseToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.userID)
		c.Set(RoleKey, claims.role)
		c.Next()
	}
}

// RequireRole lets the request through when the caller has one of roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.UserRole(c.GetString(RoleKey))
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
	}
}

// UserID returns the authenticated caller.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

type tokenClaims struct {
	userID string
	role   string
}

func parseToken(raw, secret string) (*tokenClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub, _ = claims["user_id"].(string)
	}
	if sub == "" {
		return nil, errInvalidToken
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = string(models.UserRoleStaff)
	}
	return &tokenClaims{userID: sub, role: role}, nil
}
