package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/revocity/revocity/api/apperr"
	"go.uber.org/zap"
)

const (
	callerIDKey    = "callerID"
	callerEmailKey = "callerEmail"
)

// Claims are the identity provider token claims the API reads
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Auth verifies an HS256 bearer token and stores the subject as the caller id.
func Auth(secret []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Error(apperr.Unauthorized("Authorization header required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Error(apperr.Unauthorized("Authorization header format must be Bearer <token>"))
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			// Ensure the token's signing method is what we expect
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.Error(apperr.Unauthorized("Token expired"))
				c.Abort()
				return
			}
			logger.Debug("Invalid JWT token", zap.Error(err))
			c.Error(apperr.Unauthorized("Invalid token"))
			c.Abort()
			return
		}

		if !token.Valid || claims.Subject == "" {
			c.Error(apperr.Unauthorized("Invalid token"))
			c.Abort()
			return
		}

		c.Set(callerIDKey, claims.Subject)
		c.Set(callerEmailKey, claims.Email)

		c.Next()
	}
}

// CallerID returns the authenticated subject, or "" on public routes
func CallerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}

// CallerEmail returns the email claim of the authenticated caller, if any
func CallerEmail(c *gin.Context) string {
	return c.GetString(callerEmailKey)
}
