package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/apperr"
	"go.uber.org/zap"
)

// CORS middleware for handling cross-origin requests
func CORS() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "ETag, Retry-After")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

// Logger middleware for structured request logging
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if caller := CallerID(c); caller != "" {
			fields = append(fields, zap.String("caller", caller))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("Request failed", fields...)
		case status >= 400:
			logger.Warn("Request rejected", fields...)
		default:
			logger.Info("Request handled", fields...)
		}
	}
}

// ErrorHandler renders the last error pushed with c.Error. AppErrors keep
// their status and message; anything else is a 500 with a generic message.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()

		statusCode := http.StatusInternalServerError
		message := "Internal server error"
		code := "INTERNAL_ERROR"
		var details map[string]string

		var appErr *apperr.AppError
		switch {
		case errors.As(err.Err, &appErr):
			statusCode = appErr.HTTPStatus
			code = appErr.Code
			details = appErr.Details
			if statusCode < http.StatusInternalServerError {
				message = appErr.Message
			}
		case err.Type == gin.ErrorTypeBind:
			statusCode = http.StatusBadRequest
			message = "Invalid request format"
			code = "BAD_REQUEST"
		}

		if statusCode >= http.StatusInternalServerError {
			logger.Error("Request error", zap.String("path", c.Request.URL.Path), zap.Error(err.Err))
		}

		body := gin.H{
			"message": message,
			"code":    code,
		}
		if len(details) > 0 {
			body["details"] = details
		}
		c.JSON(statusCode, gin.H{"error": body})
	})
}

// Recovery middleware for panic recovery
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"message": "Internal server error",
				"code":    "INTERNAL_ERROR",
			},
		})
	})
}
