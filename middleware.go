package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loopioopisnoopi/digital-asset-tokenization/ipfs"
	"github.com/loopioopisnoopi/digital-asset-tokenization/registry"
)

// callerAddress resolves the caller identity for a mutation: the
// user_address body field wins, then the X-User-Address header. The address
// is client-supplied and unauthenticated; a production deployment would
// derive it from a verified credential at this boundary instead.
func callerAddress(c *gin.Context, field string) (registry.Address, error) {
	raw := field
	if raw == "" {
		raw = c.GetHeader("X-User-Address")
	}
	if raw == "" {
		return "", errors.New("user_address field or X-User-Address header is required")
	}

	return registry.ParseAddress(raw)
}

func checkErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrAlreadyRegistered):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, registry.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	default:
		var serr *ipfs.ServiceError
		if errors.As(err, &serr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": serr.Error(), "upstream_status": serr.Status()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")))
	}
}
