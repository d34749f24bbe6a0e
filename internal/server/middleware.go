package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/betcast/gocast/internal/session"
	"github.com/betcast/gocast/pkg/logger"
)

const (
	headerSessionToken = "X-Session-Token"
	headerRequestID    = "X-Request-Id"

	ctxKeySession = "gocast.session"
)

// unauthorized is the one body every auth failure returns. Bad
// signature, unknown token and expired token are indistinguishable
// from the outside.
func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(map[string]interface{}{
			"request_id": c.GetString(headerRequestID),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed":    time.Since(start).Round(time.Millisecond).String(),
		}).Debug("http request")
	}
}

// rateLimit gates connect attempts per client IP.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}

// sessionAuth resolves the session token and stashes the snapshot in
// the request context. Missing, unknown and expired tokens all fail
// the same way.
func (s *Server) sessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(headerSessionToken)
		if token == "" {
			unauthorized(c)
			return
		}
		sess, err := s.store.Get(token)
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(ctxKeySession, sess)
		c.Next()
	}
}

// currentSession returns the snapshot stored by sessionAuth.
func currentSession(c *gin.Context) session.Session {
	return c.MustGet(ctxKeySession).(session.Session)
}
