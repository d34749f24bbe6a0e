package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	clobtypes "github.com/betcast/gocast/clob/types"
	"github.com/betcast/gocast/internal/wallet"
	"github.com/betcast/gocast/pkg/logger"
)

type connectRequest struct {
	Address string `json:"address" binding:"required"`
	// Signature and Message carry an EIP-191 proof of control. Optional:
	// the mini-app host vouches for the address in the embedded flow.
	Signature string `json:"signature"`
	Message   string `json:"message"`
	// FID is the Farcaster ID, logged for support, never trusted.
	FID int64 `json:"fid"`
}

type connectResponse struct {
	SessionID    string `json:"session_id"`
	ProxyAddress string `json:"proxy_address"`
	ExpiresAt    int64  `json:"expires_at"`
	Degraded     bool   `json:"degraded,omitempty"`
}

func (s *Server) handleConnect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	owner, err := wallet.ParseAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}

	if req.Signature != "" {
		if req.Message == "" || wallet.VerifyPersonalSignature(req.Message, req.Signature, owner) != nil {
			unauthorized(c)
			return
		}
	}

	sess, created, err := s.store.CreateOrGet(owner)
	if err != nil {
		logger.Errorf("connect: create session for %s: %v", owner.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	degraded := false
	if created && sess.Credential == nil {
		if err := s.attachOperatorCredential(c.Request.Context(), sess.Token); err != nil {
			if !s.cfg.DegradedMode {
				s.store.Delete(sess.Token)
				logger.Errorf("connect: credential derivation failed for %s: %v", owner.Hex(), err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "exchange login failed"})
				return
			}
			degraded = true
			logger.Warnf("connect: degraded session for %s (no credentials): %v", owner.Hex(), err)
		}
	}

	if created {
		logger.WithFields(map[string]interface{}{
			"owner": sess.Owner.Hex(),
			"proxy": sess.Proxy.Hex(),
			"fid":   req.FID,
		}).Info("session created")
	}

	c.JSON(http.StatusOK, connectResponse{
		SessionID:    sess.Token,
		ProxyAddress: sess.Proxy.Hex(),
		ExpiresAt:    sess.ExpiresAt.Unix(),
		Degraded:     degraded,
	})
}

// attachOperatorCredential derives the exchange API key set (cached
// after the first success) and binds it to the session.
func (s *Server) attachOperatorCredential(ctx context.Context, token string) error {
	creds, err := s.operatorCredentials(ctx)
	if err != nil {
		return err
	}
	return s.store.AttachCredential(token, creds)
}

func (s *Server) operatorCredentials(ctx context.Context) (*clobtypes.ApiKeyCreds, error) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	if s.creds != nil {
		return s.creds, nil
	}
	if s.clob == nil {
		return nil, errNoUpstream
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	creds, err := s.clob.CreateOrDeriveAPIKey(ctx, 0)
	if err != nil {
		return nil, err
	}
	s.creds = creds
	return creds, nil
}

func (s *Server) handleSessionInfo(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"owner":          sess.Owner.Hex(),
		"proxy_address":  sess.Proxy.Hex(),
		"created_at":     sess.CreatedAt.Unix(),
		"expires_at":     sess.ExpiresAt.Unix(),
		"has_credential": sess.Credential != nil,
	})
}

type attachCredentialRequest struct {
	Key        string `json:"key" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
	Passphrase string `json:"passphrase" binding:"required"`
}

// handleAttachCredential lets a client supply its own exchange key set,
// replacing whatever the session carries.
func (s *Server) handleAttachCredential(c *gin.Context) {
	var req attachCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sess := currentSession(c)
	err := s.store.AttachCredential(sess.Token, &clobtypes.ApiKeyCreds{
		Key:        req.Key,
		Secret:     req.Secret,
		Passphrase: req.Passphrase,
	})
	if err != nil {
		unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleLogout(c *gin.Context) {
	sess := currentSession(c)
	s.store.Delete(sess.Token)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
