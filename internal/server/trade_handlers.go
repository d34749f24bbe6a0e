package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	clobclient "github.com/betcast/gocast/clob/client"
	clobtypes "github.com/betcast/gocast/clob/types"
	"github.com/betcast/gocast/internal/session"
	"github.com/betcast/gocast/pkg/logger"
)

var errNoUpstream = errors.New("exchange client not configured")

func upstreamUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "exchange unavailable"})
}

// sessionCredential returns the credentials trading calls run under.
// A degraded session (no credentials yet) gets one repair attempt.
func (s *Server) sessionCredential(c *gin.Context, sess session.Session) (*clobtypes.ApiKeyCreds, bool) {
	if sess.Credential != nil {
		return sess.Credential, true
	}
	if err := s.attachOperatorCredential(c.Request.Context(), sess.Token); err != nil {
		logger.Warnf("credential repair failed for %s: %v", sess.Owner.Hex(), err)
		c.JSON(http.StatusConflict, gin.H{"error": "session has no exchange credentials"})
		return nil, false
	}
	repaired, err := s.store.Get(sess.Token)
	if err != nil || repaired.Credential == nil {
		unauthorized(c)
		return nil, false
	}
	return repaired.Credential, true
}

// handleDepositAddress returns where the user funds this session: the
// derived address, plus the USDC contract so the client renders the
// right token.
func (s *Server) handleDepositAddress(c *gin.Context) {
	sess := currentSession(c)

	chainID := clobtypes.ChainPolygon
	if s.clob != nil {
		chainID = s.clob.ChainID()
	}
	contracts, err := clobclient.GetContractConfig(chainID)
	if err != nil {
		upstreamUnavailable(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deposit_address": sess.DepositSink().Hex(),
		"token_address":   contracts.Collateral,
		"token_symbol":    "USDC",
		"chain_id":        int64(chainID),
	})
}

// handleBalance reads the USDC balance of the session's deposit address
// straight from the chain.
func (s *Server) handleBalance(c *gin.Context) {
	if s.chain == nil {
		upstreamUnavailable(c)
		return
	}
	sess := currentSession(c)

	balance, err := s.chain.BalanceOf(c.Request.Context(), sess.DepositSink())
	if err != nil {
		logger.Errorf("balance read for %s: %v", sess.DepositSink().Hex(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "balance read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": sess.DepositSink().Hex(),
		"balance": balance.String(),
		"symbol":  "USDC",
	})
}

func (s *Server) handleMarkets(c *gin.Context) {
	if s.clob == nil {
		upstreamUnavailable(c)
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	markets, err := s.clob.Markets(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("list markets: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "market lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

func (s *Server) handleMarketBySlug(c *gin.Context) {
	if s.clob == nil {
		upstreamUnavailable(c)
		return
	}
	market, err := s.clob.MarketBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		logger.Errorf("market %s: %v", c.Param("slug"), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "market lookup failed"})
		return
	}
	if market == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "market not found"})
		return
	}
	c.JSON(http.StatusOK, market)
}

type orderRequest struct {
	TokenID   string  `json:"token_id" binding:"required"`
	Side      string  `json:"side" binding:"required"`
	Price     float64 `json:"price" binding:"required"`
	Size      float64 `json:"size" binding:"required"`
	OrderType string  `json:"order_type"`
	TickSize  string  `json:"tick_size"`
	NegRisk   bool    `json:"neg_risk"`
}

// handleOrder signs and submits a limit order funded by the session's
// derived address.
func (s *Server) handleOrder(c *gin.Context) {
	if s.clob == nil {
		upstreamUnavailable(c)
		return
	}
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	side := clobtypes.Side(req.Side)
	if side != clobtypes.SideBuy && side != clobtypes.SideSell {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}
	orderType := clobtypes.OrderTypeGTC
	if req.OrderType != "" {
		orderType = clobtypes.OrderType(req.OrderType)
	}
	tickSize := clobtypes.TickSize001
	if req.TickSize != "" {
		tickSize = clobtypes.TickSize(req.TickSize)
	}

	sess := currentSession(c)
	creds, ok := s.sessionCredential(c, sess)
	if !ok {
		return
	}

	builder := clobclient.NewOrderBuilder(s.clob, clobtypes.SignatureTypeGnosisSafe, sess.TradingIdentity().Hex())
	signed, err := builder.BuildOrder(&clobtypes.UserOrder{
		TokenID: req.TokenID,
		Price:   req.Price,
		Size:    req.Size,
		Side:    side,
	}, &clobtypes.CreateOrderOptions{TickSize: tickSize, NegRisk: req.NegRisk})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.clob.PostOrder(c.Request.Context(), creds, signed, orderType)
	if err != nil {
		logger.Errorf("post order for %s: %v", sess.Owner.Hex(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "order submission failed"})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": resp.ErrorMsg})
		return
	}
	logger.WithFields(map[string]interface{}{
		"owner":    sess.Owner.Hex(),
		"order_id": resp.OrderID,
		"side":     side,
		"token_id": req.TokenID,
	}).Info("order placed")
	c.JSON(http.StatusOK, resp)
}

type cancelRequest struct {
	OrderID string `json:"order_id"`
}

// handleCancel cancels one order, or every open order when no ID is
// given.
func (s *Server) handleCancel(c *gin.Context) {
	if s.clob == nil {
		upstreamUnavailable(c)
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess := currentSession(c)
	creds, ok := s.sessionCredential(c, sess)
	if !ok {
		return
	}

	var resp *clobtypes.CancelResponse
	var err error
	if req.OrderID != "" {
		resp, err = s.clob.CancelOrder(c.Request.Context(), creds, req.OrderID)
	} else {
		resp, err = s.clob.CancelAll(c.Request.Context(), creds)
	}
	if err != nil {
		logger.Errorf("cancel for %s: %v", sess.Owner.Hex(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "cancel failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleOpenOrders(c *gin.Context) {
	if s.clob == nil {
		upstreamUnavailable(c)
		return
	}
	sess := currentSession(c)
	creds, ok := s.sessionCredential(c, sess)
	if !ok {
		return
	}

	orders, err := s.clob.OpenOrders(c.Request.Context(), creds, c.Query("market"))
	if err != nil {
		logger.Errorf("open orders for %s: %v", sess.Owner.Hex(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "order lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
