// Package server is the HTTP surface of the mini-app backend: wallet
// connect, session introspection, deposit info and trading pass-through
// to the exchange. Everything except connect and healthz is gated on a
// session token.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	clobclient "github.com/betcast/gocast/clob/client"
	clobtypes "github.com/betcast/gocast/clob/types"
	"github.com/betcast/gocast/internal/chain"
	"github.com/betcast/gocast/internal/session"
	"github.com/betcast/gocast/internal/wallet"
	"github.com/betcast/gocast/pkg/ratelimit"
)

// Config carries the policy knobs the handlers need.
type Config struct {
	// DegradedMode keeps connect working when upstream credential
	// derivation fails: the session is created without credentials and
	// trading endpoints report the gap. Off by default.
	DegradedMode bool

	// ConnectRatePerMin caps connect attempts per client IP.
	ConnectRatePerMin int
}

// Server wires the session store, the deriver and the upstream clients
// behind a gin router. Clob and Chain may be nil; the routes that need
// them respond 503 instead.
type Server struct {
	cfg     Config
	store   *session.Store
	deriver *wallet.Deriver
	clob    *clobclient.Client
	chain   *chain.Reader
	limiter *ratelimit.KeyedLimiter

	// operator credentials are account-wide, so derive once and reuse.
	credMu sync.Mutex
	creds  *clobtypes.ApiKeyCreds
}

// New assembles a server. store and deriver are required.
func New(cfg Config, store *session.Store, deriver *wallet.Deriver, clob *clobclient.Client, reader *chain.Reader) *Server {
	rate := cfg.ConnectRatePerMin
	if rate <= 0 {
		rate = 30
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		deriver: deriver,
		clob:    clob,
		chain:   reader,
		limiter: ratelimit.NewKeyedLimiter(rate, max(rate/60, 1), 10*time.Minute),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.store.Len()})
	})

	api := r.Group("/api")
	api.POST("/connect", s.rateLimit(), s.handleConnect)

	authed := api.Group("", s.sessionAuth())
	authed.GET("/session", s.handleSessionInfo)
	authed.POST("/session/credential", s.handleAttachCredential)
	authed.POST("/logout", s.handleLogout)
	authed.GET("/deposit-address", s.handleDepositAddress)
	authed.GET("/balance", s.handleBalance)
	authed.GET("/markets", s.handleMarkets)
	authed.GET("/markets/:slug", s.handleMarketBySlug)
	authed.POST("/order", s.handleOrder)
	authed.POST("/cancel", s.handleCancel)
	authed.GET("/orders", s.handleOpenOrders)

	return r
}
