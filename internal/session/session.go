// Package session is the process-wide session table: one live session
// per owner address, bound to the owner's derived proxy address and,
// once the exchange login completes, to its trading credentials.
package session

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	clobtypes "github.com/betcast/gocast/clob/types"
)

// ErrNotFound covers both "token never existed" and "token expired".
// Callers cannot tell the two apart; that is deliberate.
var ErrNotFound = errors.New("session: not found")

// Session is an immutable snapshot of one session table entry.
type Session struct {
	// Token is the opaque credential the client presents. 32 bytes of
	// crypto/rand entropy, hex encoded.
	Token string

	// Owner is the wallet address the client connected with.
	Owner common.Address

	// Proxy is the derived address bound to this owner.
	Proxy common.Address

	// Credential is the CLOB API key set, nil until attached.
	Credential *clobtypes.ApiKeyCreds

	CreatedAt time.Time
	ExpiresAt time.Time
}

// TradingIdentity is the address this session trades as.
func (s Session) TradingIdentity() common.Address {
	return s.Proxy
}

// DepositSink is the address deposits are credited to. Same value as
// TradingIdentity today; two names so the roles can split later without
// breaking callers.
func (s Session) DepositSink() common.Address {
	return s.Proxy
}

// snapshot returns a copy safe to hand outside the store lock.
func (s *Session) snapshot() Session {
	out := *s
	if s.Credential != nil {
		creds := *s.Credential
		out.Credential = &creds
	}
	return out
}
