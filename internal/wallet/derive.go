// Package wallet holds the proxy-address derivation and the wallet
// proof-of-control check. Derivation is deterministic and local: the
// proxy address is a pure function of the server key and the owner
// address, so the same owner always funds and trades through the same
// address for the lifetime of the key.
package wallet

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DomainTag separates this derivation from any other keccak use of the
// same inputs. Pinned: changing it (or the server key) changes every
// derived address and orphans funds already deposited.
const DomainTag = "gocast/proxy-wallet/v1"

var (
	// ErrMissingSecret means the server key material is absent or
	// malformed. Startup-fatal, never a per-request condition.
	ErrMissingSecret = errors.New("wallet: server secret missing or malformed")

	// ErrInvalidAddress means the supplied owner address is not a
	// well-formed 20-byte hex address.
	ErrInvalidAddress = errors.New("wallet: invalid owner address")
)

// Deriver maps owner addresses to proxy addresses under one server key.
type Deriver struct {
	serverAddr common.Address
}

// NewDeriver builds a Deriver from the server's secp256k1 key.
func NewDeriver(key *ecdsa.PrivateKey) (*Deriver, error) {
	if key == nil {
		return nil, ErrMissingSecret
	}
	return &Deriver{serverAddr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// ServerAddress is the public identifier of the server key that is
// mixed into every derivation.
func (d *Deriver) ServerAddress() common.Address {
	return d.serverAddr
}

// Derive computes the proxy address for owner:
// keccak256(tag || serverAddr || owner), last 20 bytes of the digest.
// Pure; total for any 20-byte owner.
func (d *Deriver) Derive(owner common.Address) common.Address {
	data := make([]byte, 0, len(DomainTag)+2*common.AddressLength)
	data = append(data, []byte(DomainTag)...)
	data = append(data, d.serverAddr.Bytes()...)
	data = append(data, owner.Bytes()...)
	digest := crypto.Keccak256(data)
	return common.BytesToAddress(digest[12:])
}

// ParseAddress validates and normalizes a client-supplied address.
func ParseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(raw), nil
}
