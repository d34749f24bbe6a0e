// Package chain reads on-chain state needed by the API: today that is
// the USDC balance of a deposit address on Polygon.
package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// USDC uses 6 decimals on every chain we care about.
const usdcDecimals = 6

var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// Reader answers balance queries against a single ERC-20 token.
type Reader struct {
	client  *ethclient.Client
	token   common.Address
	timeout time.Duration
}

// NewReader dials the RPC endpoint and binds the token contract.
func NewReader(rpcURL string, token common.Address) (*Reader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rpc")
	}
	return &Reader{
		client:  client,
		token:   token,
		timeout: 10 * time.Second,
	}, nil
}

func (r *Reader) Close() {
	r.client.Close()
}

// BalanceOf returns the token balance of addr as a human-readable
// decimal (USDC: 6 decimal places).
func (r *Reader) BalanceOf(ctx context.Context, addr common.Address) (decimal.Decimal, error) {
	raw, err := r.RawBalanceOf(ctx, addr)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(raw, -usdcDecimals), nil
}

// RawBalanceOf returns the balance in base units.
func (r *Reader) RawBalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// balanceOf(address): 4-byte selector + left-padded address.
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(addr.Bytes(), 32)...)

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "call balanceOf")
	}
	if len(out) != 32 {
		return nil, errors.Errorf("balanceOf returned %d bytes, want 32", len(out))
	}
	return new(big.Int).SetBytes(out), nil
}
