package client

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/betcast/gocast/clob/signing"
	"github.com/betcast/gocast/clob/types"
)

// RoundConfig is the decimal precision per tick size.
type RoundConfig struct {
	Price  int32
	Size   int32
	Amount int32
}

var roundingConfig = map[types.TickSize]RoundConfig{
	types.TickSize01:    {Price: 1, Size: 2, Amount: 3},
	types.TickSize001:   {Price: 2, Size: 2, Amount: 4},
	types.TickSize0001:  {Price: 3, Size: 2, Amount: 5},
	types.TickSize00001: {Price: 4, Size: 2, Amount: 6},
}

// usdc/ctf amounts are 6-decimal fixed point on chain
var sixDecimals = decimal.New(1, 6)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// OrderBuilder signs orders with the operator key on behalf of a proxy
// wallet (the funder), using Safe-style signature type.
type OrderBuilder struct {
	client        *Client
	signatureType types.SignatureType
	funderAddress string
}

// NewOrderBuilder builds orders funded by funderAddress.
func NewOrderBuilder(client *Client, signatureType types.SignatureType, funderAddress string) *OrderBuilder {
	return &OrderBuilder{
		client:        client,
		signatureType: signatureType,
		funderAddress: funderAddress,
	}
}

// BuildOrder converts a UserOrder into a signed CLOB order.
func (ob *OrderBuilder) BuildOrder(userOrder *types.UserOrder, options *types.CreateOrderOptions) (*types.SignedOrder, error) {
	if err := ob.client.CanL1Auth(); err != nil {
		return nil, err
	}

	contractConfig, err := GetContractConfig(ob.client.ChainID())
	if err != nil {
		return nil, err
	}
	exchange := contractConfig.Exchange
	if options.NegRisk {
		exchange = contractConfig.NegRiskExchange
	}

	round, ok := roundingConfig[options.TickSize]
	if !ok {
		return nil, errors.Errorf("unsupported tick size: %s", options.TickSize)
	}

	price := decimal.NewFromFloat(userOrder.Price).Round(round.Price)
	size := decimal.NewFromFloat(userOrder.Size).Round(round.Size)
	if price.LessThanOrEqual(decimal.Zero) || price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("price must be in (0, 1), got %s", price)
	}
	if size.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Errorf("size must be positive, got %s", size)
	}

	// BUY: give collateral (price*size), receive outcome tokens (size).
	// SELL: the reverse.
	var makerAmount, takerAmount decimal.Decimal
	switch userOrder.Side {
	case types.SideBuy:
		makerAmount = price.Mul(size).Round(round.Amount)
		takerAmount = size
	case types.SideSell:
		makerAmount = size
		takerAmount = price.Mul(size).Round(round.Amount)
	default:
		return nil, errors.Errorf("invalid side: %s", userOrder.Side)
	}

	feeRateBps := 0
	if userOrder.FeeRateBps != nil {
		feeRateBps = *userOrder.FeeRateBps
	}
	nonce := 0
	if userOrder.Nonce != nil {
		nonce = *userOrder.Nonce
	}
	var expiration int64
	if userOrder.Expiration != nil {
		expiration = *userOrder.Expiration
	}
	taker := zeroAddress
	if userOrder.Taker != nil && *userOrder.Taker != "" {
		taker = *userOrder.Taker
	}

	signerAddr, err := ob.client.OperatorAddress()
	if err != nil {
		return nil, err
	}
	maker := ob.funderAddress
	if maker == "" {
		maker = signerAddr.Hex()
	}

	order := &types.SignedOrder{
		Salt:          rand.New(rand.NewSource(time.Now().UnixNano())).Int63(),
		Maker:         maker,
		Signer:        signerAddr.Hex(),
		Taker:         taker,
		TokenID:       userOrder.TokenID,
		MakerAmount:   makerAmount.Mul(sixDecimals).Truncate(0).String(),
		TakerAmount:   takerAmount.Mul(sixDecimals).Truncate(0).String(),
		Expiration:    decimal.NewFromInt(expiration).String(),
		Nonce:         decimal.NewFromInt(int64(nonce)).String(),
		FeeRateBps:    decimal.NewFromInt(int64(feeRateBps)).String(),
		Side:          userOrder.Side,
		SignatureType: int(ob.signatureType),
	}

	sig, err := signing.BuildOrderSignature(ob.client.authConfig.PrivateKey, ob.client.ChainID(), exchange, order)
	if err != nil {
		return nil, err
	}
	order.Signature = sig
	return order, nil
}
