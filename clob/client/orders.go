package client

import (
	"context"
	"net/http"

	"github.com/betcast/gocast/clob/types"
)

// PostOrder submits a signed order under the given credentials.
func (c *Client) PostOrder(ctx context.Context, creds *types.ApiKeyCreds, order *types.SignedOrder, orderType types.OrderType) (*types.OrderResponse, error) {
	payload := types.NewOrder{
		Order:     *order,
		Owner:     creds.Key,
		OrderType: orderType,
	}
	var out types.OrderResponse
	if err := c.l2Request(ctx, creds, http.MethodPost, EndpointPostOrder, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrder cancels one order by ID.
func (c *Client) CancelOrder(ctx context.Context, creds *types.ApiKeyCreds, orderID string) (*types.CancelResponse, error) {
	var out types.CancelResponse
	body := map[string]string{"orderID": orderID}
	if err := c.l2Request(ctx, creds, http.MethodDelete, EndpointCancelOrder, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelAll cancels every open order owned by the credentials.
func (c *Client) CancelAll(ctx context.Context, creds *types.ApiKeyCreds) (*types.CancelResponse, error) {
	var out types.CancelResponse
	if err := c.l2Request(ctx, creds, http.MethodDelete, EndpointCancelAll, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenOrders lists live orders for the credentials, optionally filtered
// by market (condition ID).
func (c *Client) OpenOrders(ctx context.Context, creds *types.ApiKeyCreds, market string) ([]types.OpenOrder, error) {
	endpoint := EndpointGetOpenOrders
	if market != "" {
		endpoint += "?market=" + market
	}
	var out types.OpenOrdersAPIResponse
	if err := c.l2Request(ctx, creds, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// BalanceAllowance returns the exchange-side collateral balance for the
// given signature type and funder.
func (c *Client) BalanceAllowance(ctx context.Context, creds *types.ApiKeyCreds, sigType types.SignatureType) (*types.BalanceAllowance, error) {
	endpoint := EndpointGetBalanceAllowance +
		"?asset_type=" + string(types.AssetTypeCollateral) +
		"&signature_type=" + itoaSigType(sigType)
	var out types.BalanceAllowance
	if err := c.l2Request(ctx, creds, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func itoaSigType(t types.SignatureType) string {
	switch t {
	case types.SignatureTypeMagic:
		return "1"
	case types.SignatureTypeGnosisSafe:
		return "2"
	default:
		return "0"
	}
}
