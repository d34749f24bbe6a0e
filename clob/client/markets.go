package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/betcast/gocast/clob/types"
)

// MarketBySlug fetches one market from the Gamma API by slug.
// Returns (nil, nil) when the market does not exist.
func (c *Client) MarketBySlug(ctx context.Context, slug string) (*types.GammaMarket, error) {
	var market types.GammaMarket
	resp, err := c.gamma.R().
		SetContext(ctx).
		SetResult(&market).
		Get(GammaEndpointMarketBySlug + slug)
	if err != nil {
		return nil, errors.Wrapf(err, "gamma market %s", slug)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("gamma market %s: http %d", slug, resp.StatusCode())
	}
	return &market, nil
}

// Markets lists active markets from the Gamma API.
func (c *Client) Markets(ctx context.Context, limit int) ([]types.GammaMarket, error) {
	var markets []types.GammaMarket
	resp, err := c.gamma.R().
		SetContext(ctx).
		SetQueryParam("closed", "false").
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&markets).
		Get(GammaEndpointMarkets)
	if err != nil {
		return nil, errors.Wrap(err, "gamma markets")
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("gamma markets: http %d", resp.StatusCode())
	}
	return markets, nil
}

// SimplifiedMarkets lists markets from the CLOB (price/token view).
func (c *Client) SimplifiedMarkets(ctx context.Context, cursor string) (*types.SimplifiedMarketsResponse, error) {
	var out types.SimplifiedMarketsResponse
	req := c.clob.R().SetContext(ctx).SetResult(&out)
	if cursor != "" {
		req.SetQueryParam("next_cursor", cursor)
	}
	resp, err := req.Get(EndpointSimplifiedMarkets)
	if err != nil {
		return nil, errors.Wrap(err, "simplified markets")
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("simplified markets: http %d", resp.StatusCode())
	}
	return &out, nil
}
