package client

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/betcast/gocast/clob/signing"
	"github.com/betcast/gocast/clob/types"
)

// CreateOrDeriveAPIKey returns trading credentials for the operator key,
// deriving the existing key set when the account already has one and
// creating a fresh one otherwise (L1 auth both ways).
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context, nonce int64) (*types.ApiKeyCreds, error) {
	if err := c.CanL1Auth(); err != nil {
		return nil, err
	}

	headers, err := signing.CreateL1Headers(c.authConfig.PrivateKey, c.ChainID(), nonce, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create L1 headers")
	}

	l1 := func(req map[string]string) map[string]string {
		req["POLY_ADDRESS"] = headers.PolyAddress
		req["POLY_SIGNATURE"] = headers.PolySignature
		req["POLY_TIMESTAMP"] = headers.PolyTimestamp
		req["POLY_NONCE"] = headers.PolyNonce
		return req
	}

	// Derive first; 400 means no key exists yet.
	var raw types.ApiKeyRaw
	resp, err := c.clob.R().
		SetContext(ctx).
		SetHeaders(l1(map[string]string{})).
		SetResult(&raw).
		Get(EndpointDeriveAPIKey)
	if err == nil && resp.IsSuccess() && raw.ApiKey != "" {
		return &types.ApiKeyCreds{Key: raw.ApiKey, Secret: raw.Secret, Passphrase: raw.Passphrase}, nil
	}
	if err == nil && resp.StatusCode() != http.StatusBadRequest && !resp.IsSuccess() {
		return nil, errors.Errorf("derive api key: http %d: %s", resp.StatusCode(), resp.String())
	}

	raw = types.ApiKeyRaw{}
	resp, err = c.clob.R().
		SetContext(ctx).
		SetHeaders(l1(map[string]string{})).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{}).
		SetResult(&raw).
		Post(EndpointCreateAPIKey)
	if err != nil {
		return nil, errors.Wrap(err, "create api key")
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("create api key: http %d: %s", resp.StatusCode(), resp.String())
	}
	if raw.ApiKey == "" {
		return nil, errors.New("create api key: empty response")
	}
	return &types.ApiKeyCreds{Key: raw.ApiKey, Secret: raw.Secret, Passphrase: raw.Passphrase}, nil
}
