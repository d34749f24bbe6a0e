// Package client is a trimmed Polymarket client: CLOB credential
// derivation, order submission and Gamma market lookups. Only the
// operator key signs; the per-user proxy address rides along as the
// order funder.
package client

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betcast/gocast/clob/signing"
	"github.com/betcast/gocast/clob/types"
	"github.com/ethereum/go-ethereum/common"
)

// AuthConfig holds the operator signing identity.
type AuthConfig struct {
	PrivateKey *ecdsa.PrivateKey
	ChainID    types.Chain
}

// Client talks to the CLOB and Gamma APIs.
type Client struct {
	clob       *resty.Client
	gamma      *resty.Client
	authConfig *AuthConfig
}

// New builds a client for the given hosts. authConfig may be nil for a
// read-only client (market data only).
func New(clobHost, gammaHost string, authConfig *AuthConfig) *Client {
	return &Client{
		clob:       newRestyClient(clobHost),
		gamma:      newRestyClient(gammaHost),
		authConfig: authConfig,
	}
}

func newRestyClient(host string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(host, "/")).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp.StatusCode() == http.StatusTooManyRequests {
				if ra := resp.Header().Get("Retry-After"); ra != "" {
					if d, err := time.ParseDuration(ra + "s"); err == nil {
						return d, nil
					}
				}
				return 10 * time.Second, nil
			}
			return 0, nil
		}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "gocast/1.0")
}

// CanL1Auth reports whether wallet-signature auth is possible.
func (c *Client) CanL1Auth() error {
	if c.authConfig == nil || c.authConfig.PrivateKey == nil {
		return errors.New("L1 auth unavailable: operator key not configured")
	}
	return nil
}

// OperatorAddress returns the operator EOA derived from the signing key.
func (c *Client) OperatorAddress() (common.Address, error) {
	if err := c.CanL1Auth(); err != nil {
		return common.Address{}, err
	}
	return signing.GetAddressFromPrivateKey(c.authConfig.PrivateKey), nil
}

// ChainID returns the configured chain, defaulting to Polygon.
func (c *Client) ChainID() types.Chain {
	if c.authConfig == nil || c.authConfig.ChainID == 0 {
		return types.ChainPolygon
	}
	return c.authConfig.ChainID
}

// l2Request performs an authenticated CLOB request and decodes out.
func (c *Client) l2Request(ctx context.Context, creds *types.ApiKeyCreds, method, endpoint string, body any, out any) error {
	if err := c.CanL1Auth(); err != nil {
		return err
	}
	if creds == nil || creds.Key == "" {
		return errors.New("L2 auth unavailable: credentials missing")
	}

	var bodyStr *string
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		bodyBytes = b
		s := string(b)
		bodyStr = &s
	}

	addr, err := c.OperatorAddress()
	if err != nil {
		return err
	}
	headers, err := signing.CreateL2Headers(addr.Hex(), creds, &types.L2HeaderArgs{
		Method:      method,
		RequestPath: endpoint,
		Body:        bodyStr,
	}, nil)
	if err != nil {
		return err
	}

	req := c.clob.R().
		SetContext(ctx).
		SetHeader("POLY_ADDRESS", headers.PolyAddress).
		SetHeader("POLY_SIGNATURE", headers.PolySignature).
		SetHeader("POLY_TIMESTAMP", headers.PolyTimestamp).
		SetHeader("POLY_API_KEY", headers.PolyAPIKey).
		SetHeader("POLY_PASSPHRASE", headers.PolyPassphrase)
	if bodyBytes != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(bodyBytes)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, endpoint)
	}
	if !resp.IsSuccess() {
		return errors.Errorf("%s %s: http %d: %s", method, endpoint, resp.StatusCode(), resp.String())
	}
	return nil
}
