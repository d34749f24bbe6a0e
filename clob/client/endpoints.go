package client

// CLOB API endpoints.
const (
	EndpointTime = "/time"

	EndpointCreateAPIKey = "/auth/api-key"
	EndpointDeriveAPIKey = "/auth/derive-api-key"

	EndpointSimplifiedMarkets = "/simplified-markets"
	EndpointGetMarket         = "/markets/"

	EndpointPostOrder     = "/order"
	EndpointCancelOrder   = "/order"
	EndpointCancelAll     = "/cancel-all"
	EndpointGetOpenOrders = "/data/orders"

	EndpointGetBalanceAllowance = "/balance-allowance"
)

// Gamma API endpoints.
const (
	GammaEndpointMarkets      = "/markets"
	GammaEndpointMarketBySlug = "/markets/slug/"
)
