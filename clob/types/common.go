package types

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is the order execution type.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // good till cancel
	OrderTypeFOK OrderType = "FOK" // fill or kill
	OrderTypeGTD OrderType = "GTD" // good till date
	OrderTypeFAK OrderType = "FAK" // fill and kill
)

// Chain is the blockchain network ID.
type Chain int

const (
	ChainPolygon Chain = 137
	ChainAmoy    Chain = 80002
)

// SignatureType selects how the exchange validates order signatures.
type SignatureType int

const (
	SignatureTypeBrowser    SignatureType = 0 // EOA wallet
	SignatureTypeMagic      SignatureType = 1 // Magic Link proxy
	SignatureTypeGnosisSafe SignatureType = 2 // Safe proxy wallet
)

// AssetType for balance-allowance queries.
type AssetType string

const (
	AssetTypeCollateral  AssetType = "COLLATERAL"
	AssetTypeConditional AssetType = "CONDITIONAL"
)

// TickSize is the market price precision.
type TickSize string

const (
	TickSize01    TickSize = "0.1"
	TickSize001   TickSize = "0.01"
	TickSize0001  TickSize = "0.001"
	TickSize00001 TickSize = "0.0001"
)

// ApiKeyCreds are the L2 trading credentials issued by the CLOB.
type ApiKeyCreds struct {
	Key        string `json:"key"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// ApiKeyRaw is the wire format of the credential endpoints.
type ApiKeyRaw struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// BalanceAllowance is the CLOB balance-allowance response.
type BalanceAllowance struct {
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}
