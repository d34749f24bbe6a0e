package client

import (
	"github.com/pkg/errors"

	"github.com/betcast/gocast/clob/types"
)

// ContractConfig holds the exchange contract addresses for a chain.
type ContractConfig struct {
	Exchange          string
	NegRiskExchange   string
	Collateral        string
	ConditionalTokens string
}

// GetContractConfig returns the pinned contract set for chainID.
func GetContractConfig(chainID types.Chain) (*ContractConfig, error) {
	switch chainID {
	case types.ChainPolygon:
		return &ContractConfig{
			Exchange:          "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
			NegRiskExchange:   "0xC5d563A36AE78145C45a50134d48A1215220f80a",
			Collateral:        "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			ConditionalTokens: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
		}, nil
	case types.ChainAmoy:
		return &ContractConfig{
			Exchange:          "0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40",
			NegRiskExchange:   "0xC5d563A36AE78145C45a50134d48A1215220f80a",
			Collateral:        "0x9c4e1703476e875070ee25b56a58b008cfb8fa78",
			ConditionalTokens: "0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB",
		}, nil
	default:
		return nil, errors.Errorf("unsupported chain: %d", chainID)
	}
}
