package types

// GammaMarket is the Gamma API market shape.
type GammaMarket struct {
	ID           string `json:"id"`
	Question     string `json:"question"`
	ConditionID  string `json:"conditionId"`
	Slug         string `json:"slug"`
	ClobTokenIDs string `json:"clobTokenIds"`
	Outcomes     string `json:"outcomes"`
	EndDate      string `json:"endDate"`
	StartDate    string `json:"startDate"`
	Category     string `json:"category"`
	Active       bool   `json:"active"`
	Closed       bool   `json:"closed"`
}

// SimplifiedMarket is the CLOB simplified-markets shape.
type SimplifiedMarket struct {
	ConditionID string  `json:"condition_id"`
	Tokens      []Token `json:"tokens"`
	Active      bool    `json:"active"`
	Closed      bool    `json:"closed"`
	MinTickSize string  `json:"minimum_tick_size"`
	NegRisk     bool    `json:"neg_risk"`
}

// Token is one outcome token of a market.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// SimplifiedMarketsResponse is the paginated simplified-markets envelope.
type SimplifiedMarketsResponse struct {
	Data       []SimplifiedMarket `json:"data"`
	NextCursor string             `json:"next_cursor"`
	Limit      int                `json:"limit"`
	Count      int                `json:"count"`
}
