package models

type ProtocolKind string

const (
	ProtocolDEX     ProtocolKind = "DEX"
	ProtocolLending ProtocolKind = "LENDING"
	ProtocolYield   ProtocolKind = "YIELD"
)

type Protocol struct {
	Name    string       `json:"name"`
	Address string       `json:"address"`
	Kind    ProtocolKind `json:"kind"`
	TVL     float64      `json:"tvl"`
	APR     *float64     `json:"apr,omitempty"`
}

// VenueQuote is a protocol paired with the price impact a specific trade
// would have on it, in percent. Quotes are per trade and never cached.
type VenueQuote struct {
	Protocol    Protocol `json:"protocol"`
	PriceImpact float64  `json:"price_impact"`
}
