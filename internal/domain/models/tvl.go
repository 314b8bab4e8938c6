package models

import (
	"encoding/json"
	"math"
	"time"
)

// ProtocolTVL is one protocol's share of a chain. Changes are percentages,
// Dominance is the percent of chain TVL the protocol holds. A figure the
// source did not report is NaN and travels as JSON null.
type ProtocolTVL struct {
	Name      string  `json:"name"`
	TVL       float64 `json:"tvl"`
	Dominance float64 `json:"dominance"`
	Change24h float64 `json:"change_24h"`
	Change7d  float64 `json:"change_7d"`
}

type protocolTVLJSON struct {
	Name      string   `json:"name"`
	TVL       *float64 `json:"tvl"`
	Dominance *float64 `json:"dominance"`
	Change24h *float64 `json:"change_24h"`
	Change7d  *float64 `json:"change_7d"`
}

func (p ProtocolTVL) MarshalJSON() ([]byte, error) {
	return json.Marshal(protocolTVLJSON{
		Name:      p.Name,
		TVL:       reported(p.TVL),
		Dominance: reported(p.Dominance),
		Change24h: reported(p.Change24h),
		Change7d:  reported(p.Change7d),
	})
}

func (p *ProtocolTVL) UnmarshalJSON(b []byte) error {
	var raw protocolTVLJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = ProtocolTVL{
		Name:      raw.Name,
		TVL:       orNaN(raw.TVL),
		Dominance: orNaN(raw.Dominance),
		Change24h: orNaN(raw.Change24h),
		Change7d:  orNaN(raw.Change7d),
	}
	return nil
}

func reported(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ChainTVL is a snapshot of total value locked on a chain.
type ChainTVL struct {
	Chain        string        `json:"chain"`
	TVL          float64       `json:"tvl"`
	TVLChange24h float64       `json:"tvl_change_24h"`
	TVLChange7d  float64       `json:"tvl_change_7d"`
	Protocols    []ProtocolTVL `json:"protocols"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

// TopProtocol returns the protocol with the highest dominance.
func (c ChainTVL) TopProtocol() (ProtocolTVL, bool) {
	var top ProtocolTVL
	found := false
	for _, p := range c.Protocols {
		if !found || p.Dominance > top.Dominance {
			top, found = p, true
		}
	}
	return top, found
}

type TVLTrendDirection string

const (
	TVLGrowing   TVLTrendDirection = "growing"
	TVLDeclining TVLTrendDirection = "declining"
	TVLStable    TVLTrendDirection = "stable"
)

type TrendStrength string

const (
	StrengthStrong   TrendStrength = "strong"
	StrengthModerate TrendStrength = "moderate"
	StrengthWeak     TrendStrength = "weak"
)

type TVLTrend struct {
	Chain          string            `json:"chain"`
	Trend          TVLTrendDirection `json:"trend"`
	Strength       TrendStrength     `json:"strength"`
	WeightedChange float64           `json:"weighted_change"`
	Confidence     float64           `json:"confidence"`
	Protocols      []ProtocolTVL     `json:"protocols"`
	Timestamp      time.Time         `json:"timestamp"`
}
