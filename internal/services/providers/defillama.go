package providers

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"ChainPulse/internal/domain/models"
)

// maxChainProtocols bounds how many protocols a chain snapshot lists.
const maxChainProtocols = 20

// DefiLlama serves chain TVL snapshots and venue metadata from the
// DefiLlama public API.
type DefiLlama struct {
	*HTTPServiceBase
	chain string
	now   func() time.Time
}

func NewDefiLlama(baseURL, chain string, s ClientSettings) *DefiLlama {
	return &DefiLlama{
		HTTPServiceBase: NewHTTPServiceBase(baseURL, s, nil),
		chain:           chain,
		now:             time.Now,
	}
}

type llamaPoint struct {
	Date int64   `json:"date"`
	TVL  float64 `json:"tvl"`
}

type llamaProtocol struct {
	Name      string             `json:"name"`
	Slug      string             `json:"slug"`
	Category  string             `json:"category"`
	ChainTVLs map[string]float64 `json:"chainTvls"`
	Change1d  *float64           `json:"change_1d"`
	Change7d  *float64           `json:"change_7d"`
}

// ChainTVL combines the chain's daily TVL history with the per-protocol
// breakdown. Changes are derived from the last, previous and 7th-previous
// daily points.
func (d *DefiLlama) ChainTVL(ctx context.Context, chain string) (models.ChainTVL, error) {
	var history []llamaPoint
	if err := d.GetJSON(ctx, "/v2/historicalChainTvl/"+url.PathEscape(chain), nil, &history); err != nil {
		return models.ChainTVL{}, err
	}
	if len(history) == 0 {
		return models.ChainTVL{}, fmt.Errorf("chain %s: %w", chain, ErrNotFound)
	}

	snap := models.ChainTVL{
		Chain:        chain,
		TVL:          history[len(history)-1].TVL,
		TVLChange24h: changeOver(history, 1),
		TVLChange7d:  changeOver(history, 7),
		FetchedAt:    d.now().UTC(),
	}

	var protocols []llamaProtocol
	if err := d.GetJSON(ctx, "/protocols", nil, &protocols); err != nil {
		return models.ChainTVL{}, err
	}
	snap.Protocols = chainProtocols(protocols, chain, snap.TVL)
	return snap, nil
}

func changeOver(history []llamaPoint, back int) float64 {
	if len(history) <= back {
		return 0
	}
	last := history[len(history)-1].TVL
	prev := history[len(history)-1-back].TVL
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

func chainProtocols(all []llamaProtocol, chain string, chainTVL float64) []models.ProtocolTVL {
	out := make([]models.ProtocolTVL, 0, len(all))
	for _, p := range all {
		tvl, ok := p.ChainTVLs[chain]
		if !ok || tvl <= 0 {
			continue
		}
		pt := models.ProtocolTVL{Name: p.Name, TVL: tvl}
		if chainTVL > 0 {
			pt.Dominance = tvl / chainTVL * 100
		}
		pt.Change24h = valueOrNaN(p.Change1d)
		pt.Change7d = valueOrNaN(p.Change7d)
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TVL > out[j].TVL })
	if len(out) > maxChainProtocols {
		out = out[:maxChainProtocols]
	}
	return out
}

// valueOrNaN keeps a missing change distinguishable from a flat one.
func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

type llamaProtocolDetail struct {
	Name             string             `json:"name"`
	Address          *string            `json:"address"`
	Category         string             `json:"category"`
	CurrentChainTVLs map[string]float64 `json:"currentChainTvls"`
}

// ProtocolInfo resolves a venue slug. TVL is the venue's TVL on the
// configured chain, or its total across chains if it has none there.
func (d *DefiLlama) ProtocolInfo(ctx context.Context, name string) (models.Protocol, error) {
	var detail llamaProtocolDetail
	if err := d.GetJSON(ctx, "/protocol/"+url.PathEscape(name), nil, &detail); err != nil {
		return models.Protocol{}, err
	}

	p := models.Protocol{
		Name: name,
		Kind: ProtocolKind(detail.Category),
		TVL:  venueTVL(detail.CurrentChainTVLs, d.chain),
	}
	if detail.Address != nil {
		p.Address = *detail.Address
	}
	return p, nil
}

// venueTVL skips the derived buckets (borrowed, staking, pool2 and
// chain-qualified variants) that DefiLlama reports next to plain chains.
func venueTVL(chains map[string]float64, chain string) float64 {
	if v, ok := chains[chain]; ok {
		return v
	}
	var total float64
	for k, v := range chains {
		if strings.Contains(k, "-") || k == "borrowed" || k == "staking" || k == "pool2" {
			continue
		}
		total += v
	}
	return total
}

// CalculatePriceImpact estimates impact with a constant-product pool
// holding half the venue TVL on each side: notional / (tvl/2 + notional).
func (d *DefiLlama) CalculatePriceImpact(ctx context.Context, name string, trade *models.Trade) (float64, error) {
	info, err := d.ProtocolInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	return ConstantProductImpact(trade.Notional(), info.TVL), nil
}

// ConstantProductImpact returns the percent impact of notional against a
// pool whose reserves are tvl/2 per side. An empty pool is 100% impact.
func ConstantProductImpact(notional, tvl float64) float64 {
	if notional <= 0 {
		return 0
	}
	reserve := tvl / 2
	if reserve <= 0 {
		return 100
	}
	return notional / (reserve + notional) * 100
}

// ProtocolKind maps a DefiLlama category onto a venue kind. Categories that
// are neither exchanges nor lending markets are treated as yield venues.
func ProtocolKind(category string) models.ProtocolKind {
	switch strings.ToLower(category) {
	case "dexes", "dexs", "dex", "dex aggregator":
		return models.ProtocolDEX
	case "lending", "cdp", "uncollateralized lending", "rwa lending":
		return models.ProtocolLending
	default:
		return models.ProtocolYield
	}
}
