package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"ChainPulse/internal/domain/models"
	"ChainPulse/pkg/util"
)

// NFTMarket reads collection stats and recent sales from an OpenSea-style
// v2 API.
type NFTMarket struct {
	*HTTPServiceBase
	salesLimit int
}

func NewNFTMarket(baseURL, apiKey string, s ClientSettings) *NFTMarket {
	var headers map[string]string
	if apiKey != "" {
		headers = map[string]string{"X-API-KEY": apiKey}
	}
	return &NFTMarket{HTTPServiceBase: NewHTTPServiceBase(baseURL, s, headers), salesLimit: 50}
}

type nftStatsResponse struct {
	Total struct {
		FloorPrice float64 `json:"floor_price"`
		NumOwners  int     `json:"num_owners"`
	} `json:"total"`
	Intervals []struct {
		Interval string  `json:"interval"`
		Volume   float64 `json:"volume"`
		Sales    int     `json:"sales"`
	} `json:"intervals"`
}

func (m *NFTMarket) CollectionStats(ctx context.Context, collection string) (models.NFTMarketStats, error) {
	var r nftStatsResponse
	if err := m.GetJSON(ctx, "/collections/"+url.PathEscape(collection)+"/stats", nil, &r); err != nil {
		return models.NFTMarketStats{}, err
	}
	stats := models.NFTMarketStats{
		Collection: collection,
		FloorPrice: r.Total.FloorPrice,
		Owners:     r.Total.NumOwners,
	}
	for _, iv := range r.Intervals {
		if iv.Interval == "one_day" {
			stats.Volume24h = iv.Volume
			stats.Sales24h = iv.Sales
		}
	}
	return stats, nil
}

type nftEvent struct {
	EventType string `json:"event_type"`
	NFT       struct {
		Identifier string `json:"identifier"`
	} `json:"nft"`
	Payment struct {
		Quantity string `json:"quantity"`
		Decimals int32  `json:"decimals"`
	} `json:"payment"`
	// Seconds or milliseconds, as a number or a string.
	EventTimestamp json.RawMessage `json:"event_timestamp"`
}

// RecentSales returns the latest sales with prices converted from base
// units. Events with an unreadable price or timestamp are skipped.
func (m *NFTMarket) RecentSales(ctx context.Context, collection string) ([]models.NFTSale, error) {
	var r struct {
		AssetEvents []nftEvent `json:"asset_events"`
	}
	q := map[string][]string{
		"event_type": {"sale"},
		"limit":      {fmt.Sprint(m.salesLimit)},
	}
	if err := m.GetJSON(ctx, "/events/collection/"+url.PathEscape(collection), q, &r); err != nil {
		return nil, err
	}

	sales := make([]models.NFTSale, 0, len(r.AssetEvents))
	for _, ev := range r.AssetEvents {
		if ev.EventType != "" && ev.EventType != "sale" {
			continue
		}
		qty, err := decimal.NewFromString(ev.Payment.Quantity)
		if err != nil {
			continue
		}
		ts, ok := util.ParseTime(strings.Trim(string(ev.EventTimestamp), `"`))
		if !ok {
			continue
		}
		sales = append(sales, models.NFTSale{
			TokenID:   ev.NFT.Identifier,
			Price:     qty.Shift(-ev.Payment.Decimals).InexactFloat64(),
			Timestamp: ts,
		})
	}
	return sales, nil
}
