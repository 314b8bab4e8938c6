package models

import "time"

type NFTSale struct {
	TokenID   string    `json:"token_id"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

type NFTMarketStats struct {
	Collection string  `json:"collection"`
	FloorPrice float64 `json:"floor_price"`
	Volume24h  float64 `json:"volume_24h"`
	Sales24h   int     `json:"sales_24h"`
	Owners     int     `json:"owners"`
}

type NFTTrend struct {
	Collection    string         `json:"collection"`
	Trend         Trend          `json:"trend"`
	ChangePercent float64        `json:"change_percent"`
	Confidence    float64        `json:"confidence"`
	Stats         NFTMarketStats `json:"stats"`
	Timestamp     time.Time      `json:"timestamp"`
}
