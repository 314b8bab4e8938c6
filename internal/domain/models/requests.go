package models

import "time"

// Requests accepted by the HTTP and Kafka adapters.

type AnalysisRequest struct {
	Token string `query:"token" json:"token" validate:"required,alphanum,max=16"`
}

type NFTTrendRequest struct {
	Collection string `query:"collection" json:"collection" validate:"omitempty,max=128"`
}

type TradeRequest struct {
	Type     TradeType  `json:"type" default:"BUY" validate:"oneof=BUY SELL"`
	Token    string     `json:"token" validate:"required,alphanum,max=16"`
	Amount   float64    `json:"amount" validate:"gt=0"`
	Pair     string     `json:"pair" validate:"omitempty,max=32"`
	Price    *float64   `json:"price,omitempty" validate:"omitempty,gt=0"`
	Slippage *float64   `json:"slippage,omitempty" validate:"omitempty,gte=0,lte=100"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// ToTrade builds a PENDING trade. quote fills the pair when none was given.
func (r TradeRequest) ToTrade(quote string) *Trade {
	pair := r.Pair
	if pair == "" {
		pair = r.Token + "/" + quote
	}
	t := NewTrade(r.Type, r.Token, r.Amount, pair)
	t.Price = r.Price
	t.Slippage = r.Slippage
	t.Deadline = r.Deadline
	return t
}
