package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ChainPulse/internal/domain/models"
)

// ExecutionGateway submits swaps to the execution service, which holds the
// signing keys and broadcasts transactions.
type ExecutionGateway struct {
	*HTTPServiceBase
}

func NewExecutionGateway(baseURL, apiKey string, s ClientSettings) *ExecutionGateway {
	var headers map[string]string
	if apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + apiKey}
	}
	// Orders are submitted exactly once.
	s.Retries = 1
	return &ExecutionGateway{HTTPServiceBase: NewHTTPServiceBase(baseURL, s, headers)}
}

// OrderRequest is the gateway wire format. Amounts travel as decimal
// strings.
type OrderRequest struct {
	ClientOrderID string           `json:"client_order_id"`
	Venue         string           `json:"venue"`
	VenueAddress  string           `json:"venue_address,omitempty"`
	Side          string           `json:"side"`
	Token         string           `json:"token"`
	Pair          string           `json:"pair"`
	Amount        decimal.Decimal  `json:"amount"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Slippage      decimal.Decimal  `json:"slippage_pct"`
	Deadline      int64            `json:"deadline,omitempty"`
}

type orderResponse struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash"`
	Reason string `json:"reason"`
}

func NewOrderRequest(venue models.Protocol, trade *models.Trade) OrderRequest {
	req := OrderRequest{
		ClientOrderID: trade.ID,
		Venue:         venue.Name,
		VenueAddress:  venue.Address,
		Side:          strings.ToLower(string(trade.Type)),
		Token:         trade.Token,
		Pair:          trade.Pair,
		Amount:        decimal.NewFromFloat(trade.Amount),
	}
	if trade.Price != nil {
		p := decimal.NewFromFloat(*trade.Price)
		req.Price = &p
	}
	if trade.Slippage != nil {
		req.Slippage = decimal.NewFromFloat(*trade.Slippage)
	}
	if trade.Deadline != nil {
		req.Deadline = trade.Deadline.Unix()
	}
	return req
}

func (g *ExecutionGateway) ExecuteTrade(ctx context.Context, venue models.Protocol, trade *models.Trade) (string, error) {
	var resp orderResponse
	if err := g.PostJSON(ctx, "/v1/orders", NewOrderRequest(venue, trade), &resp); err != nil {
		return "", err
	}
	if strings.EqualFold(resp.Status, "rejected") {
		return "", fmt.Errorf("order %s rejected: %s", trade.ID, resp.Reason)
	}
	if resp.TxHash == "" {
		return "", fmt.Errorf("order %s: empty tx hash", trade.ID)
	}
	return resp.TxHash, nil
}
