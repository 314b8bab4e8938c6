package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/service/ratelimit"
	"ChainPulse/internal/usecase"
)

type fakeAnalyzer struct {
	err    error
	tokens []string
}

func (f *fakeAnalyzer) AnalyzeMarket(_ context.Context, token string) (*models.MarketAnalysis, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return &models.MarketAnalysis{Token: token, Price: 2500, Recommendation: models.Buy}, nil
}

type fakeTrades struct {
	quote    *models.VenueQuote
	rej      *usecase.Rejection
	err      error
	executed []*models.Trade
}

func (f *fakeTrades) Check(context.Context, *models.Trade) (*models.VenueQuote, *usecase.Rejection, error) {
	return f.quote, f.rej, f.err
}

func (f *fakeTrades) ExecuteTrade(_ context.Context, t *models.Trade) bool {
	f.executed = append(f.executed, t)
	return t.Complete("uniswap", "0xabc") == nil
}

type fakeTrends struct {
	cleared int
}

func (f *fakeTrends) AnalyzeTVLTrends(context.Context) (*models.TVLTrend, error) {
	return &models.TVLTrend{Chain: "ethereum", Trend: models.TVLGrowing, Strength: models.StrengthWeak}, nil
}

func (f *fakeTrends) AnalyzeNFTMarket(_ context.Context, collection string) ([]models.NFTTrend, error) {
	return []models.NFTTrend{{Collection: collection, Trend: models.TrendStable}}, nil
}

func (f *fakeTrends) ClearCache(context.Context) error {
	f.cleared++
	return nil
}

type fakeSentiment struct{ cleared int }

func (f *fakeSentiment) Clear() { f.cleared++ }

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *EngineEchoHandler, method, target, body string) (int, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestAnalysisEndpoint(t *testing.T) {
	a := &fakeAnalyzer{}
	h := NewEngineEchoHandler(nil, EngineDeps{Analyzer: a})

	code, env := serve(t, h, http.MethodGet, "/api/analysis?token=ETH", "")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var got models.MarketAnalysis
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.Token != "ETH" || got.Recommendation != models.Buy {
		t.Fatalf("unexpected analysis %+v", got)
	}

	code, _ = serve(t, h, http.MethodGet, "/api/analysis", "")
	if code != http.StatusBadRequest {
		t.Fatalf("missing token: status %d", code)
	}
	if len(a.tokens) != 1 {
		t.Fatalf("analyzer called %d times, want 1", len(a.tokens))
	}

	a.err = errors.New("binance down")
	code, _ = serve(t, h, http.MethodGet, "/api/analysis?token=ETH", "")
	if code != http.StatusBadGateway {
		t.Fatalf("upstream failure: status %d", code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		trades    *fakeTrades
		wantCode  int
		wantValid bool
		wantStage string
	}{
		{
			name: "valid",
			trades: &fakeTrades{quote: &models.VenueQuote{
				Protocol:    models.Protocol{Name: "uniswap", Kind: models.ProtocolDEX},
				PriceImpact: 0.3,
			}},
			wantCode:  http.StatusOK,
			wantValid: true,
		},
		{
			name:      "rejected",
			trades:    &fakeTrades{rej: &usecase.Rejection{Stage: usecase.StageLiquidity, Reason: "thin"}},
			wantCode:  http.StatusOK,
			wantStage: usecase.StageLiquidity,
		},
		{
			name:     "provider error",
			trades:   &fakeTrades{err: errors.New("timeout")},
			wantCode: http.StatusBadGateway,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewEngineEchoHandler(nil, EngineDeps{Trades: tc.trades, Quote: "USDT"})
			code, env := serve(t, h, http.MethodPost, "/api/trades/validate", `{"type":"BUY","token":"ETH","amount":500}`)
			if code != tc.wantCode {
				t.Fatalf("status %d, want %d", code, tc.wantCode)
			}
			if code != http.StatusOK {
				return
			}
			var got ValidationResult
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if got.Valid != tc.wantValid || got.Stage != tc.wantStage {
				t.Fatalf("got %+v", got)
			}
			if tc.wantValid && (got.Protocol == nil || got.Protocol.Name != "uniswap") {
				t.Fatalf("missing venue in %+v", got)
			}
		})
	}
}

func TestValidateRejectsBadBody(t *testing.T) {
	h := NewEngineEchoHandler(nil, EngineDeps{Trades: &fakeTrades{}})
	code, _ := serve(t, h, http.MethodPost, "/api/trades/validate", `{"type":"HOLD","token":"ETH","amount":500}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status %d", code)
	}
}

func TestExecuteEndpoint(t *testing.T) {
	trades := &fakeTrades{}
	h := NewEngineEchoHandler(nil, EngineDeps{Trades: trades, Quote: "USDT"})

	code, env := serve(t, h, http.MethodPost, "/api/trades/execute", `{"token":"ETH","amount":500}`)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var got ExecutionResult
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !got.Executed || got.Trade.Status != models.TradeCompleted {
		t.Fatalf("got %+v", got)
	}
	if len(trades.executed) != 1 || trades.executed[0].Pair != "ETH/USDT" || trades.executed[0].Type != models.TradeBuy {
		t.Fatalf("unexpected executed trades %+v", trades.executed)
	}
}

func TestTrendAndFlushEndpoints(t *testing.T) {
	tvl, nft, sent := &fakeTrends{}, &fakeTrends{}, &fakeSentiment{}
	h := NewEngineEchoHandler(nil, EngineDeps{TVL: tvl, NFT: nft, Sentiment: sent})

	if code, _ := serve(t, h, http.MethodGet, "/api/tvl/trend", ""); code != http.StatusOK {
		t.Fatalf("tvl status %d", code)
	}
	code, env := serve(t, h, http.MethodGet, "/api/nft/trend?collection=azuki", "")
	if code != http.StatusOK {
		t.Fatalf("nft status %d", code)
	}
	var trends []models.NFTTrend
	if err := json.Unmarshal(env.Data, &trends); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(trends) != 1 || trends[0].Collection != "azuki" {
		t.Fatalf("unexpected trends %+v", trends)
	}

	if code, _ := serve(t, h, http.MethodPost, "/api/cache/flush", ""); code != http.StatusOK {
		t.Fatalf("flush status %d", code)
	}
	if tvl.cleared != 1 || nft.cleared != 1 || sent.cleared != 1 {
		t.Fatalf("cleared tvl=%d nft=%d sentiment=%d", tvl.cleared, nft.cleared, sent.cleared)
	}
}

func TestRateLimit(t *testing.T) {
	h := NewEngineEchoHandler(nil, EngineDeps{TVL: &fakeTrends{}, Limiter: ratelimit.New(0.001, 2)})
	for i := 0; i < 2; i++ {
		if code, _ := serve(t, h, http.MethodGet, "/api/tvl/trend", ""); code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, code)
		}
	}
	if code, _ := serve(t, h, http.MethodGet, "/api/tvl/trend", ""); code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", code)
	}
}
