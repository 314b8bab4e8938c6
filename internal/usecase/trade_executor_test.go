package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ChainPulse/internal/domain/models"
)

var testPolicy = TradePolicy{
	MinAmount:         100,
	MaxAmount:         10000,
	MinLiquidity:      1e6,
	MinVolume:         5e5,
	MaxPriceImpact:    1,
	SlippageTolerance: 0.5,
}

type executorFixture struct {
	market    *fakeMarket
	liquidity *fakeLiquidity
	registry  *fakeRegistry
	gateway   *fakeGateway
	notifier  *fakeNotifier
}

func newExecutorFixture() *executorFixture {
	return &executorFixture{
		market:    &fakeMarket{price: 2500, volume: 1e6},
		liquidity: &fakeLiquidity{value: 2e6},
		registry:  fiveVenueRegistry(),
		gateway:   &fakeGateway{txHash: "0xabc"},
		notifier:  &fakeNotifier{},
	}
}

func (f *executorFixture) build() *TradeExecutor {
	router := NewProtocolRouter(f.registry, testVenues, testPolicy.MinLiquidity, 0, nil, nil)
	return NewTradeExecutor(testPolicy, f.market, f.liquidity, router, f.gateway, f.notifier, 0, nil, nil)
}

func TestValidateTradeAmountOutOfRangeMakesNoCalls(t *testing.T) {
	f := newExecutorFixture()
	e := f.build()

	for _, amount := range []float64{50, 10001} {
		ok, err := e.ValidateTrade(context.Background(), models.NewTrade(models.TradeBuy, "ETH", amount, "ETH/USDT"))
		if ok || err != nil {
			t.Fatalf("amount %v: expected (false, nil), got (%v, %v)", amount, ok, err)
		}
	}
	if f.market.calls.Load()+f.liquidity.calls.Load()+f.registry.calls.Load() != 0 {
		t.Fatalf("expected no provider calls")
	}
}

func TestValidateTradeStages(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(f *executorFixture)
		stage   string
		wantErr bool
	}{
		{"passes", func(*executorFixture) {}, "", false},
		{"thin liquidity", func(f *executorFixture) { f.liquidity.value = 10 }, StageLiquidity, false},
		{"low volume", func(f *executorFixture) { f.market.volume = 10 }, StageVolume, false},
		{"no venue", func(f *executorFixture) { f.registry = &fakeRegistry{} }, StageRouting, false},
		{"high impact", func(f *executorFixture) {
			f.registry.venues["pancakeswap-amm"] = venue{
				info:   models.Protocol{Name: "pancakeswap-amm", Kind: models.ProtocolDEX, TVL: 2e6},
				impact: 1.5,
			}
		}, StagePriceImpact, false},
		{"liquidity down", func(f *executorFixture) { f.liquidity.err = errDown }, "", true},
		{"volume down", func(f *executorFixture) { f.market.err = errDown }, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newExecutorFixture()
			tc.mutate(f)
			e := f.build()
			trade := models.NewTrade(models.TradeBuy, "ETH", 500, "ETH/USDT")

			quote, rej, err := e.Check(context.Background(), trade)
			if tc.wantErr {
				if !errors.Is(err, errDown) {
					t.Fatalf("expected provider error, got %v", err)
				}
				ok, verr := e.ValidateTrade(context.Background(), trade)
				if ok || verr == nil {
					t.Fatalf("expected (false, err), got (%v, %v)", ok, verr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.stage == "" {
				if rej != nil || quote == nil || quote.Protocol.Name != "pancakeswap-amm" {
					t.Fatalf("expected pass on pancakeswap-amm, got %+v %+v", quote, rej)
				}
				return
			}
			if rej == nil || rej.Stage != tc.stage {
				t.Fatalf("expected rejection at %s, got %+v", tc.stage, rej)
			}
			if ok, _ := e.ValidateTrade(context.Background(), trade); ok {
				t.Fatalf("expected ValidateTrade false")
			}
		})
	}
}

func TestExecuteTradeCompletesOnValidatedVenue(t *testing.T) {
	f := newExecutorFixture()
	e := f.build()
	trade := models.NewTrade(models.TradeBuy, "ETH", 500, "ETH/USDT")

	if !e.ExecuteTrade(context.Background(), trade) {
		t.Fatalf("expected success, trade %+v", trade)
	}
	if trade.Status != models.TradeCompleted || trade.Venue != "pancakeswap-amm" || trade.TxHash != "0xabc" {
		t.Fatalf("unexpected trade %+v", trade)
	}
	if f.gateway.venue.Name != "pancakeswap-amm" {
		t.Fatalf("executed on %q", f.gateway.venue.Name)
	}
	if trade.Slippage == nil || *trade.Slippage != testPolicy.SlippageTolerance {
		t.Fatalf("expected default slippage, got %v", trade.Slippage)
	}
	if len(f.notifier.trades) != 1 || f.notifier.trades[0].ID != trade.ID {
		t.Fatalf("expected one trade notification, got %d", len(f.notifier.trades))
	}
}

func TestExecuteTradeFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(f *executorFixture, tr *models.Trade)
	}{
		{"rejected", func(_ *executorFixture, tr *models.Trade) { tr.Amount = 50 }},
		{"provider error", func(f *executorFixture, _ *models.Trade) { f.liquidity.err = errDown }},
		{"gateway error", func(f *executorFixture, _ *models.Trade) { f.gateway.err = errDown }},
		{"deadline passed", func(_ *executorFixture, tr *models.Trade) { tr.Deadline = ptr(time.Now().Add(-time.Minute)) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newExecutorFixture()
			trade := models.NewTrade(models.TradeBuy, "ETH", 500, "ETH/USDT")
			tc.mutate(f, trade)

			if f.build().ExecuteTrade(context.Background(), trade) {
				t.Fatalf("expected failure")
			}
			if trade.Status != models.TradeFailed || trade.FailureReason == "" {
				t.Fatalf("expected FAILED with reason, got %+v", trade)
			}
			if len(f.notifier.trades) != 0 {
				t.Fatalf("failed trade must not be announced as executed")
			}
		})
	}
}

func TestExecuteTradeOnlyPending(t *testing.T) {
	f := newExecutorFixture()
	trade := models.NewTrade(models.TradeBuy, "ETH", 500, "ETH/USDT")
	_ = trade.Complete("curve-dex", "0x1")

	if f.build().ExecuteTrade(context.Background(), trade) {
		t.Fatalf("expected false for settled trade")
	}
	if f.gateway.calls.Load() != 0 || f.liquidity.calls.Load() != 0 {
		t.Fatalf("settled trade must not reach providers")
	}
	if trade.Status != models.TradeCompleted {
		t.Fatalf("status changed to %s", trade.Status)
	}
}

type panickingGateway struct{}

func (panickingGateway) ExecuteTrade(context.Context, models.Protocol, *models.Trade) (string, error) {
	panic("boom")
}

func TestExecuteTradeRecoversPanic(t *testing.T) {
	f := newExecutorFixture()
	router := NewProtocolRouter(f.registry, testVenues, testPolicy.MinLiquidity, 0, nil, nil)
	e := NewTradeExecutor(testPolicy, f.market, f.liquidity, router, panickingGateway{}, nil, 0, nil, nil)
	trade := models.NewTrade(models.TradeBuy, "ETH", 500, "ETH/USDT")

	if e.ExecuteTrade(context.Background(), trade) {
		t.Fatalf("expected failure")
	}
	if trade.Status != models.TradeFailed {
		t.Fatalf("expected FAILED, got %s", trade.Status)
	}
}

type panickingNotifier struct{ fakeNotifier }

func (*panickingNotifier) PostTradeUpdate(context.Context, *models.Trade) error {
	panic("notifier down")
}

func TestExecuteTradePanicAfterCompletionKeepsResult(t *testing.T) {
	f := newExecutorFixture()
	router := NewProtocolRouter(f.registry, testVenues, testPolicy.MinLiquidity, 0, nil, nil)
	e := NewTradeExecutor(testPolicy, f.market, f.liquidity, router, f.gateway, &panickingNotifier{}, 0, nil, nil)
	trade := models.NewTrade(models.TradeBuy, "ETH", 500, "ETH/USDT")

	if !e.ExecuteTrade(context.Background(), trade) {
		t.Fatalf("a settled trade must report success")
	}
	if trade.Status != models.TradeCompleted || trade.TxHash != "0xabc" {
		t.Fatalf("expected COMPLETED with tx hash, got %s %q", trade.Status, trade.TxHash)
	}
}
