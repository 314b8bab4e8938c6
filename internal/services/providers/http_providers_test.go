package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/usecase"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/config"
)

var testSettings = ClientSettings{Timeout: time.Second, RequestsPerSecond: 100, Retries: 1}

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestDefiLlamaChainTVL(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/historicalChainTvl/Ethereum":
			// 8 daily points: 7d ago 80, yesterday 100, today 110
			fmt.Fprint(w, `[{"date":1,"tvl":80},{"date":2,"tvl":90},{"date":3,"tvl":90},{"date":4,"tvl":90},{"date":5,"tvl":90},{"date":6,"tvl":90},{"date":7,"tvl":100},{"date":8,"tvl":110}]`)
		case "/protocols":
			fmt.Fprint(w, `[
				{"name":"Lido","category":"Liquid Staking","chainTvls":{"Ethereum":66},"change_1d":1.5,"change_7d":-2},
				{"name":"Uniswap","category":"Dexes","chainTvls":{"Ethereum":22,"Arbitrum":5},"change_1d":null},
				{"name":"Raydium","category":"Dexes","chainTvls":{"Solana":9}}
			]`)
		default:
			http.NotFound(w, r)
		}
	})
	d := NewDefiLlama(srv.URL, "Ethereum", testSettings)

	snap, err := d.ChainTVL(context.Background(), "Ethereum")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.TVL != 110 || math.Abs(snap.TVLChange24h-10) > 1e-9 || math.Abs(snap.TVLChange7d-37.5) > 1e-9 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Protocols) != 2 || snap.Protocols[0].Name != "Lido" || math.Abs(snap.Protocols[0].Dominance-60) > 1e-9 {
		t.Fatalf("unexpected protocols %+v", snap.Protocols)
	}
	if top, _ := snap.TopProtocol(); top.Name != "Lido" {
		t.Fatalf("unexpected top %+v", top)
	}

	if _, err := d.ChainTVL(context.Background(), "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChainProtocolsMissingChangesLowerConfidence(t *testing.T) {
	one, seven := 1.2, -3.4
	protocols := chainProtocols([]llamaProtocol{
		{Name: "a", ChainTVLs: map[string]float64{"Ethereum": 60}, Change1d: &one, Change7d: &seven},
		{Name: "b", ChainTVLs: map[string]float64{"Ethereum": 40}},
	}, "Ethereum", 100)

	if len(protocols) != 2 {
		t.Fatalf("expected 2 protocols, got %+v", protocols)
	}
	if !math.IsNaN(protocols[1].Change24h) || !math.IsNaN(protocols[1].Change7d) {
		t.Fatalf("missing changes should be NaN, got %+v", protocols[1])
	}
	if got := usecase.TVLConfidence(protocols); got != 0.5 {
		t.Fatalf("confidence = %v, want 0.5", got)
	}
}

func TestDefiLlamaProtocolInfoAndImpact(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/protocol/uniswap-v3":
			fmt.Fprint(w, `{"name":"Uniswap V3","address":"0x1f98","category":"Dexes","currentChainTvls":{"Ethereum":2000000,"Ethereum-borrowed":5,"Arbitrum":10}}`)
		case "/protocol/aave-v3":
			fmt.Fprint(w, `{"name":"Aave V3","address":null,"category":"Lending","currentChainTvls":{"Arbitrum":300,"borrowed":100,"Arbitrum-borrowed":50}}`)
		default:
			http.NotFound(w, r)
		}
	})
	d := NewDefiLlama(srv.URL, "Ethereum", testSettings)
	ctx := context.Background()

	p, err := d.ProtocolInfo(ctx, "uniswap-v3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Kind != models.ProtocolDEX || p.TVL != 2000000 || p.Address != "0x1f98" || p.Name != "uniswap-v3" {
		t.Fatalf("unexpected protocol %+v", p)
	}

	lending, err := d.ProtocolInfo(ctx, "aave-v3")
	if err != nil || lending.Kind != models.ProtocolLending || lending.TVL != 300 {
		t.Fatalf("unexpected lending venue %+v %v", lending, err)
	}

	trade := models.NewTrade(models.TradeBuy, "ETH", 10000, "ETH/USDT")
	impact, err := d.CalculatePriceImpact(ctx, "uniswap-v3", trade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 10000.0 / (1000000 + 10000) * 100
	if math.Abs(impact-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, impact)
	}

	if _, err := d.ProtocolInfo(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConstantProductImpact(t *testing.T) {
	if got := ConstantProductImpact(0, 100); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := ConstantProductImpact(10, 0); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := ConstantProductImpact(50, 100); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestOnChain(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/tokens/ETH/metrics":
			fmt.Fprint(w, `{"volume_change_24h":25,"liquidity_change_24h":3,"price_change_24h":1.2,"trend":"Bullish","confidence":1.4}`)
		case "/v1/tokens/ETH/signals":
			fmt.Fprint(w, `{"signals":["whale accumulation","exchange outflow"]}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	o := NewOnChain(srv.URL, testSettings)

	m, err := o.TokenMetrics(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Trend != models.TrendUp || m.Confidence != 1 || m.VolumeChange24h != 25 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	sig, err := o.Signals(context.Background(), "ETH")
	if err != nil || len(sig) != 2 {
		t.Fatalf("unexpected signals %v %v", sig, err)
	}
	if _, err := o.TokenMetrics(context.Background(), "BTC"); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestNewSocialProviders(t *testing.T) {
	var gotAuth, gotQuery string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		switch r.URL.Path {
		case "/2/sentiment":
			fmt.Fprint(w, `{"score":0.72}`)
		case "/2/signals":
			fmt.Fprint(w, `{"signals":["bullish chatter"]}`)
		default:
			http.NotFound(w, r)
		}
	})

	ps, err := NewSocialProviders([]config.SocialSource{{Name: "x", Kind: "twitter", URL: srv.URL, APIKey: "k"}}, testSettings)
	if err != nil || len(ps) != 1 {
		t.Fatalf("unexpected providers %v %v", ps, err)
	}
	p := ps[0]
	if p.Name() != "x" {
		t.Fatalf("unexpected name %q", p.Name())
	}
	score, err := p.Sentiment(context.Background(), "eth")
	if err != nil || score != 0.72 {
		t.Fatalf("unexpected score %v %v", score, err)
	}
	if gotAuth != "Bearer k" || gotQuery != "$ETH" {
		t.Fatalf("unexpected request auth=%q q=%q", gotAuth, gotQuery)
	}
	sig, err := p.SocialSignals(context.Background(), "eth")
	if err != nil || len(sig) != 1 {
		t.Fatalf("unexpected signals %v %v", sig, err)
	}

	if _, err := NewSocialProviders([]config.SocialSource{{Name: "m", Kind: "mastodon", URL: srv.URL}}, testSettings); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

const newsPage = `<html><body>
<article><h2>ETH rally extends as ETF approval nears</h2></article>
<article><h2>Exchange hack drains $ETH hot wallet</h2></article>
<article><h2>BTC hits record high</h2></article>
<article><h2>ETH rally extends as ETF approval nears</h2></article>
<h3><a href="/x">Methane prices surge</a></h3>
</body></html>`

func TestExtractHeadlines(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(newsPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := ExtractHeadlines(doc, defaultHeadlineSelector)
	if len(got) != 4 {
		t.Fatalf("expected 4 distinct headlines, got %v", got)
	}
}

func TestScoreHeadlines(t *testing.T) {
	headlines := []string{
		"ETH rally extends as ETF approval nears",
		"Exchange hack drains $ETH hot wallet",
		"Methane prices surge",
	}
	// rally+approval vs hack; methane does not mention ETH
	if got := ScoreHeadlines(headlines, "ETH"); math.Abs(got-(0.5+0.5/3)) > 1e-9 {
		t.Fatalf("unexpected score %v", got)
	}
	if got := ScoreHeadlines(headlines, "SOL"); got != 0.5 {
		t.Fatalf("expected neutral 0.5, got %v", got)
	}
}

func TestNewsScraperCachesPage(t *testing.T) {
	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, newsPage)
	})
	docs := cache.New[string, []string](cache.WithTTL(cache.DocumentsTTL))
	n := NewNewsScraper(srv.URL+"/news/", testSettings, docs)

	for _, token := range []string{"ETH", "BTC"} {
		if _, err := n.NewsSentiment(context.Background(), token); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one page fetch, got %d", hits.Load())
	}
	if !strings.HasPrefix(n.Name(), "news:127.0.0.1") {
		t.Fatalf("unexpected name %q", n.Name())
	}
}

func TestNFTMarket(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/collections/punks/stats":
			fmt.Fprint(w, `{"total":{"floor_price":42.5,"num_owners":3700},"intervals":[{"interval":"one_day","volume":120.5,"sales":7},{"interval":"seven_day","volume":900,"sales":40}]}`)
		case "/events/collection/punks":
			if r.URL.Query().Get("event_type") != "sale" {
				t.Errorf("missing event_type filter")
			}
			fmt.Fprint(w, `{"asset_events":[
				{"event_type":"sale","nft":{"identifier":"1"},"payment":{"quantity":"45000000000000000000","decimals":18},"event_timestamp":1714521600},
				{"event_type":"sale","nft":{"identifier":"2"},"payment":{"quantity":"41500000000000000000","decimals":18},"event_timestamp":"1714521500000"},
				{"event_type":"sale","nft":{"identifier":"3"},"payment":{"quantity":"bad","decimals":18},"event_timestamp":1714521400}
			]}`)
		default:
			http.NotFound(w, r)
		}
	})
	m := NewNFTMarket(srv.URL, "key", testSettings)

	stats, err := m.CollectionStats(context.Background(), "punks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.FloorPrice != 42.5 || stats.Sales24h != 7 || stats.Volume24h != 120.5 || stats.Owners != 3700 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	sales, err := m.RecentSales(context.Background(), "punks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 valid sales, got %+v", sales)
	}
	if sales[0].Price != 45 || sales[1].Price != 41.5 {
		t.Fatalf("unexpected prices %+v", sales)
	}
	if !sales[0].Timestamp.Equal(time.Unix(1714521600, 0)) || !sales[1].Timestamp.Equal(time.UnixMilli(1714521500000)) {
		t.Fatalf("unexpected timestamps %+v", sales)
	}
}

func TestExecutionGateway(t *testing.T) {
	var got map[string]interface{}
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" || r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got["token"] == "BAD" {
			fmt.Fprint(w, `{"status":"rejected","reason":"unsupported token"}`)
			return
		}
		fmt.Fprint(w, `{"status":"submitted","tx_hash":"0xdeadbeef"}`)
	})
	g := NewExecutionGateway(srv.URL, "secret", testSettings)
	venue := models.Protocol{Name: "uniswap-v3", Address: "0x1f98"}

	trade := models.NewTrade(models.TradeBuy, "ETH", 250.5, "ETH/USDT")
	slip := 0.5
	trade.Slippage = &slip
	tx, err := g.ExecuteTrade(context.Background(), venue, trade)
	if err != nil || tx != "0xdeadbeef" {
		t.Fatalf("unexpected result %q %v", tx, err)
	}
	if got["amount"] != "250.5" || got["slippage_pct"] != "0.5" || got["side"] != "buy" || got["venue"] != "uniswap-v3" || got["client_order_id"] != trade.ID {
		t.Fatalf("unexpected order payload %v", got)
	}

	bad := models.NewTrade(models.TradeSell, "BAD", 100, "BAD/USDT")
	if _, err := g.ExecuteTrade(context.Background(), venue, bad); err == nil || !strings.Contains(err.Error(), "unsupported token") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}
