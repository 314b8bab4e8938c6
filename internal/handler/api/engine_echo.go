package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/service/ratelimit"
	"ChainPulse/internal/usecase"
	xhttp "ChainPulse/pkg/http"
	xlogger "ChainPulse/pkg/logger"
)

type MarketAnalyzer interface {
	AnalyzeMarket(ctx context.Context, token string) (*models.MarketAnalysis, error)
}

type TradeEngine interface {
	Check(ctx context.Context, trade *models.Trade) (*models.VenueQuote, *usecase.Rejection, error)
	ExecuteTrade(ctx context.Context, trade *models.Trade) bool
}

type TVLTrends interface {
	AnalyzeTVLTrends(ctx context.Context) (*models.TVLTrend, error)
	ClearCache(ctx context.Context) error
}

type NFTTrends interface {
	AnalyzeNFTMarket(ctx context.Context, collection string) ([]models.NFTTrend, error)
	ClearCache(ctx context.Context) error
}

type SentimentCache interface {
	Clear()
}

// EngineDeps groups the use cases served over HTTP.
type EngineDeps struct {
	Analyzer  MarketAnalyzer
	Trades    TradeEngine
	TVL       TVLTrends
	NFT       NFTTrends
	Sentiment SentimentCache
	Quote     string
	Limiter   *ratelimit.Limiter
}

// ValidationResult is the response body of /api/trades/validate.
type ValidationResult struct {
	Valid       bool             `json:"valid"`
	Stage       string           `json:"stage,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Protocol    *models.Protocol `json:"protocol,omitempty"`
	PriceImpact float64          `json:"price_impact,omitempty"`
}

// ExecutionResult is the response body of /api/trades/execute.
type ExecutionResult struct {
	Executed bool          `json:"executed"`
	Trade    *models.Trade `json:"trade"`
}

// EngineEchoHandler is a thin Echo adapter over the engine use cases.
type EngineEchoHandler struct {
	logger *xlogger.Logger
	deps   EngineDeps
}

func NewEngineEchoHandler(logger *xlogger.Logger, deps EngineDeps) *EngineEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &EngineEchoHandler{logger: logger, deps: deps}
}

func (h *EngineEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	if h.deps.Limiter != nil {
		g.Use(RateLimit(h.deps.Limiter))
	}
	g.GET("/analysis", h.Analysis)
	g.POST("/trades/validate", h.Validate)
	g.POST("/trades/execute", h.Execute)
	g.GET("/tvl/trend", h.TVLTrend)
	g.GET("/nft/trend", h.NFTTrend)
	g.POST("/cache/flush", h.FlushCaches)
}

// RateLimit rejects requests once the client IP exhausts its bucket.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.RateLimitedError())
			}
			return next(c)
		}
	}
}

func (h *EngineEchoHandler) Analysis(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.deps.Analyzer.AnalyzeMarket(c.Request().Context(), req.Token)
	if err != nil {
		h.logger.Error("analysis usecase error", xlogger.String("token", req.Token), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineEchoHandler) Validate(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trade := req.ToTrade(h.deps.Quote)
	quote, rej, err := h.deps.Trades.Check(c.Request().Context(), trade)
	if err != nil {
		h.logger.Error("validate usecase error", xlogger.String("trade_id", trade.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError(err))
	}
	out := ValidationResult{Valid: rej == nil}
	if rej != nil {
		out.Stage, out.Reason = rej.Stage, rej.Reason
	}
	if quote != nil {
		p := quote.Protocol
		out.Protocol = &p
		out.PriceImpact = quote.PriceImpact
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *EngineEchoHandler) Execute(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trade := req.ToTrade(h.deps.Quote)
	// Detached from the client connection.
	ok := h.deps.Trades.ExecuteTrade(context.WithoutCancel(c.Request().Context()), trade)
	return xhttp.SuccessResponse(c, ExecutionResult{Executed: ok, Trade: trade})
}

func (h *EngineEchoHandler) TVLTrend(c echo.Context) error {
	res, err := h.deps.TVL.AnalyzeTVLTrends(c.Request().Context())
	if err != nil {
		h.logger.Error("tvl usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineEchoHandler) NFTTrend(c echo.Context) error {
	req := &models.NFTTrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.deps.NFT.AnalyzeNFTMarket(c.Request().Context(), req.Collection)
	if err != nil {
		h.logger.Error("nft usecase error", xlogger.String("collection", req.Collection), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// FlushCaches clears every domain cache.
func (h *EngineEchoHandler) FlushCaches(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()
	if h.deps.Sentiment != nil {
		h.deps.Sentiment.Clear()
	}
	if h.deps.TVL != nil {
		if err := h.deps.TVL.ClearCache(ctx); err != nil {
			h.logger.Error("tvl cache clear error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("tvl cache clear failed").WithError(err))
		}
	}
	if h.deps.NFT != nil {
		if err := h.deps.NFT.ClearCache(ctx); err != nil {
			h.logger.Error("nft cache clear error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("nft cache clear failed").WithError(err))
		}
	}
	h.logger.Info("caches flushed", xlogger.Duration("took_ms", time.Since(start)))
	return xhttp.SuccessResponse(c, map[string]bool{"flushed": true})
}
