package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ChainPulse/pkg/logger"
)

// ErrInvalidConfig marks a configuration fault. It is the only error class
// that aborts startup.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Environment string        `yaml:"environment" default:"dev" validate:"required"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       float64       `yaml:"rate_limit" default:"10"`
		RateBurst       int           `yaml:"rate_burst" default:"20"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Trading     Trading     `yaml:"trading"`
	DeFi        DeFi        `yaml:"defi"`
	Credentials Credentials `yaml:"credentials"`
	Providers   Providers   `yaml:"providers"`
	Cache       Cache       `yaml:"cache"`
	Scheduler   Scheduler   `yaml:"scheduler"`
	NFT         struct {
		Collections []string `yaml:"collections"`
	} `yaml:"nft"`
	Redis Redis `yaml:"redis"`
	Kafka Kafka `yaml:"kafka"`
}

// Trading bounds every trade the engine will accept.
type Trading struct {
	MinAmount         float64 `yaml:"min_amount" default:"100" validate:"gt=0"`
	MaxAmount         float64 `yaml:"max_amount" default:"10000" validate:"gtefield=MinAmount"`
	SlippageTolerance float64 `yaml:"slippage_tolerance" default:"0.5" validate:"gte=0,lte=100"`
	AutoExecute       bool    `yaml:"auto_execute"`
}

// DeFi thresholds gate liquidity, volume and routing. Percentages are in
// percent units (1.0 = 1%).
type DeFi struct {
	Chain          string   `yaml:"chain" default:"Ethereum" validate:"required"`
	QuoteAsset     string   `yaml:"quote_asset" default:"USDT" validate:"required"`
	MinLiquidity   float64  `yaml:"min_liquidity" default:"1000000" validate:"gte=0"`
	MinVolume      float64  `yaml:"min_volume" default:"500000" validate:"gte=0"`
	MaxPriceImpact float64  `yaml:"max_price_impact" default:"1" validate:"gt=0"`
	TargetVenues   []string `yaml:"target_venues" default:"[\"uniswap-v3\",\"sushiswap\",\"curve-dex\",\"balancer-v2\",\"pancakeswap-amm\"]" validate:"min=1,dive,required"`
}

type Credentials struct {
	BinanceAPIKey    string `yaml:"binance_api_key"`
	BinanceAPISecret string `yaml:"binance_api_secret"`
	ExecutionAPIKey  string `yaml:"execution_api_key"`
	NFTAPIKey        string `yaml:"nft_api_key"`
}

// SocialSource declares one social sentiment bridge.
type SocialSource struct {
	Name   string `yaml:"name" validate:"required"`
	Kind   string `yaml:"kind" validate:"required,oneof=twitter discord telegram http"`
	URL    string `yaml:"url" validate:"required,url"`
	APIKey string `yaml:"api_key"`
}

type Providers struct {
	Timeout           time.Duration  `yaml:"timeout" default:"5s" validate:"gt=0"`
	RequestsPerSecond float64        `yaml:"requests_per_second" default:"10" validate:"gt=0"`
	LlamaURL          string         `yaml:"llama_url" default:"https://api.llama.fi" validate:"required,url"`
	OnChainURL        string         `yaml:"onchain_url" default:"http://localhost:8090" validate:"required,url"`
	NFTURL            string         `yaml:"nft_url" default:"https://api.opensea.io/api/v2" validate:"required,url"`
	ExecutionURL      string         `yaml:"execution_url" default:"http://localhost:8091" validate:"required,url"`
	NewsURLs          []string       `yaml:"news_urls" default:"[\"https://cryptopanic.com/news/\"]" validate:"dive,url"`
	Social            []SocialSource `yaml:"social" validate:"dive"`
}

// Cache sizes and per-domain TTLs.
type Cache struct {
	MaxEntries   int           `yaml:"max_entries" default:"1000" validate:"gt=0"`
	SentimentTTL time.Duration `yaml:"sentiment_ttl" default:"5m" validate:"gt=0"`
	TVLTTL       time.Duration `yaml:"tvl_ttl" default:"5m" validate:"gt=0"`
	NFTTTL       time.Duration `yaml:"nft_ttl" default:"5m" validate:"gt=0"`
	DocumentsTTL time.Duration `yaml:"documents_ttl" default:"15m" validate:"gt=0"`
}

type Scheduler struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	ScanInterval    time.Duration `yaml:"scan_interval" default:"5m" validate:"gt=0"`
	MonitorInterval time.Duration `yaml:"monitor_interval" default:"1m" validate:"gt=0"`
	TVLInterval     time.Duration `yaml:"tvl_interval" default:"15m" validate:"gt=0"`
	LockTTL         time.Duration `yaml:"lock_ttl" default:"2m"`
	Tokens          []string      `yaml:"tokens" default:"[\"BTC\",\"ETH\"]" validate:"min=1"`
	TradeAmount     float64       `yaml:"trade_amount" default:"250" validate:"gt=0"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"chainpulse"`
}

type Kafka struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	NotifyTopic  string   `yaml:"notify_topic" default:"chainpulse.notifications"`
	CommandTopic string   `yaml:"command_topic" default:"chainpulse.trade-commands"`
	LogTopic     string   `yaml:"log_topic" default:"chainpulse.ops-logs"`
	DLQTopic     string   `yaml:"dlq_topic" default:"chainpulse.trade-commands.dlq"`
	GroupID      string   `yaml:"group_id" default:"chainpulse-engine"`
	Workers      int      `yaml:"workers" default:"2" validate:"gt=0"`
	RetryMax     int      `yaml:"retry_max" default:"3" validate:"gte=0"`
}

// Load reads a YAML configuration file, applies defaults and validates it.
// An empty path yields a defaults-only configuration.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadWithEnv loads a .env file when present, reads the YAML config and
// overrides it with environment variables, then validates the result.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := read(path)
	if err != nil {
		return nil, err
	}
	applyEnv(c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// read applies struct defaults first so that values present in the file
// win, including explicit zeroes.
func read(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Credentials.BinanceAPIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Credentials.BinanceAPISecret = v
	}
	if v := os.Getenv("EXECUTION_API_KEY"); v != "" {
		c.Credentials.ExecutionAPIKey = v
	}
	if v := os.Getenv("NFT_API_KEY"); v != "" {
		c.Credentials.NFTAPIKey = v
	}
	if v := os.Getenv("TOKENS"); v != "" {
		c.Scheduler.Tokens = splitList(v)
	}
	if v := os.Getenv("AUTO_EXECUTE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trading.AutoExecute = b
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks struct tags plus the rules that span sections. Every
// failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Trading.AutoExecute && c.Credentials.ExecutionAPIKey == "" {
		return fmt.Errorf("%w: credentials.execution_api_key is required when trading.auto_execute is on", ErrInvalidConfig)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers cannot be empty when kafka is enabled", ErrInvalidConfig)
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("%w: redis.host is required when redis is enabled", ErrInvalidConfig)
	}
	return nil
}
