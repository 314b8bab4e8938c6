package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ChainPulse/internal/di"
	"ChainPulse/internal/display"
	"ChainPulse/internal/domain/models"
	"ChainPulse/pkg/config"
)

const oneShotTimeout = 2 * time.Minute

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "chainpulse",
		Short:         "ChainPulse - crypto market analysis and trade validation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	load := func(oneShot bool) (*config.Config, error) {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return nil, err
		}
		if oneShot {
			// Results go to stdout.
			cfg.Log.Output = "stderr"
			cfg.Log.Level = "warn"
			cfg.Log.Format = "console"
		}
		return cfg, nil
	}

	rootCmd.AddCommand(
		newServeCmd(load),
		newAnalyzeCmd(load),
		newValidateCmd(load),
		newTVLCmd(load),
		newNFTCmd(load),
	)
	return rootCmd
}

type loader func(oneShot bool) (*config.Config, error)

func engine(load loader) (*di.Engine, *config.Config, error) {
	cfg, err := load(true)
	if err != nil {
		return nil, nil, err
	}
	e, err := di.InitializeEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	return e, cfg, nil
}

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduled jobs and Kafka consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(false)
			if err != nil {
				return err
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}

func newAnalyzeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:     "analyze TOKEN",
		Short:   "Analyze market conditions for a token",
		Example: "chainpulse analyze ETH",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := engine(load)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
			defer cancel()

			res, err := e.Analyzer.AnalyzeMarket(ctx, strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Analysis(res))
			return nil
		},
	}
}

func newValidateCmd(load loader) *cobra.Command {
	var (
		token  string
		amount float64
		typ    string
		pair   string
	)
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check a trade against the trading policy without executing it",
		Example: "chainpulse validate --token ETH --amount 500 --type BUY",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tt := models.TradeType(strings.ToUpper(typ))
			if tt != models.TradeBuy && tt != models.TradeSell {
				return fmt.Errorf("--type must be BUY or SELL, got %q", typ)
			}
			if amount <= 0 {
				return fmt.Errorf("--amount must be greater than 0")
			}
			e, cfg, err := engine(load)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
			defer cancel()

			req := models.TradeRequest{Type: tt, Token: strings.ToUpper(token), Amount: amount, Pair: pair}
			trade := req.ToTrade(cfg.DeFi.QuoteAsset)
			quote, rej, err := e.Trades.Check(ctx, trade)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Validation(trade, quote, rej))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token symbol")
	cmd.Flags().Float64Var(&amount, "amount", 0, "trade amount")
	cmd.Flags().StringVar(&typ, "type", string(models.TradeBuy), "BUY or SELL")
	cmd.Flags().StringVar(&pair, "pair", "", "trading pair (default TOKEN/quote asset)")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTVLCmd(load loader) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "tvl",
		Short: "Show the TVL trend of the configured chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := engine(load)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
			defer cancel()

			res, err := e.TVL.AnalyzeTVLTrends(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.TVLTrend(res, top))
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of protocols to list")
	return cmd
}

func newNFTCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "nft [COLLECTION]",
		Short: "Show NFT market trends for one or all configured collections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := engine(load)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
			defer cancel()

			collection := ""
			if len(args) == 1 {
				collection = args[0]
			}
			res, err := e.NFT.AnalyzeNFTMarket(ctx, collection)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.NFTTrends(res))
			return nil
		},
	}
}
