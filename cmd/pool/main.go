package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapPool/internal/config"
	"swapPool/internal/storage"
	"swapPool/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "pool",
		Short:        "Constant-product AMM pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("state", "./data/pool.json", "pool state snapshot path")
	root.PersistentFlags().String("audit", "./data/audit.jsonl", "audit log path")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN (overrides file storage)")
	root.PersistentFlags().String("pool-id", "pool-0", "pool id for Postgres storage")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the pool with initial liquidity",
		RunE:  runCreate,
	}
	createCmd.Flags().String("token0", "", "token_0 address")
	createCmd.Flags().String("token1", "", "token_1 address (empty pairs against the native asset)")
	createCmd.Flags().String("amount0", "", "initial token_0 amount")
	createCmd.Flags().String("amount1", "", "initial token_1 amount")
	createCmd.Flags().Bool("virtual", false, "record reserves without minting shares")
	createCmd.Flags().Uint16("pool-fee", 30, "pool fee in hundredths of a percent")
	createCmd.Flags().Uint16("protocol-fee", 5, "protocol fee in hundredths of a percent")
	createCmd.Flags().String("creator", "", "creator account address")
	createCmd.Flags().Uint64("timestamp", 0, "block timestamp in microseconds (0 means now)")
	root.AddCommand(createCmd)

	addCmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit both legs and mint shares",
		RunE:  runAddLiquidity,
	}
	addCmd.Flags().String("amount0", "", "desired token_0 amount")
	addCmd.Flags().String("amount1", "", "desired token_1 amount")
	addCmd.Flags().String("amount0-min", "", "minimum token_0 amount")
	addCmd.Flags().String("amount1-min", "", "minimum token_1 amount")
	addCmd.Flags().String("to", "", "share recipient address")
	addCmd.Flags().Uint64("timestamp", 0, "block timestamp in microseconds (0 means now)")
	root.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Burn shares for their reserve cut",
		RunE:  runRemoveLiquidity,
	}
	removeCmd.Flags().String("liquidity", "", "shares to burn")
	removeCmd.Flags().String("from", "", "share holder address")
	removeCmd.Flags().Uint64("timestamp", 0, "block timestamp in microseconds (0 means now)")
	root.AddCommand(removeCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Trade an exact input for the quoted output",
		RunE:  runSwap,
	}
	swapCmd.Flags().String("amount0-in", "", "exact token_0 input")
	swapCmd.Flags().String("amount1-in", "", "exact token_1 input")
	swapCmd.Flags().String("trader", "", "trader address")
	swapCmd.Flags().Uint64("timestamp", 0, "block timestamp in microseconds (0 means now)")
	root.AddCommand(swapCmd)

	setFeeToCmd := &cobra.Command{
		Use:   "set-fee-to",
		Short: "Change the protocol fee recipient",
		RunE:  runSetFeeTo,
	}
	setFeeToCmd.Flags().String("caller", "", "current fee setter address")
	setFeeToCmd.Flags().String("account", "", "new fee recipient address")
	root.AddCommand(setFeeToCmd)

	setFeeToSetterCmd := &cobra.Command{
		Use:   "set-fee-to-setter",
		Short: "Hand fee administration to another account",
		RunE:  runSetFeeToSetter,
	}
	setFeeToSetterCmd.Flags().String("caller", "", "current fee setter address")
	setFeeToSetterCmd.Flags().String("account", "", "new fee setter address")
	root.AddCommand(setFeeToSetterCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote swaps and deposits without mutating state",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("amount0-in", "", "exact token_0 input")
	quoteCmd.Flags().String("amount1-in", "", "exact token_1 input")
	quoteCmd.Flags().String("amount0-out", "", "requested token_0 output")
	quoteCmd.Flags().String("amount1-out", "", "requested token_1 output")
	quoteCmd.Flags().Uint64("elapsed", 0, "project cumulative prices this many microseconds ahead")
	root.AddCommand(quoteCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the pool state",
		RunE:  runShow,
	}
	showCmd.Flags().String("account", "", "also print this account's share balance")
	root.AddCommand(showCmd)

	fundCmd := &cobra.Command{
		Use:   "fund",
		Short: "Track cross-boundary fund requests",
	}

	fundCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a pending fund request",
		RunE:  runFundCreate,
	}
	fundCreateCmd.Flags().String("token", "", "token address (empty means native)")
	fundCreateCmd.Flags().String("amount0", "0", "requested token_0 amount")
	fundCreateCmd.Flags().String("amount1", "0", "requested token_1 amount")
	fundCreateCmd.Flags().String("account", "", "associated account address")
	fundCreateCmd.Flags().Uint64("timestamp", 0, "creation timestamp in microseconds (0 means now)")
	fundCmd.AddCommand(fundCreateCmd)

	fundUpdateCmd := &cobra.Command{
		Use:   "update",
		Short: "Resolve a fund request",
		RunE:  runFundUpdate,
	}
	fundUpdateCmd.Flags().Uint64("id", 0, "fund request id")
	fundUpdateCmd.Flags().String("status", "", "new status (pending, completed, failed)")
	fundUpdateCmd.Flags().String("error", "", "failure reason")
	fundCmd.AddCommand(fundUpdateCmd)

	fundShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print one fund request",
		RunE:  runFundShow,
	}
	fundShowCmd.Flags().Uint64("id", 0, "fund request id")
	fundCmd.AddCommand(fundShowCmd)

	fundListCmd := &cobra.Command{
		Use:   "list",
		Short: "Print all fund requests",
		RunE:  runFundList,
	}
	fundListCmd.Flags().String("status", "", "filter by status")
	fundCmd.AddCommand(fundListCmd)

	root.AddCommand(fundCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an ordered operation stream",
		RunE:  runReplay,
	}
	replayCmd.Flags().String("ops", "", "operations JSONL path")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("max-retries", 5, "maximum storage retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// openStorage picks Postgres when a DSN is configured, file storage
// otherwise. The returned func releases the connection pool.
func openStorage(ctx context.Context, cfg config.Config) (storage.Storage, func(), error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.PoolID)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil
	}
	store := storage.NewFileStore(cfg.StatePath, cfg.AuditPath)
	return store, func() {}, nil
}

func parseAddress(value, flagName string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("--%s: %q is not a hex address", flagName, value)
	}
	return common.HexToAddress(value), nil
}

func parseOptionalAddress(value, flagName string) (*common.Address, error) {
	if value == "" {
		return nil, nil
	}
	addr, err := parseAddress(value, flagName)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func timestampOrNow(ts uint64) uint64 {
	if ts != 0 {
		return ts
	}
	return uint64(time.Now().UnixMicro())
}
