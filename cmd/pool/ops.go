package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapPool/internal/amount"
	"swapPool/internal/config"
	"swapPool/internal/state"
	"swapPool/internal/storage"
)

// session bundles the pieces every command needs: config, logger, the
// storage backend, and the restored pool state.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	store   storage.Storage
	release func()
	state   *state.PoolState
}

func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, release, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	poolState := state.New(common.Address{}, nil, logger)
	snapshot, ok, err := store.LoadSnapshot(ctx)
	if err != nil {
		release()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if ok {
		poolState.Restore(snapshot)
	}

	return &session{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		release: release,
		state:   poolState,
	}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
	s.release()
}

func (s *session) save(ctx context.Context) error {
	if err := s.store.SaveSnapshot(ctx, s.state.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func amountFlag(cmd *cobra.Command, name string) (amount.Amount, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return amount.Zero(), nil
	}
	parsed, err := amount.Parse(raw)
	if err != nil {
		return amount.Zero(), fmt.Errorf("--%s: %w", name, err)
	}
	return parsed, nil
}

func optionalAmountFlag(cmd *cobra.Command, name string) (*amount.Amount, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := amount.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &parsed, nil
}

func runCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	token0Raw, _ := cmd.Flags().GetString("token0")
	token0, err := parseAddress(token0Raw, "token0")
	if err != nil {
		return err
	}
	token1Raw, _ := cmd.Flags().GetString("token1")
	token1, err := parseOptionalAddress(token1Raw, "token1")
	if err != nil {
		return err
	}
	creatorRaw, _ := cmd.Flags().GetString("creator")
	creator, err := parseAddress(creatorRaw, "creator")
	if err != nil {
		return err
	}

	amount0, err := amountFlag(cmd, "amount0")
	if err != nil {
		return err
	}
	amount1, err := amountFlag(cmd, "amount1")
	if err != nil {
		return err
	}

	virtual, _ := cmd.Flags().GetBool("virtual")
	poolFee, _ := cmd.Flags().GetUint16("pool-fee")
	protocolFee, _ := cmd.Flags().GetUint16("protocol-fee")
	ts, _ := cmd.Flags().GetUint64("timestamp")

	err = sess.state.Instantiate(ctx, state.CreateParams{
		Token0:             token0,
		Token1:             token1,
		VirtualLiquidity:   virtual,
		Amount0:            amount0,
		Amount1:            amount1,
		PoolFeePercent:     poolFee,
		ProtocolFeePercent: protocolFee,
		Creator:            creator,
		TimestampMicros:    timestampOrNow(ts),
	})
	if err != nil {
		return err
	}

	if err := sess.save(ctx); err != nil {
		return err
	}
	created, err := sess.state.Pool()
	if err != nil {
		return err
	}
	return printJSON(created)
}

func runAddLiquidity(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	desired0, err := amountFlag(cmd, "amount0")
	if err != nil {
		return err
	}
	desired1, err := amountFlag(cmd, "amount1")
	if err != nil {
		return err
	}
	min0, err := optionalAmountFlag(cmd, "amount0-min")
	if err != nil {
		return err
	}
	min1, err := optionalAmountFlag(cmd, "amount1-min")
	if err != nil {
		return err
	}
	toRaw, _ := cmd.Flags().GetString("to")
	to, err := parseAddress(toRaw, "to")
	if err != nil {
		return err
	}
	ts, _ := cmd.Flags().GetUint64("timestamp")

	amount0, amount1, minted, err := sess.state.AddLiquidity(ctx, desired0, desired1, min0, min1, to, timestampOrNow(ts))
	if err != nil {
		return err
	}

	if err := sess.save(ctx); err != nil {
		return err
	}
	return printJSON(map[string]string{
		"amount_0": amount0.String(),
		"amount_1": amount1.String(),
		"minted":   minted.String(),
	})
}

func runRemoveLiquidity(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	liquidity, err := amountFlag(cmd, "liquidity")
	if err != nil {
		return err
	}
	fromRaw, _ := cmd.Flags().GetString("from")
	from, err := parseAddress(fromRaw, "from")
	if err != nil {
		return err
	}
	ts, _ := cmd.Flags().GetUint64("timestamp")

	amount0, amount1, err := sess.state.RemoveLiquidity(ctx, liquidity, from, timestampOrNow(ts))
	if err != nil {
		return err
	}

	if err := sess.save(ctx); err != nil {
		return err
	}
	return printJSON(map[string]string{
		"amount_0": amount0.String(),
		"amount_1": amount1.String(),
	})
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	amount0In, err := amountFlag(cmd, "amount0-in")
	if err != nil {
		return err
	}
	amount1In, err := amountFlag(cmd, "amount1-in")
	if err != nil {
		return err
	}
	traderRaw, _ := cmd.Flags().GetString("trader")
	trader, err := parseAddress(traderRaw, "trader")
	if err != nil {
		return err
	}
	ts, _ := cmd.Flags().GetUint64("timestamp")

	amount0Out, amount1Out, err := sess.state.Swap(ctx, amount0In, amount1In, trader, timestampOrNow(ts))
	if err != nil {
		return err
	}

	if err := sess.save(ctx); err != nil {
		return err
	}
	return printJSON(map[string]string{
		"amount_0_out": amount0Out.String(),
		"amount_1_out": amount1Out.String(),
	})
}

func runSetFeeTo(cmd *cobra.Command, _ []string) error {
	return runSetFee(cmd, func(s *state.PoolState, caller, account common.Address) error {
		return s.SetFeeTo(caller, account)
	})
}

func runSetFeeToSetter(cmd *cobra.Command, _ []string) error {
	return runSetFee(cmd, func(s *state.PoolState, caller, account common.Address) error {
		return s.SetFeeToSetter(caller, account)
	})
}

func runSetFee(cmd *cobra.Command, apply func(*state.PoolState, common.Address, common.Address) error) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	callerRaw, _ := cmd.Flags().GetString("caller")
	caller, err := parseAddress(callerRaw, "caller")
	if err != nil {
		return err
	}
	accountRaw, _ := cmd.Flags().GetString("account")
	account, err := parseAddress(accountRaw, "account")
	if err != nil {
		return err
	}

	if err := apply(sess.state, caller, account); err != nil {
		return err
	}
	return sess.save(ctx)
}
