package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"swapPool/internal/ledger"
	"swapPool/internal/pool"
	"swapPool/internal/state"
	"swapPool/internal/storage"
)

// RunConfig holds runtime settings for operation replay.
type RunConfig struct {
	OpsPath           string
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner applies an ordered operation stream to one pool state, persisting a
// snapshot after every applied operation. Engine rejections (validation or
// arithmetic) drop that operation without partial mutation and the stream
// continues; anything else stops the run.
type Runner struct {
	cfg        RunConfig
	state      *state.PoolState
	storage    storage.Storage
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, poolState *state.PoolState, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		state:      poolState,
		storage:    storageSink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.state == nil {
		return fmt.Errorf("pool state is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}

	snapshot, ok, err := r.storage.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if ok {
		r.state.Restore(snapshot)
		r.logger.Info("snapshot restored",
			zap.String("reserve_0", snapshot.Pool.Reserve0.String()),
			zap.String("reserve_1", snapshot.Pool.Reserve1.String()),
			zap.Uint64("next_transfer_id", snapshot.NextTransferID),
		)
	}

	var resumeAfter uint64
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok {
			resumeAfter = cp.LastAppliedSeq
			r.logger.Info("resume from checkpoint", zap.Uint64("last_applied_seq", resumeAfter))
		}
	}

	records, err := ReadOperations(r.cfg.OpsPath)
	if err != nil {
		return err
	}

	applied := 0
	rejected := 0
	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if record.Seq <= resumeAfter {
			continue
		}

		opErr := r.apply(ctx, record)
		if opErr != nil && !isRejection(opErr) {
			return fmt.Errorf("apply seq %d (%s): %w", record.Seq, record.Kind, opErr)
		}

		audit := storage.AuditRecord{
			Seq:       record.Seq,
			Kind:      string(record.Kind),
			Timestamp: record.Timestamp,
			Body:      record.Body,
			AppliedAt: time.Now().UTC(),
		}
		if opErr != nil {
			audit.Error = opErr.Error()
			rejected++
			r.logger.Warn("operation rejected",
				zap.Uint64("seq", record.Seq),
				zap.String("kind", string(record.Kind)),
				zap.Error(opErr),
			)
		} else {
			applied++
		}

		if err := r.persist(ctx, audit); err != nil {
			return err
		}
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(record.Seq); err != nil {
				return err
			}
		}
	}

	r.logger.Info("replay complete", zap.Int("applied", applied), zap.Int("rejected", rejected))
	return nil
}

// apply dispatches one record. The kind set is closed; unknown kinds are
// hard errors, not rejections.
func (r *Runner) apply(ctx context.Context, record Record) error {
	switch record.Kind {
	case KindCreate:
		var body CreateBody
		if err := json.Unmarshal(record.Body, &body); err != nil {
			return fmt.Errorf("decode create: %w", err)
		}
		return r.state.Instantiate(ctx, state.CreateParams{
			Token0:             body.Token0,
			Token1:             body.Token1,
			VirtualLiquidity:   body.VirtualLiquidity,
			Amount0:            body.Amount0,
			Amount1:            body.Amount1,
			PoolFeePercent:     body.PoolFeePercent,
			ProtocolFeePercent: body.ProtocolFeePercent,
			Creator:            body.Creator,
			TimestampMicros:    record.Timestamp,
		})

	case KindAddLiquidity:
		var body AddLiquidityBody
		if err := json.Unmarshal(record.Body, &body); err != nil {
			return fmt.Errorf("decode add_liquidity: %w", err)
		}
		_, _, _, err := r.state.AddLiquidity(ctx,
			body.Amount0Desired, body.Amount1Desired,
			body.Amount0Min, body.Amount1Min,
			body.To, record.Timestamp)
		return err

	case KindRemoveLiquidity:
		var body RemoveLiquidityBody
		if err := json.Unmarshal(record.Body, &body); err != nil {
			return fmt.Errorf("decode remove_liquidity: %w", err)
		}
		_, _, err := r.state.RemoveLiquidity(ctx, body.Liquidity, body.From, record.Timestamp)
		return err

	case KindSwap:
		var body SwapBody
		if err := json.Unmarshal(record.Body, &body); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		_, _, err := r.state.Swap(ctx, body.Amount0In, body.Amount1In, body.Trader, record.Timestamp)
		return err

	case KindSetFeeTo:
		var body SetFeeBody
		if err := json.Unmarshal(record.Body, &body); err != nil {
			return fmt.Errorf("decode set_fee_to: %w", err)
		}
		return r.state.SetFeeTo(body.Caller, body.Account)

	case KindSetFeeToSetter:
		var body SetFeeBody
		if err := json.Unmarshal(record.Body, &body); err != nil {
			return fmt.Errorf("decode set_fee_to_setter: %w", err)
		}
		return r.state.SetFeeToSetter(body.Caller, body.Account)

	case KindFundCallback:
		var body FundCallbackBody
		if err := json.Unmarshal(record.Body, &body); err != nil {
			return fmt.Errorf("decode fund_callback: %w", err)
		}
		return r.state.UpdateFundRequest(body.RequestID, body.Status, body.Error)

	default:
		return fmt.Errorf("unknown operation kind %q", record.Kind)
	}
}

// isRejection separates per-operation rejections (validation, arithmetic,
// ledger refusal, container guards) from failures that stop the run.
func isRejection(err error) bool {
	return pool.IsValidation(err) ||
		pool.IsArithmetic(err) ||
		state.IsRejection(err) ||
		errors.Is(err, ledger.ErrInsufficientFunds)
}

// persist writes the snapshot and audit record, retrying transient storage
// failures with exponential backoff.
func (r *Runner) persist(ctx context.Context, audit storage.AuditRecord) error {
	snapshot := r.state.Snapshot()
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		if err := r.storage.SaveSnapshot(ctx, snapshot); err != nil {
			r.logger.Warn("save snapshot failed", zap.Error(err), zap.Uint64("seq", audit.Seq))
			return err
		}
		return r.storage.AppendAudit(ctx, []storage.AuditRecord{audit})
	})
	if err != nil {
		return fmt.Errorf("persist seq %d: %w", audit.Seq, err)
	}
	return nil
}
