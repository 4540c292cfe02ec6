package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPool/internal/amount"
	"swapPool/internal/ledger"
	"swapPool/internal/pool"
)

// PoolState composes the pool engine, the share ledger it embeds, and the
// fund-request tracker into one durable unit. It is a single-writer state
// machine: one operation runs to completion under the lock before the next
// is admitted, and every operation validates fully before mutating.
type PoolState struct {
	mu sync.Mutex

	pool         pool.Pool
	instantiated bool

	nextTransferID uint64
	fundRequests   map[uint64]FundRequest

	// account holds the pool's reserves on the fungible ledger.
	account common.Address
	tokens  ledger.Fungible
	logger  *zap.Logger
}

// Snapshot is the persisted form of a PoolState.
type Snapshot struct {
	Pool           pool.Pool              `json:"pool"`
	NextTransferID uint64                 `json:"next_transfer_id"`
	FundRequests   map[uint64]FundRequest `json:"fund_requests"`
}

// New builds an empty, uninstantiated pool state. The account is where the
// pool holds its reserves on the fungible ledger.
func New(account common.Address, tokens ledger.Fungible, logger *zap.Logger) *PoolState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolState{
		nextTransferID: firstTransferID,
		fundRequests:   make(map[uint64]FundRequest),
		account:        account,
		tokens:         tokens,
		logger:         logger,
	}
}

// CreateParams carries everything pool instantiation needs.
type CreateParams struct {
	Token0             common.Address
	Token1             *common.Address
	VirtualLiquidity   bool
	Amount0            amount.Amount
	Amount1            amount.Amount
	PoolFeePercent     uint16
	ProtocolFeePercent uint16
	Creator            common.Address
	TimestampMicros    uint64
}

// Instantiate creates the pool exactly once. Unless the initial liquidity is
// virtual, the creator's deposit moves onto the pool account first; any
// ledger rejection fails the whole operation with no pool created.
func (s *PoolState) Instantiate(ctx context.Context, params CreateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.instantiated {
		return ErrAlreadyInstantiated
	}
	if params.Amount0.IsZero() || params.Amount1.IsZero() {
		return fmt.Errorf("%w: initial amounts must be positive", pool.ErrInvalidAmount)
	}
	if params.Token1 != nil && *params.Token1 == params.Token0 {
		return fmt.Errorf("%w: %s paired with itself", pool.ErrInvalidPair, params.Token0.Hex())
	}

	if !params.VirtualLiquidity {
		if err := s.collect(ctx, params.Creator, params.Amount0, params.Amount1, &params.Token0, params.Token1); err != nil {
			return err
		}
	}

	created, err := pool.Create(
		params.Token0, params.Token1,
		params.VirtualLiquidity,
		params.Amount0, params.Amount1,
		params.PoolFeePercent, params.ProtocolFeePercent,
		params.Creator,
		params.TimestampMicros,
	)
	if err != nil {
		return err
	}

	s.pool = created
	s.instantiated = true
	s.logger.Info("pool created",
		zap.String("token_0", params.Token0.Hex()),
		zap.Bool("virtual", params.VirtualLiquidity),
		zap.String("reserve_0", created.Reserve0.String()),
		zap.String("reserve_1", created.Reserve1.String()),
		zap.String("total_supply", created.Share.TotalSupply.String()),
	)
	return nil
}

// AddLiquidity fits the desired deposit to the reserve ratio, moves the
// amounts onto the pool account, then mints shares and updates reserves.
func (s *PoolState) AddLiquidity(
	ctx context.Context,
	desired0, desired1 amount.Amount,
	min0, min1 *amount.Amount,
	to common.Address,
	timestampMicros uint64,
) (amount.Amount, amount.Amount, amount.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zero := amount.Zero()
	if err := s.requireInstantiated(); err != nil {
		return zero, zero, zero, err
	}

	amount0, amount1, err := s.pool.TryCalculateSwapAmountPair(desired0, desired1, min0, min1)
	if err != nil {
		return zero, zero, zero, err
	}

	if err := s.collect(ctx, to, amount0, amount1, s.token0Ref(), s.pool.Token1); err != nil {
		return zero, zero, zero, err
	}

	staged := s.pool.Copy()
	supplyBefore := staged.Share.TotalSupply
	if err := staged.MintShares(amount0, amount1, to); err != nil {
		return zero, zero, zero, err
	}
	if err := staged.Liquid(amount0, amount1, timestampMicros); err != nil {
		return zero, zero, zero, err
	}

	minted := staged.Share.Balance(to).SaturatingSub(s.pool.Share.Balance(to))
	s.pool = staged

	s.logger.Info("liquidity added",
		zap.String("to", to.Hex()),
		zap.String("amount_0", amount0.String()),
		zap.String("amount_1", amount1.String()),
		zap.String("minted", minted.String()),
		zap.String("total_supply_before", supplyBefore.String()),
		zap.String("total_supply", staged.Share.TotalSupply.String()),
	)
	return amount0, amount1, minted, nil
}

// RemoveLiquidity burns the caller's shares and pays out the proportional
// reserve amounts from the pool account.
func (s *PoolState) RemoveLiquidity(
	ctx context.Context,
	liquidity amount.Amount,
	from common.Address,
	timestampMicros uint64,
) (amount.Amount, amount.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zero := amount.Zero()
	if err := s.requireInstantiated(); err != nil {
		return zero, zero, err
	}

	staged := s.pool.Copy()
	amount0, amount1, err := staged.BurnShares(liquidity, from, timestampMicros)
	if err != nil {
		return zero, zero, err
	}

	if err := s.payOut(ctx, from, amount0, amount1, s.token0Ref(), staged.Token1); err != nil {
		return zero, zero, err
	}
	s.pool = staged

	s.logger.Info("liquidity removed",
		zap.String("from", from.Hex()),
		zap.String("liquidity", liquidity.String()),
		zap.String("amount_0", amount0.String()),
		zap.String("amount_1", amount1.String()),
	)
	return amount0, amount1, nil
}

// Swap trades an exact input of one leg for the quoted output of the other.
func (s *PoolState) Swap(
	ctx context.Context,
	amount0In, amount1In amount.Amount,
	trader common.Address,
	timestampMicros uint64,
) (amount.Amount, amount.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zero := amount.Zero()
	if err := s.requireInstantiated(); err != nil {
		return zero, zero, err
	}

	staged := s.pool.Copy()
	amount0Out, amount1Out, err := staged.Swap(amount0In, amount1In, timestampMicros)
	if err != nil {
		return zero, zero, err
	}

	if err := s.collect(ctx, trader, amount0In, amount1In, s.token0Ref(), staged.Token1); err != nil {
		return zero, zero, err
	}
	if err := s.payOut(ctx, trader, amount0Out, amount1Out, s.token0Ref(), staged.Token1); err != nil {
		return zero, zero, err
	}
	s.pool = staged

	s.logger.Info("swap",
		zap.String("trader", trader.Hex()),
		zap.String("amount_0_in", amount0In.String()),
		zap.String("amount_1_in", amount1In.String()),
		zap.String("amount_0_out", amount0Out.String()),
		zap.String("amount_1_out", amount1Out.String()),
		zap.String("reserve_0", staged.Reserve0.String()),
		zap.String("reserve_1", staged.Reserve1.String()),
	)
	return amount0Out, amount1Out, nil
}

// SetFeeTo changes the protocol fee recipient; only the fee setter may.
func (s *PoolState) SetFeeTo(caller, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInstantiated(); err != nil {
		return err
	}
	return s.pool.SetFeeTo(caller, account)
}

// SetFeeToSetter hands fee administration to another account.
func (s *PoolState) SetFeeToSetter(caller, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInstantiated(); err != nil {
		return err
	}
	return s.pool.SetFeeToSetter(caller, account)
}

// Pool returns a deep copy of the pool for queries.
func (s *PoolState) Pool() (pool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInstantiated(); err != nil {
		return pool.Pool{}, err
	}
	return s.pool.Copy(), nil
}

// Liquidity returns the shares owned by an account.
func (s *PoolState) Liquidity(account common.Address) (amount.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInstantiated(); err != nil {
		return amount.Zero(), err
	}
	return s.pool.Share.Balance(account), nil
}

// Snapshot captures the whole durable unit for persistence.
func (s *PoolState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := make(map[uint64]FundRequest, len(s.fundRequests))
	for id, request := range s.fundRequests {
		requests[id] = request
	}
	return Snapshot{
		Pool:           s.pool.Copy(),
		NextTransferID: s.nextTransferID,
		FundRequests:   requests,
	}
}

// Restore loads a previously persisted snapshot.
func (s *PoolState) Restore(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool = snapshot.Pool.Copy()
	s.instantiated = true
	s.nextTransferID = snapshot.NextTransferID
	if s.nextTransferID < firstTransferID {
		s.nextTransferID = firstTransferID
	}
	s.fundRequests = make(map[uint64]FundRequest, len(snapshot.FundRequests))
	for id, request := range snapshot.FundRequests {
		s.fundRequests[id] = request
	}
}

func (s *PoolState) requireInstantiated() error {
	if !s.instantiated {
		return ErrNotInstantiated
	}
	return nil
}

// collect validates both source balances before moving either amount, so a
// short balance rejects the operation with nothing spent.
func (s *PoolState) collect(ctx context.Context, from common.Address, amount0, amount1 amount.Amount, token0, token1 *common.Address) error {
	if s.tokens == nil {
		return nil
	}

	if err := s.checkBalance(ctx, token0, from, amount0); err != nil {
		return err
	}
	if err := s.checkBalance(ctx, token1, from, amount1); err != nil {
		return err
	}

	if !amount0.IsZero() {
		if err := s.tokens.Transfer(ctx, token0, from, s.account, amount0); err != nil {
			return fmt.Errorf("collect token_0: %w", err)
		}
	}
	if !amount1.IsZero() {
		if err := s.tokens.Transfer(ctx, token1, from, s.account, amount1); err != nil {
			return fmt.Errorf("collect token_1: %w", err)
		}
	}
	return nil
}

func (s *PoolState) payOut(ctx context.Context, to common.Address, amount0, amount1 amount.Amount, token0, token1 *common.Address) error {
	if s.tokens == nil {
		return nil
	}

	if !amount0.IsZero() {
		if err := s.tokens.Transfer(ctx, token0, s.account, to, amount0); err != nil {
			return fmt.Errorf("pay out token_0: %w", err)
		}
	}
	if !amount1.IsZero() {
		if err := s.tokens.Transfer(ctx, token1, s.account, to, amount1); err != nil {
			return fmt.Errorf("pay out token_1: %w", err)
		}
	}
	return nil
}

func (s *PoolState) checkBalance(ctx context.Context, token *common.Address, account common.Address, amt amount.Amount) error {
	if amt.IsZero() {
		return nil
	}
	balance, err := s.tokens.Balance(ctx, token, account)
	if err != nil {
		return err
	}
	if balance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", pool.ErrInsufficientBalance, account.Hex(), balance, amt)
	}
	return nil
}

func (s *PoolState) token0Ref() *common.Address {
	token0 := s.pool.Token0
	return &token0
}
