package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"swapPool/internal/amount"
)

// twapDivisionPlaces fixes the fractional precision of the cumulative price
// accumulators. Divisions round half away from zero at this scale.
const twapDivisionPlaces = 28

// Pool is the state of one constant-product market: reserves, fee
// configuration, the embedded share ledger, TWAP accumulators, and the
// invariant snapshot used for protocol-fee growth detection.
type Pool struct {
	Token0 common.Address `json:"token_0"`
	// Token1 nil means the pair trades against the chain's native asset.
	Token1   *common.Address `json:"token_1,omitempty"`
	Reserve0 amount.Amount   `json:"reserve_0"`
	Reserve1 amount.Amount   `json:"reserve_1"`
	// Fee rates in hundredths of a percent: 30 means 0.30%.
	PoolFeePercent     uint16         `json:"pool_fee_percent"`
	ProtocolFeePercent uint16         `json:"protocol_fee_percent"`
	Share              Share          `json:"share"`
	FeeTo              common.Address `json:"fee_to"`
	FeeToSetter        common.Address `json:"fee_to_setter"`

	Price0Cumulative decimal.Decimal `json:"price_0_cumulative"`
	Price1Cumulative decimal.Decimal `json:"price_1_cumulative"`

	// KLast holds floor(sqrt(reserve_0*reserve_1)) as of the last reserve
	// update, not the product itself.
	KLast amount.Amount `json:"k_last"`
	// BlockTimestamp is the timestamp of the last reserve update, in
	// microseconds.
	BlockTimestamp uint64 `json:"block_timestamp"`
}

// Create builds a pool from an initial deposit. When virtualLiquidity is set
// the reserves are recorded without minting any shares, letting a privileged
// initial listing seed a price without granting ownership. The creator
// becomes both fee_to and fee_to_setter.
func Create(
	token0 common.Address,
	token1 *common.Address,
	virtualLiquidity bool,
	amount0, amount1 amount.Amount,
	poolFeePercent, protocolFeePercent uint16,
	creator common.Address,
	timestampMicros uint64,
) (Pool, error) {
	if amount0.IsZero() || amount1.IsZero() {
		return Pool{}, fmt.Errorf("%w: initial amounts must be positive", ErrInvalidAmount)
	}
	if token1 != nil && *token1 == token0 {
		return Pool{}, fmt.Errorf("%w: %s paired with itself", ErrInvalidPair, token0.Hex())
	}
	if uint64(poolFeePercent) >= feeBasis || uint64(protocolFeePercent) >= feeBasis {
		return Pool{}, fmt.Errorf("%w: fee rate must be below %d", ErrInvalidAmount, feeBasis)
	}

	p := Pool{
		Token0:             token0,
		Token1:             token1,
		PoolFeePercent:     poolFeePercent,
		ProtocolFeePercent: protocolFeePercent,
		Share:              NewShare(),
		FeeTo:              creator,
		FeeToSetter:        creator,
	}

	if !virtualLiquidity {
		if err := p.MintShares(amount0, amount1, creator); err != nil {
			return Pool{}, err
		}
	}
	if err := p.Liquid(amount0, amount1, timestampMicros); err != nil {
		return Pool{}, err
	}

	return p, nil
}

// CalculateLiquidity returns the shares a deposit of (amount0, amount1) is
// worth. On a cold pool this is floor(sqrt(amount0*amount1)); otherwise it is
// min over both legs of amount_i*totalSupply/reserve_i', where reserve_i' is
// the reserve AFTER the deposit. The post-deposit divisor is a deliberate
// convention of this engine; do not switch it to pre-deposit reserves.
func (p *Pool) CalculateLiquidity(amount0, amount1 amount.Amount) (amount.Amount, error) {
	if p.Reserve0.IsZero() && p.Reserve1.IsZero() {
		return sqrtProduct(amount0, amount1)
	}
	if p.Share.TotalSupply.IsZero() {
		return sqrtProduct(amount0, amount1)
	}

	reserve0, err := p.Reserve0.Add(amount0)
	if err != nil {
		return amount.Zero(), err
	}
	reserve1, err := p.Reserve1.Add(amount1)
	if err != nil {
		return amount.Zero(), err
	}

	byLeg0, err := mulDivFloor(amount0, p.Share.TotalSupply, reserve0)
	if err != nil {
		return amount.Zero(), err
	}
	byLeg1, err := mulDivFloor(amount1, p.Share.TotalSupply, reserve1)
	if err != nil {
		return amount.Zero(), err
	}

	if byLeg0.Cmp(byLeg1) <= 0 {
		return byLeg0, nil
	}
	return byLeg1, nil
}

// MintFee settles the protocol fee on reserve growth since the last capture.
// If floor(sqrt(reserve_0*reserve_1)) exceeds KLast, shares worth one sixth
// of the growth are minted to fee_to, diluting existing holders; no reserve
// assets move. A zero KLast disables the fee entirely.
func (p *Pool) MintFee() error {
	if p.KLast.IsZero() {
		return nil
	}

	rootK := new(uint256.Int).Mul(p.Reserve0.U256(), p.Reserve1.U256())
	rootK.Sqrt(rootK)
	rootKLast := p.KLast.U256()

	if rootK.Cmp(rootKLast) <= 0 {
		return nil
	}

	// liquidity = totalSupply * (rootK - kLast) / (5*rootK + kLast),
	// the one-sixth-of-growth fee model.
	growth := new(uint256.Int).Sub(rootK, rootKLast)
	denominator := new(uint256.Int).Mul(rootK, uint256.NewInt(5))
	denominator.Add(denominator, rootKLast)

	liquidity, overflow := new(uint256.Int).MulDivOverflow(p.Share.TotalSupply.U256(), growth, denominator)
	if overflow {
		return fmt.Errorf("%w: protocol fee liquidity", amount.ErrOverflow)
	}
	minted, err := amount.FromAttosU256(liquidity)
	if err != nil {
		return err
	}
	if !minted.IsZero() {
		p.Share.Mint(p.FeeTo, minted)
	}
	return nil
}

// Liquid applies a reserve update: amount0 and amount1 are deltas ADDED to
// the current reserves. The TWAP accumulators advance first, priced at the
// reserves as they stood before this update, then the reserves, timestamp,
// and KLast snapshot are replaced.
func (p *Pool) Liquid(amount0, amount1 amount.Amount, timestampMicros uint64) error {
	balance0, err := p.Reserve0.Add(amount0)
	if err != nil {
		return err
	}
	balance1, err := p.Reserve1.Add(amount1)
	if err != nil {
		return err
	}
	return p.settle(balance0, balance1, timestampMicros)
}

// settle replaces the reserves with explicit post-operation balances. Swap
// paths use it directly since one side decreases.
func (p *Pool) settle(balance0, balance1 amount.Amount, timestampMicros uint64) error {
	var elapsed uint64
	if timestampMicros > p.BlockTimestamp {
		elapsed = timestampMicros - p.BlockTimestamp
	}
	if elapsed > 0 && !p.Reserve0.IsZero() && !p.Reserve1.IsZero() {
		p.Price0Cumulative, p.Price1Cumulative = p.CalculatePriceCumulativePair(elapsed)
	}

	p.Reserve0 = balance0
	p.Reserve1 = balance1
	p.BlockTimestamp = timestampMicros

	kLast, err := sqrtProduct(p.Reserve0, p.Reserve1)
	if err != nil {
		return err
	}
	p.KLast = kLast
	return nil
}

// CalculatePriceCumulativePair projects the cumulative prices after a
// hypothetical elapsed duration in microseconds without committing state.
// Zero elapsed time or an empty reserve returns the current accumulators
// unchanged.
func (p *Pool) CalculatePriceCumulativePair(elapsedMicros uint64) (decimal.Decimal, decimal.Decimal) {
	price0 := p.Price0Cumulative
	price1 := p.Price1Cumulative

	if elapsedMicros == 0 || p.Reserve0.IsZero() || p.Reserve1.IsZero() {
		return price0, price1
	}

	reserve0 := p.Reserve0.Decimal()
	reserve1 := p.Reserve1.Decimal()
	elapsed := decimal.NewFromBigInt(new(big.Int).SetUint64(elapsedMicros), 0)

	price0 = price0.Add(reserve1.Mul(elapsed).DivRound(reserve0, twapDivisionPlaces))
	price1 = price1.Add(reserve0.Mul(elapsed).DivRound(reserve1, twapDivisionPlaces))
	return price0, price1
}

// MintShares settles the protocol fee, then mints the deposit's liquidity to
// the recipient. The fee always settles first so new deposits are not diluted
// by growth that predates them.
func (p *Pool) MintShares(amount0, amount1 amount.Amount, to common.Address) error {
	if amount0.IsZero() || amount1.IsZero() {
		return fmt.Errorf("%w: deposit amounts must be positive", ErrInvalidAmount)
	}
	if err := p.MintFee(); err != nil {
		return err
	}
	liquidity, err := p.CalculateLiquidity(amount0, amount1)
	if err != nil {
		return err
	}
	p.Share.Mint(to, liquidity)
	return nil
}

// SetFeeTo changes the protocol fee recipient. Only the current
// fee_to_setter may call it.
func (p *Pool) SetFeeTo(caller, account common.Address) error {
	if caller != p.FeeToSetter {
		return fmt.Errorf("%w: %s is not the fee setter", ErrUnauthorized, caller.Hex())
	}
	p.FeeTo = account
	return nil
}

// SetFeeToSetter hands fee administration to another account. Only the
// current fee_to_setter may call it.
func (p *Pool) SetFeeToSetter(caller, account common.Address) error {
	if caller != p.FeeToSetter {
		return fmt.Errorf("%w: %s is not the fee setter", ErrUnauthorized, caller.Hex())
	}
	p.FeeToSetter = account
	return nil
}

// Copy returns a deep copy of the pool, including the share ledger.
func (p *Pool) Copy() Pool {
	out := *p
	out.Share = p.Share.Copy()
	if p.Token1 != nil {
		token1 := *p.Token1
		out.Token1 = &token1
	}
	return out
}

// sqrtProduct computes floor(sqrt(a*b)) with a 256-bit intermediate. The
// result of the square root always narrows back into the amount domain.
func sqrtProduct(a, b amount.Amount) (amount.Amount, error) {
	product := new(uint256.Int).Mul(a.U256(), b.U256())
	product.Sqrt(product)
	return amount.FromAttosU256(product)
}

// mulDivFloor computes floor(a*b/d) with a full-width intermediate.
func mulDivFloor(a, b, d amount.Amount) (amount.Amount, error) {
	if d.IsZero() {
		return amount.Zero(), fmt.Errorf("%w: %s * %s / 0", ErrDivisionByZero, a, b)
	}
	quotient, overflow := new(uint256.Int).MulDivOverflow(a.U256(), b.U256(), d.U256())
	if overflow {
		return amount.Zero(), fmt.Errorf("%w: %s * %s / %s", amount.ErrOverflow, a, b, d)
	}
	return amount.FromAttosU256(quotient)
}
