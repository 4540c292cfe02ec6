package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"swapPool/internal/amount"
)

// Swap executes an exact-input trade against the reserves. Exactly one of
// amount0In and amount1In must be positive; the quoted output leaves the pool
// and the reserve update runs with the input already counted in, so the
// constant product never decreases net of fees.
func (p *Pool) Swap(amount0In, amount1In amount.Amount, timestampMicros uint64) (amount.Amount, amount.Amount, error) {
	if amount0In.IsZero() == amount1In.IsZero() {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: exactly one input must be positive", ErrInvalidAmount)
	}

	var amount0Out, amount1Out amount.Amount
	var err error
	if !amount0In.IsZero() {
		amount1Out, err = p.CalculateSwapAmount1(amount0In)
	} else {
		amount0Out, err = p.CalculateSwapAmount0(amount1In)
	}
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}

	balance0, err := p.Reserve0.Add(amount0In)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	balance0, err = balance0.Sub(amount0Out)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	balance1, err := p.Reserve1.Add(amount1In)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	balance1, err = balance1.Sub(amount1Out)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}

	if err := p.settle(balance0, balance1, timestampMicros); err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	return amount0Out, amount1Out, nil
}

// BurnShares redeems liquidity for its proportional cut of both reserves.
// The protocol fee settles first, the caller-side guard rejects burns above
// the holder's balance before the ledger's saturating burn runs, and the
// reserves are settled down by the withdrawn amounts.
func (p *Pool) BurnShares(liquidity amount.Amount, from common.Address, timestampMicros uint64) (amount.Amount, amount.Amount, error) {
	if liquidity.IsZero() {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: liquidity must be positive", ErrInvalidAmount)
	}
	if liquidity.Cmp(p.Share.Balance(from)) > 0 {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: %s owns %s shares, burn of %s rejected",
			ErrInsufficientBalance, from.Hex(), p.Share.Balance(from), liquidity)
	}

	if err := p.MintFee(); err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	if p.Share.TotalSupply.IsZero() {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: no shares outstanding", ErrInsufficientLiquidity)
	}

	amount0, err := mulDivFloor(liquidity, p.Reserve0, p.Share.TotalSupply)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	amount1, err := mulDivFloor(liquidity, p.Reserve1, p.Share.TotalSupply)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	if amount0.IsZero() || amount1.IsZero() {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: burn worth zero on one leg", ErrInsufficientLiquidity)
	}

	balance0, err := p.Reserve0.Sub(amount0)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	balance1, err := p.Reserve1.Sub(amount1)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}

	p.Share.Burn(from, liquidity)
	if err := p.settle(balance0, balance1, timestampMicros); err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	return amount0, amount1, nil
}
