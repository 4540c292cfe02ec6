package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"swapPool/internal/amount"
)

// feeBasis is the denominator for fee rates expressed in hundredths of a
// percent: a PoolFeePercent of 30 charges 30/10000 = 0.30%.
const feeBasis = 10000

// CalculateSwapAmount1 quotes the token_1 output for an exact token_0 input.
// The pool fee is deducted from the input leg before the constant-product
// formula applies; the result is floored so the invariant never decreases
// net of fees.
func (p *Pool) CalculateSwapAmount1(amount0In amount.Amount) (amount.Amount, error) {
	return p.swapOut(amount0In, p.Reserve0, p.Reserve1)
}

// CalculateSwapAmount0 quotes the token_0 output for an exact token_1 input.
func (p *Pool) CalculateSwapAmount0(amount1In amount.Amount) (amount.Amount, error) {
	return p.swapOut(amount1In, p.Reserve1, p.Reserve0)
}

// swapOut computes reserveOut*inAfterFee / (reserveIn*basis + inAfterFee)
// where inAfterFee = amountIn*(basis-fee), all with wide intermediates.
func (p *Pool) swapOut(amountIn, reserveIn, reserveOut amount.Amount) (amount.Amount, error) {
	if amountIn.IsZero() {
		return amount.Zero(), fmt.Errorf("%w: swap input must be positive", ErrInvalidAmount)
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return amount.Zero(), fmt.Errorf("%w: empty reserves", ErrInsufficientLiquidity)
	}
	if uint64(p.PoolFeePercent) >= feeBasis {
		return amount.Zero(), fmt.Errorf("%w: fee rate %d at or above basis", ErrInvalidAmount, p.PoolFeePercent)
	}

	inAfterFee := new(uint256.Int).Mul(amountIn.U256(), uint256.NewInt(feeBasis-uint64(p.PoolFeePercent)))
	denominator := new(uint256.Int).Mul(reserveIn.U256(), uint256.NewInt(feeBasis))
	if _, overflow := denominator.AddOverflow(denominator, inAfterFee); overflow {
		return amount.Zero(), fmt.Errorf("%w: swap denominator", amount.ErrOverflow)
	}

	out, overflow := new(uint256.Int).MulDivOverflow(reserveOut.U256(), inAfterFee, denominator)
	if overflow {
		return amount.Zero(), fmt.Errorf("%w: swap output", amount.ErrOverflow)
	}
	return amount.FromAttosU256(out)
}

// CalculateAdjustedAmountPair completes a requested output with the input
// the other leg must supply. Exactly one of amount0Out and amount1Out must be
// positive; the returned pair echoes the requested output and carries the
// required input, rounded up so the trade can never under-pay.
func (p *Pool) CalculateAdjustedAmountPair(amount0Out, amount1Out amount.Amount) (amount.Amount, amount.Amount, error) {
	if amount0Out.IsZero() == amount1Out.IsZero() {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: exactly one output must be positive", ErrInvalidAmount)
	}

	if !amount0Out.IsZero() {
		amount1In, err := p.swapIn(amount0Out, p.Reserve1, p.Reserve0)
		if err != nil {
			return amount.Zero(), amount.Zero(), err
		}
		return amount0Out, amount1In, nil
	}

	amount0In, err := p.swapIn(amount1Out, p.Reserve0, p.Reserve1)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	return amount0In, amount1Out, nil
}

// swapIn computes the input needed for an exact output:
// ceil(reserveIn*amountOut*basis / ((reserveOut-amountOut)*(basis-fee))).
func (p *Pool) swapIn(amountOut, reserveIn, reserveOut amount.Amount) (amount.Amount, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return amount.Zero(), fmt.Errorf("%w: empty reserves", ErrInsufficientLiquidity)
	}
	if uint64(p.PoolFeePercent) >= feeBasis {
		return amount.Zero(), fmt.Errorf("%w: fee rate %d at or above basis", ErrInvalidAmount, p.PoolFeePercent)
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return amount.Zero(), fmt.Errorf("%w: output %s exceeds reserve %s", ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	remaining, err := reserveOut.Sub(amountOut)
	if err != nil {
		return amount.Zero(), err
	}

	numeratorFactor := new(uint256.Int).Mul(amountOut.U256(), uint256.NewInt(feeBasis))
	denominator := new(uint256.Int).Mul(remaining.U256(), uint256.NewInt(feeBasis-uint64(p.PoolFeePercent)))

	quotient, overflow := new(uint256.Int).MulDivOverflow(reserveIn.U256(), numeratorFactor, denominator)
	if overflow {
		return amount.Zero(), fmt.Errorf("%w: swap input", amount.ErrOverflow)
	}

	floor, err := amount.FromAttosU256(quotient)
	if err != nil {
		return amount.Zero(), err
	}
	return floor.Add(amount.FromAttos(1))
}

// TryCalculateSwapAmountPair fits a desired deposit to the current reserve
// ratio. On a cold pool the desired amounts pass through unchanged; otherwise
// one leg is scaled down to match the ratio, and optional minimums reject the
// quote when the scaled leg falls short.
func (p *Pool) TryCalculateSwapAmountPair(
	desired0, desired1 amount.Amount,
	min0, min1 *amount.Amount,
) (amount.Amount, amount.Amount, error) {
	if desired0.IsZero() || desired1.IsZero() {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: desired amounts must be positive", ErrInvalidAmount)
	}
	if p.Reserve0.IsZero() && p.Reserve1.IsZero() {
		return desired0, desired1, nil
	}
	if p.Reserve0.IsZero() || p.Reserve1.IsZero() {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: one-sided reserves", ErrInsufficientLiquidity)
	}

	// optimal1 = desired0 * reserve1 / reserve0, compared wide so an
	// out-of-range intermediate switches legs instead of failing.
	optimal1 := new(uint256.Int).Mul(desired0.U256(), p.Reserve1.U256())
	optimal1.Div(optimal1, p.Reserve0.U256())

	if optimal1.Cmp(desired1.U256()) <= 0 {
		amount1, err := amount.FromAttosU256(optimal1)
		if err != nil {
			return amount.Zero(), amount.Zero(), err
		}
		if min1 != nil && amount1.Cmp(*min1) < 0 {
			return amount.Zero(), amount.Zero(), fmt.Errorf("%w: amount_1 %s below minimum %s", ErrMinimumNotMet, amount1, *min1)
		}
		return desired0, amount1, nil
	}

	optimal0 := new(uint256.Int).Mul(desired1.U256(), p.Reserve0.U256())
	optimal0.Div(optimal0, p.Reserve1.U256())

	if optimal0.Cmp(desired0.U256()) > 0 {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: desired amounts off ratio", ErrInvalidAmount)
	}
	amount0, err := amount.FromAttosU256(optimal0)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	if min0 != nil && amount0.Cmp(*min0) < 0 {
		return amount.Zero(), amount.Zero(), fmt.Errorf("%w: amount_0 %s below minimum %s", ErrMinimumNotMet, amount0, *min0)
	}
	return amount0, desired1, nil
}
