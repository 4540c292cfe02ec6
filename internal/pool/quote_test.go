package pool

import (
	"errors"
	"testing"

	"swapPool/internal/amount"
)

func quotePool(reserve0, reserve1 uint64) Pool {
	return Pool{
		Reserve0:       amount.FromAttos(reserve0),
		Reserve1:       amount.FromAttos(reserve1),
		PoolFeePercent: 30,
		Share:          NewShare(),
	}
}

func TestCalculateSwapAmount(t *testing.T) {
	p := quotePool(1000, 1000)

	// inAfterFee = 100*9970; out = floor(1000*997000 / (1000*10000+997000)) = 90.
	out, err := p.CalculateSwapAmount1(amount.FromAttos(100))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.Cmp(amount.FromAttos(90)) != 0 {
		t.Fatalf("amount_1 out = %s attos, want 90", out.Attos())
	}

	out, err = p.CalculateSwapAmount0(amount.FromAttos(100))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.Cmp(amount.FromAttos(90)) != 0 {
		t.Fatalf("amount_0 out = %s attos, want 90", out.Attos())
	}
}

func TestCalculateSwapAmountRejects(t *testing.T) {
	p := quotePool(1000, 1000)
	if _, err := p.CalculateSwapAmount1(amount.Zero()); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero input: got %v", err)
	}

	var empty Pool
	empty.PoolFeePercent = 30
	if _, err := empty.CalculateSwapAmount1(amount.FromAttos(10)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("empty reserves: got %v", err)
	}
}

func TestQuoteRejectsFeeAtOrAboveBasis(t *testing.T) {
	// Pools constructed outside Create must not let an out-of-range fee
	// wrap into a near-total drain of the opposite reserve.
	p := quotePool(1000, 1000)
	p.PoolFeePercent = 10001
	if _, err := p.CalculateSwapAmount1(amount.FromAttos(100)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("wrapping fee quoted an output: got %v", err)
	}

	p.PoolFeePercent = 10000
	if _, err := p.CalculateSwapAmount1(amount.FromAttos(100)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("fee at basis quoted an output: got %v", err)
	}
	if _, _, err := p.CalculateAdjustedAmountPair(amount.FromAttos(90), amount.Zero()); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("fee at basis quoted an input: got %v", err)
	}
}

func TestCalculateAdjustedAmountPair(t *testing.T) {
	p := quotePool(1000, 1000)

	// Required input for 90 out: ceil(1000*90*10000 / (910*9970)) = 100.
	amount0, amount1, err := p.CalculateAdjustedAmountPair(amount.FromAttos(90), amount.Zero())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if amount0.Cmp(amount.FromAttos(90)) != 0 || amount1.Cmp(amount.FromAttos(100)) != 0 {
		t.Fatalf("pair = %s / %s attos, want 90 / 100", amount0.Attos(), amount1.Attos())
	}

	// Round-up means feeding the quoted input back covers the output.
	out, err := p.CalculateSwapAmount0(amount1)
	if err != nil {
		t.Fatalf("verify quote: %v", err)
	}
	if out.Cmp(amount.FromAttos(90)) < 0 {
		t.Fatalf("quoted input buys only %s attos", out.Attos())
	}
}

func TestCalculateAdjustedAmountPairRejects(t *testing.T) {
	p := quotePool(1000, 1000)

	if _, _, err := p.CalculateAdjustedAmountPair(amount.Zero(), amount.Zero()); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("no output: got %v", err)
	}
	if _, _, err := p.CalculateAdjustedAmountPair(amount.FromAttos(1), amount.FromAttos(1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("both outputs: got %v", err)
	}
	if _, _, err := p.CalculateAdjustedAmountPair(amount.FromAttos(1000), amount.Zero()); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("output drains reserve: got %v", err)
	}
}

func TestTryCalculateSwapAmountPair(t *testing.T) {
	p := quotePool(1000, 2000)

	t.Run("scales the over-supplied leg down", func(t *testing.T) {
		amount0, amount1, err := p.TryCalculateSwapAmountPair(amount.FromAttos(10), amount.FromAttos(30), nil, nil)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if amount0.Cmp(amount.FromAttos(10)) != 0 || amount1.Cmp(amount.FromAttos(20)) != 0 {
			t.Fatalf("pair = %s / %s attos, want 10 / 20", amount0.Attos(), amount1.Attos())
		}
	})

	t.Run("scales the other leg when desired_1 is short", func(t *testing.T) {
		amount0, amount1, err := p.TryCalculateSwapAmountPair(amount.FromAttos(10), amount.FromAttos(10), nil, nil)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if amount0.Cmp(amount.FromAttos(5)) != 0 || amount1.Cmp(amount.FromAttos(10)) != 0 {
			t.Fatalf("pair = %s / %s attos, want 5 / 10", amount0.Attos(), amount1.Attos())
		}
	})

	t.Run("minimum rejects a scaled leg", func(t *testing.T) {
		min1 := amount.FromAttos(21)
		_, _, err := p.TryCalculateSwapAmountPair(amount.FromAttos(10), amount.FromAttos(30), nil, &min1)
		if !errors.Is(err, ErrMinimumNotMet) {
			t.Fatalf("expected minimum rejection, got %v", err)
		}
	})

	t.Run("cold pool passes desired through", func(t *testing.T) {
		var cold Pool
		amount0, amount1, err := cold.TryCalculateSwapAmountPair(amount.FromAttos(7), amount.FromAttos(11), nil, nil)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if amount0.Cmp(amount.FromAttos(7)) != 0 || amount1.Cmp(amount.FromAttos(11)) != 0 {
			t.Fatalf("cold pair = %s / %s attos", amount0.Attos(), amount1.Attos())
		}
	})

	t.Run("one-sided reserves reject", func(t *testing.T) {
		oneSided := Pool{Reserve0: amount.FromAttos(5)}
		_, _, err := oneSided.TryCalculateSwapAmountPair(amount.FromAttos(1), amount.FromAttos(1), nil, nil)
		if !errors.Is(err, ErrInsufficientLiquidity) {
			t.Fatalf("expected liquidity rejection, got %v", err)
		}
	})

	t.Run("zero desired rejects", func(t *testing.T) {
		_, _, err := p.TryCalculateSwapAmountPair(amount.Zero(), amount.FromAttos(1), nil, nil)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected amount rejection, got %v", err)
		}
	})
}
