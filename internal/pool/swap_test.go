package pool

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"swapPool/internal/amount"
)

func TestSwapExactInput(t *testing.T) {
	p := quotePool(1000, 1000)

	kBefore := new(uint256.Int).Mul(p.Reserve0.U256(), p.Reserve1.U256())

	amount0Out, amount1Out, err := p.Swap(amount.FromAttos(100), amount.Zero(), 7)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !amount0Out.IsZero() || amount1Out.Cmp(amount.FromAttos(90)) != 0 {
		t.Fatalf("outputs = %s / %s attos, want 0 / 90", amount0Out.Attos(), amount1Out.Attos())
	}
	if p.Reserve0.Cmp(amount.FromAttos(1100)) != 0 || p.Reserve1.Cmp(amount.FromAttos(910)) != 0 {
		t.Fatalf("reserves = %s / %s attos", p.Reserve0.Attos(), p.Reserve1.Attos())
	}
	if p.BlockTimestamp != 7 {
		t.Fatalf("timestamp %d", p.BlockTimestamp)
	}

	kAfter := new(uint256.Int).Mul(p.Reserve0.U256(), p.Reserve1.U256())
	if kAfter.Lt(kBefore) {
		t.Fatalf("constant product decreased: %s -> %s", kBefore.Dec(), kAfter.Dec())
	}
}

func TestSwapOppositeLeg(t *testing.T) {
	p := quotePool(1000, 1000)

	amount0Out, amount1Out, err := p.Swap(amount.Zero(), amount.FromAttos(100), 7)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if amount0Out.Cmp(amount.FromAttos(90)) != 0 || !amount1Out.IsZero() {
		t.Fatalf("outputs = %s / %s attos, want 90 / 0", amount0Out.Attos(), amount1Out.Attos())
	}
	if p.Reserve0.Cmp(amount.FromAttos(910)) != 0 || p.Reserve1.Cmp(amount.FromAttos(1100)) != 0 {
		t.Fatalf("reserves = %s / %s attos", p.Reserve0.Attos(), p.Reserve1.Attos())
	}
}

func TestSwapZeroFeePreservesProduct(t *testing.T) {
	p := quotePool(1000, 1000)
	p.PoolFeePercent = 0

	kBefore := new(uint256.Int).Mul(p.Reserve0.U256(), p.Reserve1.U256())

	// 1000 in against 1000/1000 divides exactly: out = 1000*1000/2000 = 500.
	_, amount1Out, err := p.Swap(amount.FromAttos(1000), amount.Zero(), 3)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if amount1Out.Cmp(amount.FromAttos(500)) != 0 {
		t.Fatalf("output = %s attos, want 500", amount1Out.Attos())
	}

	kAfter := new(uint256.Int).Mul(p.Reserve0.U256(), p.Reserve1.U256())
	if kAfter.Cmp(kBefore) != 0 {
		t.Fatalf("zero-fee swap changed the product: %s -> %s", kBefore.Dec(), kAfter.Dec())
	}
}

func TestSwapRejectsBadInputShape(t *testing.T) {
	p := quotePool(1000, 1000)

	if _, _, err := p.Swap(amount.Zero(), amount.Zero(), 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("no input: got %v", err)
	}
	if _, _, err := p.Swap(amount.FromAttos(1), amount.FromAttos(1), 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("both inputs: got %v", err)
	}
	if p.Reserve0.Cmp(amount.FromAttos(1000)) != 0 || p.Reserve1.Cmp(amount.FromAttos(1000)) != 0 {
		t.Fatalf("rejected swap mutated reserves")
	}
}

func TestBurnSharesProportional(t *testing.T) {
	p, err := Create(tokenA, nil, false, amount.MustParse("4"), amount.MustParse("9"), 30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Supply is floor(sqrt(4e18*9e18)) = 6e18 shares.

	amount0, amount1, err := p.BurnShares(amount.MustParse("3"), creator, 5)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if amount0.Cmp(amount.MustParse("2")) != 0 || amount1.Cmp(amount.MustParse("4.5")) != 0 {
		t.Fatalf("withdrawn = %s / %s, want 2 / 4.5", amount0, amount1)
	}
	if p.Reserve0.Cmp(amount.MustParse("2")) != 0 || p.Reserve1.Cmp(amount.MustParse("4.5")) != 0 {
		t.Fatalf("reserves = %s / %s", p.Reserve0, p.Reserve1)
	}
	if p.Share.TotalSupply.Cmp(amount.MustParse("3")) != 0 {
		t.Fatalf("supply = %s, want 3", p.Share.TotalSupply)
	}
	if p.Share.Balance(creator).Cmp(amount.MustParse("3")) != 0 {
		t.Fatalf("creator shares = %s, want 3", p.Share.Balance(creator))
	}
}

func TestBurnSharesRejects(t *testing.T) {
	p, err := Create(tokenA, nil, false, amount.MustParse("4"), amount.MustParse("9"), 30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := p.BurnShares(amount.Zero(), creator, 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero burn: got %v", err)
	}
	if _, _, err := p.BurnShares(amount.MustParse("7"), creator, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over-balance burn: got %v", err)
	}
	if _, _, err := p.BurnShares(amount.MustParse("1"), alice, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("stranger burn: got %v", err)
	}
}

func TestBurnSharesRejectsZeroLeg(t *testing.T) {
	p := Pool{
		Reserve0: amount.FromAttos(1),
		Reserve1: amount.FromAttos(1000000),
		Share:    NewShare(),
	}
	p.Share.Mint(alice, amount.FromAttos(1000))

	if _, _, err := p.BurnShares(amount.FromAttos(500), alice, 1); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("zero-leg burn: got %v", err)
	}
	if p.Share.Balance(alice).Cmp(amount.FromAttos(1000)) != 0 {
		t.Fatalf("rejected burn changed shares")
	}
}
