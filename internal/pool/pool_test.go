package pool

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"swapPool/internal/amount"
)

var (
	tokenA  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	creator = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	alice   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestCreateVirtualCumulativePrices(t *testing.T) {
	p, err := Create(tokenA, nil, true,
		amount.MustParse("1"), amount.MustParse("21.2342"),
		30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !p.Share.TotalSupply.IsZero() {
		t.Fatalf("virtual liquidity minted %s shares", p.Share.TotalSupply)
	}
	if p.Reserve0.Cmp(amount.MustParse("1")) != 0 || p.Reserve1.Cmp(amount.MustParse("21.2342")) != 0 {
		t.Fatalf("reserves %s / %s", p.Reserve0, p.Reserve1)
	}
	if !p.Price0Cumulative.IsZero() || !p.Price1Cumulative.IsZero() {
		t.Fatalf("fresh pool has nonzero accumulators")
	}

	price0, price1 := p.CalculatePriceCumulativePair(1)
	if want := mustDecimal(t, "21.2342"); !price0.Equal(want) {
		t.Fatalf("price_0 after 1us = %s, want %s", price0, want)
	}
	if want := mustDecimal(t, "0.0470938391839579546203765623"); !price1.Equal(want) {
		t.Fatalf("price_1 after 1us = %s, want %s", price1, want)
	}

	price0, price1 = p.CalculatePriceCumulativePair(2)
	if want := mustDecimal(t, "42.4684"); !price0.Equal(want) {
		t.Fatalf("price_0 after 2us = %s, want %s", price0, want)
	}
	if want := mustDecimal(t, "0.0941876783679159092407531247"); !price1.Equal(want) {
		t.Fatalf("price_1 after 2us = %s, want %s", price1, want)
	}
}

func TestCreateMintsSqrtOfProduct(t *testing.T) {
	p, err := Create(tokenA, &tokenB, false,
		amount.MustParse("1"), amount.MustParse("21.2342"),
		30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const wantAttos = "4608058159355196332"
	if got := p.Share.Balance(creator).Attos().String(); got != wantAttos {
		t.Fatalf("creator shares = %s attos, want %s", got, wantAttos)
	}
	if got := p.Share.TotalSupply.Attos().String(); got != wantAttos {
		t.Fatalf("total supply = %s attos, want %s", got, wantAttos)
	}
	if p.FeeTo != creator || p.FeeToSetter != creator {
		t.Fatalf("creator must start as fee_to and fee_to_setter")
	}
}

func TestCreateRejects(t *testing.T) {
	if _, err := Create(tokenA, &tokenA, false, amount.FromAttos(1), amount.FromAttos(1), 30, 5, creator, 0); !errors.Is(err, ErrInvalidPair) {
		t.Fatalf("self pair: got %v", err)
	}
	if _, err := Create(tokenA, &tokenB, false, amount.Zero(), amount.FromAttos(1), 30, 5, creator, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount_0: got %v", err)
	}
	if _, err := Create(tokenA, &tokenB, false, amount.FromAttos(1), amount.Zero(), 30, 5, creator, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount_1: got %v", err)
	}
}

func TestCreateRejectsFeeAtOrAboveBasis(t *testing.T) {
	// A fee rate of 10000 is a 100% fee and anything above it would wrap
	// the fee arithmetic; both are rejected at creation.
	if _, err := Create(tokenA, &tokenB, false, amount.FromAttos(1), amount.FromAttos(1), 10001, 5, creator, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("pool fee above basis: got %v", err)
	}
	if _, err := Create(tokenA, &tokenB, false, amount.FromAttos(1), amount.FromAttos(1), 10000, 5, creator, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("pool fee at basis: got %v", err)
	}
	if _, err := Create(tokenA, &tokenB, false, amount.FromAttos(1), amount.FromAttos(1), 30, 10000, creator, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("protocol fee at basis: got %v", err)
	}
}

func TestCumulativePricesIdleOrEmpty(t *testing.T) {
	p, err := Create(tokenA, nil, true, amount.MustParse("2"), amount.MustParse("8"), 30, 5, creator, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	price0, price1 := p.CalculatePriceCumulativePair(0)
	if !price0.Equal(p.Price0Cumulative) || !price1.Equal(p.Price1Cumulative) {
		t.Fatalf("zero elapsed changed accumulators")
	}

	var empty Pool
	price0, price1 = empty.CalculatePriceCumulativePair(50)
	if !price0.IsZero() || !price1.IsZero() {
		t.Fatalf("empty reserves advanced accumulators: %s / %s", price0, price1)
	}
}

func TestLiquidAdvancesAccumulatorsAtOldPrice(t *testing.T) {
	p, err := Create(tokenA, nil, true, amount.MustParse("1"), amount.MustParse("4"), 30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The deposit changes the ratio, but the 10us window is priced at the
	// pre-deposit reserves 1 and 4.
	if err := p.Liquid(amount.MustParse("3"), amount.MustParse("4"), 10); err != nil {
		t.Fatalf("liquid: %v", err)
	}

	if want := mustDecimal(t, "40"); !p.Price0Cumulative.Equal(want) {
		t.Fatalf("price_0 = %s, want %s", p.Price0Cumulative, want)
	}
	if want := mustDecimal(t, "2.5"); !p.Price1Cumulative.Equal(want) {
		t.Fatalf("price_1 = %s, want %s", p.Price1Cumulative, want)
	}
	if p.Reserve0.Cmp(amount.MustParse("4")) != 0 || p.Reserve1.Cmp(amount.MustParse("8")) != 0 {
		t.Fatalf("reserves %s / %s", p.Reserve0, p.Reserve1)
	}
	if p.BlockTimestamp != 10 {
		t.Fatalf("timestamp %d", p.BlockTimestamp)
	}
}

func TestLiquidRefreshesKLast(t *testing.T) {
	p, err := Create(tokenA, nil, true, amount.MustParse("4"), amount.MustParse("9"), 30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// floor(sqrt(4e18 * 9e18)) = 6e18.
	if p.KLast.Cmp(amount.MustParse("6")) != 0 {
		t.Fatalf("k_last = %s, want 6", p.KLast)
	}

	if err := p.Liquid(amount.MustParse("12"), amount.MustParse("27"), 5); err != nil {
		t.Fatalf("liquid: %v", err)
	}
	// floor(sqrt(16e18 * 36e18)) = 24e18.
	if p.KLast.Cmp(amount.MustParse("24")) != 0 {
		t.Fatalf("k_last = %s, want 24", p.KLast)
	}
}

func TestCalculateLiquidityDividesByPostDepositReserves(t *testing.T) {
	p := Pool{
		Reserve0: amount.FromAttos(100),
		Reserve1: amount.FromAttos(100),
		Share:    NewShare(),
	}
	p.Share.Mint(alice, amount.FromAttos(100))

	// With a pre-deposit divisor this would be 10; the post-deposit
	// convention yields floor(10*100/110) = 9.
	liquidity, err := p.CalculateLiquidity(amount.FromAttos(10), amount.FromAttos(10))
	if err != nil {
		t.Fatalf("calculate liquidity: %v", err)
	}
	if liquidity.Cmp(amount.FromAttos(9)) != 0 {
		t.Fatalf("liquidity = %s attos, want 9", liquidity.Attos())
	}
}

func TestCalculateLiquidityColdPool(t *testing.T) {
	var p Pool
	liquidity, err := p.CalculateLiquidity(amount.FromAttos(4), amount.FromAttos(9))
	if err != nil {
		t.Fatalf("calculate liquidity: %v", err)
	}
	if liquidity.Cmp(amount.FromAttos(6)) != 0 {
		t.Fatalf("cold liquidity = %s attos, want 6", liquidity.Attos())
	}
}

func TestCalculateLiquidityTakesWorseLeg(t *testing.T) {
	p := Pool{
		Reserve0: amount.FromAttos(100),
		Reserve1: amount.FromAttos(200),
		Share:    NewShare(),
	}
	p.Share.Mint(alice, amount.FromAttos(100))

	// Leg 0: floor(50*100/150) = 33. Leg 1: floor(10*100/210) = 4.
	liquidity, err := p.CalculateLiquidity(amount.FromAttos(50), amount.FromAttos(10))
	if err != nil {
		t.Fatalf("calculate liquidity: %v", err)
	}
	if liquidity.Cmp(amount.FromAttos(4)) != 0 {
		t.Fatalf("liquidity = %s attos, want 4", liquidity.Attos())
	}
}

func TestMintFee(t *testing.T) {
	t.Run("disabled by zero k_last", func(t *testing.T) {
		p := Pool{
			Reserve0: amount.FromAttos(1000),
			Reserve1: amount.FromAttos(1000),
			Share:    NewShare(),
			FeeTo:    creator,
		}
		p.Share.Mint(alice, amount.FromAttos(1000))
		if err := p.MintFee(); err != nil {
			t.Fatalf("mint fee: %v", err)
		}
		if !p.Share.Balance(creator).IsZero() {
			t.Fatalf("fee minted with zero k_last")
		}
	})

	t.Run("no growth is a no-op", func(t *testing.T) {
		p, err := Create(tokenA, nil, false, amount.MustParse("100"), amount.MustParse("100"), 30, 5, alice, 0)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		supply := p.Share.TotalSupply
		if err := p.MintFee(); err != nil {
			t.Fatalf("mint fee: %v", err)
		}
		if p.Share.TotalSupply.Cmp(supply) != 0 {
			t.Fatalf("supply moved without growth")
		}
	})

	t.Run("mints a sixth of growth to fee_to", func(t *testing.T) {
		p := Pool{
			Reserve0: amount.FromAttos(4000),
			Reserve1: amount.FromAttos(4000),
			Share:    NewShare(),
			FeeTo:    bob,
			KLast:    amount.FromAttos(2000),
		}
		p.Share.Mint(alice, amount.FromAttos(2000))

		// rootK = 4000, kLast = 2000:
		// liquidity = 2000 * 2000 / (5*4000 + 2000) = 181.
		if err := p.MintFee(); err != nil {
			t.Fatalf("mint fee: %v", err)
		}
		if got := p.Share.Balance(bob); got.Cmp(amount.FromAttos(181)) != 0 {
			t.Fatalf("fee shares = %s attos, want 181", got.Attos())
		}
		if got := p.Share.TotalSupply; got.Cmp(amount.FromAttos(2181)) != 0 {
			t.Fatalf("total supply = %s attos, want 2181", got.Attos())
		}
	})
}

func TestMintSharesSettlesFeeFirst(t *testing.T) {
	p := Pool{
		Reserve0: amount.FromAttos(4000),
		Reserve1: amount.FromAttos(4000),
		Share:    NewShare(),
		FeeTo:    bob,
		KLast:    amount.FromAttos(2000),
	}
	p.Share.Mint(alice, amount.FromAttos(2000))

	// The protocol fee (181 shares to bob) must dilute the deposit's quote:
	// supply becomes 2181 before liquidity is computed.
	if err := p.MintShares(amount.FromAttos(400), amount.FromAttos(400), alice); err != nil {
		t.Fatalf("mint shares: %v", err)
	}

	if got := p.Share.Balance(bob); got.Cmp(amount.FromAttos(181)) != 0 {
		t.Fatalf("fee shares = %s attos, want 181", got.Attos())
	}
	// floor(400 * 2181 / 4400) = 198 minted to alice on top of 2000.
	if got := p.Share.Balance(alice); got.Cmp(amount.FromAttos(2198)) != 0 {
		t.Fatalf("alice shares = %s attos, want 2198", got.Attos())
	}
}

func TestSetFeeAuthorization(t *testing.T) {
	p, err := Create(tokenA, nil, false, amount.MustParse("1"), amount.MustParse("1"), 30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := p.SetFeeTo(alice, alice); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-setter changed fee_to: %v", err)
	}
	if err := p.SetFeeTo(creator, alice); err != nil {
		t.Fatalf("set fee_to: %v", err)
	}
	if p.FeeTo != alice {
		t.Fatalf("fee_to = %s", p.FeeTo.Hex())
	}

	if err := p.SetFeeToSetter(creator, bob); err != nil {
		t.Fatalf("set fee_to_setter: %v", err)
	}
	if err := p.SetFeeTo(creator, creator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old setter still authorized: %v", err)
	}
	if err := p.SetFeeTo(bob, creator); err != nil {
		t.Fatalf("new setter rejected: %v", err)
	}
}

func TestCopyIsDeep(t *testing.T) {
	token1 := tokenB
	p, err := Create(tokenA, &token1, false, amount.MustParse("5"), amount.MustParse("5"), 30, 5, creator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clone := p.Copy()
	clone.Share.Mint(alice, amount.FromAttos(77))
	*clone.Token1 = tokenA

	if !p.Share.Balance(alice).IsZero() {
		t.Fatalf("copy shares aliased")
	}
	if *p.Token1 != tokenB {
		t.Fatalf("copy token_1 aliased")
	}
}
