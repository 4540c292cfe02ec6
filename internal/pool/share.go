package pool

import (
	"github.com/ethereum/go-ethereum/common"

	"swapPool/internal/amount"
)

// Share tracks proportional liquidity ownership for one pool: a total supply
// and per-account balances. The sum of all balances always equals TotalSupply.
type Share struct {
	TotalSupply amount.Amount                    `json:"total_supply"`
	Shares      map[common.Address]amount.Amount `json:"shares"`
}

// NewShare returns an empty ledger.
func NewShare() Share {
	return Share{Shares: make(map[common.Address]amount.Amount)}
}

// Balance returns the shares owned by account, zero if none.
func (s *Share) Balance(account common.Address) amount.Amount {
	return s.Shares[account]
}

// Mint credits amount to an account. Both the account balance and the total
// supply saturate at the representable cap instead of failing; sufficiency
// checks belong to the engine, not the ledger.
func (s *Share) Mint(to common.Address, amt amount.Amount) {
	if s.Shares == nil {
		s.Shares = make(map[common.Address]amount.Amount)
	}
	s.TotalSupply = s.TotalSupply.SaturatingAdd(amt)
	s.Shares[to] = s.Shares[to].SaturatingAdd(amt)
}

// Burn debits amount from an account, flooring both the balance and the total
// supply at zero. The account entry is kept at zero rather than deleted.
func (s *Share) Burn(from common.Address, amt amount.Amount) {
	if s.Shares == nil {
		s.Shares = make(map[common.Address]amount.Amount)
	}
	s.TotalSupply = s.TotalSupply.SaturatingSub(amt)
	s.Shares[from] = s.Shares[from].SaturatingSub(amt)
}

// Copy returns a deep copy of the ledger.
func (s *Share) Copy() Share {
	out := Share{TotalSupply: s.TotalSupply, Shares: make(map[common.Address]amount.Amount, len(s.Shares))}
	for account, amt := range s.Shares {
		out.Shares[account] = amt
	}
	return out
}
