package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"swapPool/internal/amount"
)

// ErrInsufficientFunds rejects a transfer whose source balance cannot cover
// the amount. The attempted amount is left unspent.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Fungible is the external token ledger the pool engine moves balances
// through. A transfer either succeeds atomically or fails with nothing spent;
// any non-success must fail the whole enclosing pool operation.
type Fungible interface {
	Transfer(ctx context.Context, token *common.Address, from, to common.Address, amt amount.Amount) error
	Balance(ctx context.Context, token *common.Address, account common.Address) (amount.Amount, error)
}

// nativeKey stands in for the nil token (the chain's native asset).
var nativeKey = common.Address{}

// InMemory is a process-local fungible ledger for tests. The CLI runs
// without a ledger; token movement belongs to the hosting environment.
type InMemory struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]amount.Amount
}

// NewInMemory returns an empty ledger.
func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[common.Address]map[common.Address]amount.Amount)}
}

func tokenKey(token *common.Address) common.Address {
	if token == nil {
		return nativeKey
	}
	return *token
}

// Deposit credits an account out of thin air. Test and seeding helper; real
// issuance lives outside this repository.
func (l *InMemory) Deposit(token *common.Address, account common.Address, amt amount.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	book := l.book(tokenKey(token))
	sum, err := book[account].Add(amt)
	if err != nil {
		return err
	}
	book[account] = sum
	return nil
}

// Transfer moves amt from one account to another, rejecting the whole move
// when the source balance is short.
func (l *InMemory) Transfer(_ context.Context, token *common.Address, from, to common.Address, amt amount.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	book := l.book(tokenKey(token))
	balance := book[from]
	if balance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, from.Hex(), balance, amt)
	}
	// A self-transfer is a funded no-op; debiting and crediting the same
	// entry would read a stale balance.
	if from == to {
		return nil
	}

	debited, err := balance.Sub(amt)
	if err != nil {
		return err
	}
	credited, err := book[to].Add(amt)
	if err != nil {
		return err
	}
	book[from] = debited
	book[to] = credited
	return nil
}

// Balance returns the account's holdings of token.
func (l *InMemory) Balance(_ context.Context, token *common.Address, account common.Address) (amount.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.book(tokenKey(token))[account], nil
}

func (l *InMemory) book(key common.Address) map[common.Address]amount.Amount {
	book, ok := l.balances[key]
	if !ok {
		book = make(map[common.Address]amount.Amount)
		l.balances[key] = book
	}
	return book
}
