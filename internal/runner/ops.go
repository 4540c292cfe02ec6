package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"swapPool/internal/amount"
	"swapPool/internal/state"
)

// Kind tags an operation record. The set is closed; dispatch rejects
// anything else.
type Kind string

const (
	KindCreate          Kind = "create"
	KindAddLiquidity    Kind = "add_liquidity"
	KindRemoveLiquidity Kind = "remove_liquidity"
	KindSwap            Kind = "swap"
	KindSetFeeTo        Kind = "set_fee_to"
	KindSetFeeToSetter  Kind = "set_fee_to_setter"
	KindFundCallback    Kind = "fund_callback"
)

// Record is one externally ordered operation addressed to the pool.
type Record struct {
	Seq  uint64 `json:"seq"`
	Kind Kind   `json:"kind"`
	// Timestamp is the operation's block timestamp in microseconds.
	Timestamp uint64          `json:"timestamp"`
	Body      json.RawMessage `json:"body"`
}

// CreateBody instantiates the pool.
type CreateBody struct {
	Token0             common.Address  `json:"token_0"`
	Token1             *common.Address `json:"token_1,omitempty"`
	VirtualLiquidity   bool            `json:"virtual_initial_liquidity"`
	Amount0            amount.Amount   `json:"amount_0"`
	Amount1            amount.Amount   `json:"amount_1"`
	PoolFeePercent     uint16          `json:"pool_fee_percent"`
	ProtocolFeePercent uint16          `json:"protocol_fee_percent"`
	Creator            common.Address  `json:"creator"`
}

// AddLiquidityBody deposits both legs, fitted to the reserve ratio.
type AddLiquidityBody struct {
	Amount0Desired amount.Amount  `json:"amount_0_desired"`
	Amount1Desired amount.Amount  `json:"amount_1_desired"`
	Amount0Min     *amount.Amount `json:"amount_0_min,omitempty"`
	Amount1Min     *amount.Amount `json:"amount_1_min,omitempty"`
	To             common.Address `json:"to"`
}

// RemoveLiquidityBody burns shares for their reserve cut.
type RemoveLiquidityBody struct {
	Liquidity amount.Amount  `json:"liquidity"`
	From      common.Address `json:"from"`
}

// SwapBody trades an exact input on one leg.
type SwapBody struct {
	Amount0In amount.Amount  `json:"amount_0_in"`
	Amount1In amount.Amount  `json:"amount_1_in"`
	Trader    common.Address `json:"trader"`
}

// SetFeeBody reassigns fee_to or fee_to_setter.
type SetFeeBody struct {
	Caller  common.Address `json:"caller"`
	Account common.Address `json:"account"`
}

// FundCallbackBody resolves a pending fund request.
type FundCallbackBody struct {
	RequestID uint64           `json:"request_id"`
	Status    state.FundStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
}

// ReadOperations loads a JSONL operation stream, requiring strictly
// increasing sequence numbers. Blank lines are skipped.
func ReadOperations(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open operations: %w", err)
	}
	defer file.Close()

	var records []Record
	var lastSeq uint64

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if record.Kind == "" {
			return nil, fmt.Errorf("line %d: missing kind", lineNo)
		}
		if len(records) > 0 && record.Seq <= lastSeq {
			return nil, fmt.Errorf("line %d: seq %d not after %d", lineNo, record.Seq, lastSeq)
		}
		lastSeq = record.Seq
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read operations: %w", err)
	}
	return records, nil
}
