package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"swapPool/internal/amount"
)

// FundStatus is the lifecycle of an asynchronous funding operation. A request
// stays pending until exactly one terminal update arrives; there is no
// automatic timeout or retry.
type FundStatus string

const (
	FundPending   FundStatus = "pending"
	FundCompleted FundStatus = "completed"
	FundFailed    FundStatus = "failed"
)

// Valid reports whether s is a known status.
func (s FundStatus) Valid() bool {
	switch s {
	case FundPending, FundCompleted, FundFailed:
		return true
	}
	return false
}

// FundRequest correlates a cross-boundary funding message with its later
// callback. Records are kept for audit and never implicitly deleted.
type FundRequest struct {
	Token   *common.Address `json:"token,omitempty"`
	Amount0 amount.Amount   `json:"amount_0"`
	Amount1 amount.Amount   `json:"amount_1"`
	Account common.Address  `json:"account"`
	Status  FundStatus      `json:"status"`
	Error   string          `json:"error,omitempty"`
	// CreatedAt is the operation timestamp in microseconds.
	CreatedAt uint64 `json:"created_at"`
}

// firstTransferID seeds the fund-request id counter.
const firstTransferID = 1000

// CreateFundRequest stores a new pending record and returns its id.
func (s *PoolState) CreateFundRequest(request FundRequest) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if request.Status == "" {
		request.Status = FundPending
	}
	id := s.nextTransferID
	s.nextTransferID++
	s.fundRequests[id] = request
	return id
}

// FundRequest looks up a record by id.
func (s *PoolState) FundRequest(id uint64) (FundRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.fundRequests[id]
	if !ok {
		return FundRequest{}, fmt.Errorf("%w: %d", ErrUnknownFundRequest, id)
	}
	return request, nil
}

// UpdateFundRequest overwrites the status (and failure reason) of an existing
// record. Unknown ids are rejected.
func (s *PoolState) UpdateFundRequest(id uint64, status FundStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFundStatus, status)
	}
	request, ok := s.fundRequests[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFundRequest, id)
	}
	request.Status = status
	request.Error = reason
	s.fundRequests[id] = request
	return nil
}

// FundRequests returns a copy of every tracked record keyed by id.
func (s *PoolState) FundRequests() map[uint64]FundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint64]FundRequest, len(s.fundRequests))
	for id, request := range s.fundRequests {
		out[id] = request
	}
	return out
}
