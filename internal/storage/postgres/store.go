package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"swapPool/internal/amount"
	"swapPool/internal/pool"
	"swapPool/internal/state"
	"swapPool/internal/storage"
)

// Store provides Postgres persistence for one pool state container. All
// amounts and accumulators are stored as unit-scale numeric text so the
// database never truncates them.
type Store struct {
	poolID string
	db     *pgxpool.Pool
}

// NewStore connects to Postgres. poolID distinguishes this pool's rows from
// other pools sharing the same database.
func NewStore(ctx context.Context, dsn, poolID string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if poolID == "" {
		return nil, fmt.Errorf("pool id is required")
	}
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{poolID: poolID, db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// SaveSnapshot upserts the pool row, every share balance, every fund request,
// and the next-id counter in one batch on a single connection.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot state.Snapshot) error {
	p := snapshot.Pool

	var token1 *string
	if p.Token1 != nil {
		hex := p.Token1.Hex()
		token1 = &hex
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO pools (
			pool_id, token_0, token_1, reserve_0, reserve_1,
			pool_fee_percent, protocol_fee_percent, fee_to, fee_to_setter,
			price_0_cumulative, price_1_cumulative, k_last, block_timestamp,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
		ON CONFLICT (pool_id)
		DO UPDATE SET
			reserve_0 = EXCLUDED.reserve_0,
			reserve_1 = EXCLUDED.reserve_1,
			pool_fee_percent = EXCLUDED.pool_fee_percent,
			protocol_fee_percent = EXCLUDED.protocol_fee_percent,
			fee_to = EXCLUDED.fee_to,
			fee_to_setter = EXCLUDED.fee_to_setter,
			price_0_cumulative = EXCLUDED.price_0_cumulative,
			price_1_cumulative = EXCLUDED.price_1_cumulative,
			k_last = EXCLUDED.k_last,
			block_timestamp = EXCLUDED.block_timestamp,
			updated_at = now()
	`,
		s.poolID,
		p.Token0.Hex(),
		token1,
		p.Reserve0.String(),
		p.Reserve1.String(),
		int32(p.PoolFeePercent),
		int32(p.ProtocolFeePercent),
		p.FeeTo.Hex(),
		p.FeeToSetter.Hex(),
		p.Price0Cumulative.String(),
		p.Price1Cumulative.String(),
		p.KLast.String(),
		int64(p.BlockTimestamp),
	)

	for account, shares := range p.Share.Shares {
		batch.Queue(`
			INSERT INTO pool_shares (pool_id, account, shares, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (pool_id, account)
			DO UPDATE SET shares = EXCLUDED.shares, updated_at = now()
		`, s.poolID, account.Hex(), shares.String())
	}

	for id, request := range snapshot.FundRequests {
		var token *string
		if request.Token != nil {
			hex := request.Token.Hex()
			token = &hex
		}
		batch.Queue(`
			INSERT INTO fund_requests (
				pool_id, request_id, token, amount_0, amount_1,
				account, status, error, created_at_micros, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
			ON CONFLICT (pool_id, request_id)
			DO UPDATE SET status = EXCLUDED.status, error = EXCLUDED.error, updated_at = now()
		`,
			s.poolID,
			int64(id),
			token,
			request.Amount0.String(),
			request.Amount1.String(),
			request.Account.Hex(),
			string(request.Status),
			request.Error,
			int64(request.CreatedAt),
		)
	}

	batch.Queue(`
		INSERT INTO pool_state (pool_id, next_transfer_id, updated_at)
		VALUES ($1,$2,now())
		ON CONFLICT (pool_id)
		DO UPDATE SET next_transfer_id = EXCLUDED.next_transfer_id, updated_at = now()
	`, s.poolID, int64(snapshot.NextTransferID))

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	return nil
}

// LoadSnapshot rebuilds the state container from its rows; the second return
// is false when the pool has never been saved.
func (s *Store) LoadSnapshot(ctx context.Context) (state.Snapshot, bool, error) {
	var (
		token0Hex string
		token1Hex *string
		reserve0  string
		reserve1  string
		poolFee   int32
		protoFee  int32
		feeTo     string
		feeSetter string
		price0    string
		price1    string
		kLast     string
		blockTS   int64
	)

	row := s.db.QueryRow(ctx, `
		SELECT token_0, token_1, reserve_0, reserve_1,
			pool_fee_percent, protocol_fee_percent, fee_to, fee_to_setter,
			price_0_cumulative, price_1_cumulative, k_last, block_timestamp
		FROM pools WHERE pool_id=$1
	`, s.poolID)
	if err := row.Scan(&token0Hex, &token1Hex, &reserve0, &reserve1,
		&poolFee, &protoFee, &feeTo, &feeSetter,
		&price0, &price1, &kLast, &blockTS); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return state.Snapshot{}, false, nil
		}
		return state.Snapshot{}, false, fmt.Errorf("load pool: %w", err)
	}

	p := pool.Pool{
		Token0:             common.HexToAddress(token0Hex),
		PoolFeePercent:     uint16(poolFee),
		ProtocolFeePercent: uint16(protoFee),
		Share:              pool.NewShare(),
		FeeTo:              common.HexToAddress(feeTo),
		FeeToSetter:        common.HexToAddress(feeSetter),
		BlockTimestamp:     uint64(blockTS),
	}
	if token1Hex != nil {
		token1 := common.HexToAddress(*token1Hex)
		p.Token1 = &token1
	}

	var err error
	if p.Reserve0, err = amount.Parse(reserve0); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("parse reserve_0: %w", err)
	}
	if p.Reserve1, err = amount.Parse(reserve1); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("parse reserve_1: %w", err)
	}
	if p.KLast, err = amount.Parse(kLast); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("parse k_last: %w", err)
	}
	if p.Price0Cumulative, err = decimal.NewFromString(price0); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("parse price_0_cumulative: %w", err)
	}
	if p.Price1Cumulative, err = decimal.NewFromString(price1); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("parse price_1_cumulative: %w", err)
	}

	totalSupply := amount.Zero()
	shareRows, err := s.db.Query(ctx, `SELECT account, shares FROM pool_shares WHERE pool_id=$1`, s.poolID)
	if err != nil {
		return state.Snapshot{}, false, fmt.Errorf("load shares: %w", err)
	}
	defer shareRows.Close()
	for shareRows.Next() {
		var accountHex, sharesText string
		if err := shareRows.Scan(&accountHex, &sharesText); err != nil {
			return state.Snapshot{}, false, fmt.Errorf("scan share: %w", err)
		}
		shares, err := amount.Parse(sharesText)
		if err != nil {
			return state.Snapshot{}, false, fmt.Errorf("parse share amount: %w", err)
		}
		p.Share.Shares[common.HexToAddress(accountHex)] = shares
		totalSupply = totalSupply.SaturatingAdd(shares)
	}
	if err := shareRows.Err(); err != nil {
		return state.Snapshot{}, false, err
	}
	p.Share.TotalSupply = totalSupply

	requests := make(map[uint64]state.FundRequest)
	fundRows, err := s.db.Query(ctx, `
		SELECT request_id, token, amount_0, amount_1, account, status, error, created_at_micros
		FROM fund_requests WHERE pool_id=$1
	`, s.poolID)
	if err != nil {
		return state.Snapshot{}, false, fmt.Errorf("load fund requests: %w", err)
	}
	defer fundRows.Close()
	for fundRows.Next() {
		var (
			id        int64
			tokenHex  *string
			a0Text    string
			a1Text    string
			acctHex   string
			status    string
			reason    string
			createdAt int64
		)
		if err := fundRows.Scan(&id, &tokenHex, &a0Text, &a1Text, &acctHex, &status, &reason, &createdAt); err != nil {
			return state.Snapshot{}, false, fmt.Errorf("scan fund request: %w", err)
		}
		request := state.FundRequest{
			Account:   common.HexToAddress(acctHex),
			Status:    state.FundStatus(status),
			Error:     reason,
			CreatedAt: uint64(createdAt),
		}
		if tokenHex != nil {
			token := common.HexToAddress(*tokenHex)
			request.Token = &token
		}
		if request.Amount0, err = amount.Parse(a0Text); err != nil {
			return state.Snapshot{}, false, fmt.Errorf("parse fund amount_0: %w", err)
		}
		if request.Amount1, err = amount.Parse(a1Text); err != nil {
			return state.Snapshot{}, false, fmt.Errorf("parse fund amount_1: %w", err)
		}
		requests[uint64(id)] = request
	}
	if err := fundRows.Err(); err != nil {
		return state.Snapshot{}, false, err
	}

	var nextTransferID int64
	row = s.db.QueryRow(ctx, `SELECT next_transfer_id FROM pool_state WHERE pool_id=$1`, s.poolID)
	if err := row.Scan(&nextTransferID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return state.Snapshot{}, false, fmt.Errorf("load state counter: %w", err)
		}
	}

	return state.Snapshot{
		Pool:           p,
		NextTransferID: uint64(nextTransferID),
		FundRequests:   requests,
	}, true, nil
}

// AppendAudit inserts audit records in one batch.
func (s *Store) AppendAudit(ctx context.Context, records []storage.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO pool_audit (pool_id, seq, kind, ts_micros, body, error, applied_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (pool_id, seq) DO NOTHING
		`,
			s.poolID,
			int64(record.Seq),
			record.Kind,
			int64(record.Timestamp),
			[]byte(record.Body),
			record.Error,
			record.AppliedAt,
		)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
	}
	return nil
}
