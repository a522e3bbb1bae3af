package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerscope/internal/model"
)

// Store provides Postgres persistence for the classified ledger.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEventBatch upserts classified history events, keyed by their
// transaction hash and sequence index so re-decoding a transaction
// replaces its events in place.
func (s *Store) PutEventBatch(ctx context.Context, events []model.HistoryEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		var address *string
		if event.Address != nil {
			hex := event.Address.Hex()
			address = &hex
		}
		batch.Queue(`
			INSERT INTO history_events (
				tx_hash, sequence_index, event_type, event_subtype, asset,
				amount, usd_value, address, location_label, notes, counterparty,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (tx_hash, sequence_index)
			DO UPDATE SET
				event_type = EXCLUDED.event_type,
				event_subtype = EXCLUDED.event_subtype,
				asset = EXCLUDED.asset,
				amount = EXCLUDED.amount,
				usd_value = EXCLUDED.usd_value,
				address = EXCLUDED.address,
				location_label = EXCLUDED.location_label,
				notes = EXCLUDED.notes,
				counterparty = EXCLUDED.counterparty,
				updated_at = now()
		`,
			event.TxHash.Hex(),
			int64(event.SequenceIndex),
			string(event.EventType),
			string(event.EventSubtype),
			event.Asset,
			event.Balance.Amount.String(),
			event.Balance.UsdValue.String(),
			address,
			event.LocationLabel,
			event.Notes,
			event.Counterparty,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCursor returns the stored decode cursor for a name.
func (s *Store) LoadCursor(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("cursor name required")
	}
	var position uint64
	row := s.pool.QueryRow(ctx, `SELECT position FROM decode_cursors WHERE name=$1`, name)
	if err := row.Scan(&position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return position, true, nil
}

// SaveCursor upserts the decode cursor for a name.
func (s *Store) SaveCursor(ctx context.Context, name string, position uint64) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO decode_cursors (name, position, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET position = EXCLUDED.position, updated_at = now()
	`, name, position)
	return err
}
