package userdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "user.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, ok, err := db.GetSetting(ctx, "missing"); err != nil || ok {
		t.Fatalf("absent key should report ok=false (ok=%v err=%v)", ok, err)
	}

	if err := db.SetSetting(ctx, "main_currency", "USD"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	value, ok, err := db.GetSetting(ctx, "main_currency")
	if err != nil || !ok || value != "USD" {
		t.Fatalf("get setting mismatch (value=%q ok=%v err=%v)", value, ok, err)
	}

	if err := db.SetSetting(ctx, "main_currency", "EUR"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	value, _, err = db.GetSetting(ctx, "main_currency")
	if err != nil || value != "EUR" {
		t.Fatalf("overwritten value mismatch (value=%q err=%v)", value, err)
	}
}

func TestRpcNodesRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	nodes := []RpcNode{
		{Name: "archive", Endpoint: "http://localhost:8545", Owned: true, Active: true, Weight: decimal.Zero},
		{Name: "public", Endpoint: "https://rpc.example.org", Owned: false, Active: false, Weight: decimal.RequireFromString("0.5")},
	}
	if err := db.ReplaceRpcNodes(ctx, nodes); err != nil {
		t.Fatalf("replace rpc nodes: %v", err)
	}

	got, err := db.GetRpcNodes(ctx)
	if err != nil {
		t.Fatalf("get rpc nodes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(got))
	}
	if got[0].Name != "archive" || !got[0].Owned || !got[0].Active {
		t.Fatalf("first node mismatch: %+v", got[0])
	}
	if got[1].Name != "public" || got[1].Owned || got[1].Active {
		t.Fatalf("second node mismatch: %+v", got[1])
	}
	if !got[1].Weight.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("weight mismatch: %s", got[1].Weight)
	}

	// Replace drops everything not in the new set.
	if err := db.ReplaceRpcNodes(ctx, nodes[:1]); err != nil {
		t.Fatalf("replace rpc nodes: %v", err)
	}
	got, err = db.GetRpcNodes(ctx)
	if err != nil {
		t.Fatalf("get rpc nodes: %v", err)
	}
	if len(got) != 1 || got[0].Name != "archive" {
		t.Fatalf("replace did not drop old rows: %+v", got)
	}
}

func TestQueryRanges(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	ranges := map[string][2]uint64{
		"ftx_trades":    {0, 100},
		"ftx_deposits":  {0, 200},
		"kraken_trades": {50, 150},
	}
	for name, span := range ranges {
		if err := db.SetQueryRange(ctx, name, span[0], span[1]); err != nil {
			t.Fatalf("set query range %s: %v", name, err)
		}
	}

	count, err := db.CountQueryRanges(ctx, "ftx_%")
	if err != nil {
		t.Fatalf("count query ranges: %v", err)
	}
	if count != 2 {
		t.Fatalf("ftx count mismatch: %d", count)
	}

	count, err = db.CountQueryRanges(ctx, "%")
	if err != nil {
		t.Fatalf("count query ranges: %v", err)
	}
	if count != 3 {
		t.Fatalf("total count mismatch: %d", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	failure := errors.New("step failed")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (name, value) VALUES ('partial', 'yes');`,
		); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected callback error, got %v", err)
	}

	if _, ok, err := db.GetSetting(ctx, "partial"); err != nil || ok {
		t.Fatalf("rolled-back write is visible (ok=%v err=%v)", ok, err)
	}

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (name, value) VALUES ('committed', 'yes');`,
		)
		return err
	})
	if err != nil {
		t.Fatalf("commit tx: %v", err)
	}
	if value, ok, err := db.GetSetting(ctx, "committed"); err != nil || !ok || value != "yes" {
		t.Fatalf("committed write missing (value=%q ok=%v err=%v)", value, ok, err)
	}
}
