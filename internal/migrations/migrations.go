package migrations

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledgerscope/internal/userdb"
)

// defaultRpcNode is injected by migration 2 when it is not yet configured.
var defaultRpcNode = userdb.RpcNode{
	Name:     "llamanodes",
	Endpoint: "https://eth.llamarpc.com",
	Owned:    false,
	Active:   true,
}

// MigrationList is the ordered set of data migrations shipped with the
// application. Append only; released versions never change.
var MigrationList = []MigrationRecord{
	{Version: 1, Func: migratePruneStaleQueryRanges},
	{Version: 2, Func: migrateRebalanceRpcNodes},
	{Version: 3, Func: migrateCanonicalizeSettings},
}

// legacyQueryRangePrefixes belong to integrations removed before the
// query-range table got cleaned up on disconnect.
var legacyQueryRangePrefixes = []string{
	"bittrex_",
	"cryptocom_",
	"ftx_",
}

func migratePruneStaleQueryRanges(ctx context.Context, m *MigrationContext) error {
	m.Progress.SetTotalSteps(1)
	m.Progress.NewStep("Purge query ranges of removed integrations")

	for _, prefix := range legacyQueryRangePrefixes {
		if _, err := m.Tx.ExecContext(ctx,
			`DELETE FROM used_query_ranges WHERE name LIKE ?;`, prefix+"%",
		); err != nil {
			return fmt.Errorf("purge %s ranges: %w", prefix, err)
		}
	}
	return nil
}

func migrateRebalanceRpcNodes(ctx context.Context, m *MigrationContext) error {
	m.Progress.SetTotalSteps(2)
	m.Progress.NewStep("Fetch configured rpc nodes")

	nodes, err := userdb.GetRpcNodesTx(ctx, m.Tx)
	if err != nil {
		return err
	}

	hasDefault := false
	for _, node := range nodes {
		if node.Endpoint == defaultRpcNode.Endpoint {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		nodes = append(nodes, defaultRpcNode)
	}

	m.Progress.NewStep("Write rebalanced rpc nodes")

	rebalanceWeights(nodes)
	return userdb.ReplaceRpcNodesTx(ctx, m.Tx, nodes)
}

// rebalanceWeights spreads the full weight evenly over non-owned nodes so
// the column sums to exactly one. Owned nodes are queried unconditionally
// and carry zero weight.
func rebalanceWeights(nodes []userdb.RpcNode) {
	open := make([]*userdb.RpcNode, 0, len(nodes))
	for i := range nodes {
		if nodes[i].Owned {
			nodes[i].Weight = decimal.Zero
			continue
		}
		open = append(open, &nodes[i])
	}
	if len(open) == 0 {
		return
	}

	share := decimal.New(1, 0).DivRound(decimal.NewFromInt(int64(len(open))), 6)
	remainder := decimal.New(1, 0)
	for _, node := range open[:len(open)-1] {
		node.Weight = share
		remainder = remainder.Sub(share)
	}
	open[len(open)-1].Weight = remainder
}

func migrateCanonicalizeSettings(ctx context.Context, m *MigrationContext) error {
	m.Progress.SetTotalSteps(1)
	m.Progress.NewStep("Canonicalize settings keys")

	_, err := m.Tx.ExecContext(ctx, `
UPDATE OR IGNORE settings SET name = lower(name) WHERE name != lower(name);
`)
	if err != nil {
		return fmt.Errorf("canonicalize settings: %w", err)
	}
	return nil
}
