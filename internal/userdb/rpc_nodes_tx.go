package userdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// GetRpcNodesTx reads the rpc node table inside an existing transaction.
func GetRpcNodesTx(ctx context.Context, tx *sql.Tx) ([]RpcNode, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name, endpoint, owned, active, weight FROM rpc_nodes ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("query rpc nodes: %w", err)
	}
	defer rows.Close()

	var nodes []RpcNode
	for rows.Next() {
		var node RpcNode
		var weight string
		if err := rows.Scan(&node.Name, &node.Endpoint, &node.Owned, &node.Active, &weight); err != nil {
			return nil, fmt.Errorf("scan rpc node: %w", err)
		}
		node.Weight, err = decimal.NewFromString(weight)
		if err != nil {
			return nil, fmt.Errorf("parse weight for %s: %w", node.Name, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// ReplaceRpcNodesTx replaces the whole rpc node table inside an existing
// transaction.
func ReplaceRpcNodesTx(ctx context.Context, tx *sql.Tx, nodes []RpcNode) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM rpc_nodes;`); err != nil {
		return fmt.Errorf("clear rpc nodes: %w", err)
	}
	for _, node := range nodes {
		_, err := tx.ExecContext(ctx, `
INSERT INTO rpc_nodes (name, endpoint, owned, active, weight) VALUES (?, ?, ?, ?, ?);
`, node.Name, node.Endpoint, node.Owned, node.Active, node.Weight.String())
		if err != nil {
			return fmt.Errorf("insert rpc node %s: %w", node.Name, err)
		}
	}
	return nil
}
