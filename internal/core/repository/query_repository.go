package repository

import (
	"context"

	"github.com/duynhne/warehouse-user-service/internal/core/warehouse"
)

// WarehouseQueryRunner implements domain.QueryRunner for passthrough SQL.
type WarehouseQueryRunner struct {
	wh Warehouse
}

func NewQueryRunner(wh Warehouse) *WarehouseQueryRunner {
	return &WarehouseQueryRunner{wh: wh}
}

// ExecuteQuery runs query as-is. Rows keep the column names the warehouse reported.
func (q *WarehouseQueryRunner) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rows, err := q.wh.ExecuteQuery(ctx, query, warehouse.Params(params))
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out, nil
}
