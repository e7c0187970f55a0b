package v1

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duynhne/warehouse-user-service/internal/core/domain"
	"github.com/duynhne/warehouse-user-service/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QueryResult is the passthrough query response.
type QueryResult struct {
	Data            []map[string]any `json:"data"`
	RowCount        int              `json:"row_count"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
}

// QueryService runs ad-hoc SQL and warehouse health probes.
type QueryService struct {
	runner domain.QueryRunner
}

// NewQueryService creates a new QueryService.
func NewQueryService(runner domain.QueryRunner) *QueryService {
	return &QueryService{runner: runner}
}

// Execute runs query with optional :name parameters.
func (s *QueryService) Execute(ctx context.Context, query string, params map[string]any) (*QueryResult, error) {
	ctx, span := middleware.StartSpan(ctx, "query.execute", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("params.count", len(params)),
	))
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be blank: %w", ErrInvalidInput)
	}

	start := time.Now()
	rows, err := s.runner.ExecuteQuery(ctx, query, params)
	elapsed := time.Since(start)
	middleware.WarehouseQueryDuration.Observe(elapsed.Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, classify("execute query", err)
	}

	span.SetAttributes(attribute.Int("rows.count", len(rows)))
	return &QueryResult{
		Data:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000,
	}, nil
}

// Ping runs SELECT 1 AS test and checks the single value.
func (s *QueryService) Ping(ctx context.Context) error {
	ctx, span := middleware.StartSpan(ctx, "query.ping", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	rows, err := s.runner.ExecuteQuery(ctx, "SELECT 1 AS test", nil)
	if err != nil {
		span.RecordError(err)
		return classify("ping warehouse", err)
	}
	if len(rows) != 1 || !isOne(rows[0]) {
		return fmt.Errorf("ping warehouse: unexpected result %v: %w", rows, ErrWarehouseUnavailable)
	}
	return nil
}

// isOne accepts the test column under any case and any integer-ish representation.
func isOne(row map[string]any) bool {
	for k, v := range row {
		if !strings.EqualFold(k, "test") {
			continue
		}
		switch n := v.(type) {
		case int64:
			return n == 1
		case int32:
			return n == 1
		case int:
			return n == 1
		case float64:
			return n == 1
		case string:
			return strings.TrimSpace(n) == "1"
		}
	}
	return false
}
