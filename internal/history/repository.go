package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeLayout is fixed width so started_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Filter controls which cycle runs to return.
type Filter struct {
	Outcome string    // optional: noop, completed, degraded
	Since   time.Time // optional: only runs started at or after Since
	Limit   int       // default 50, max 200
	Offset  int       // pagination offset
}

// ListResult contains one page of cycle runs, most recent first.
type ListResult struct {
	Runs   []decision.CycleReport `json:"runs"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// Repository stores and lists cycle reports.
type Repository interface {
	Create(ctx context.Context, report decision.CycleReport) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository stores cycle reports in the cycle_runs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new cycle history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a report. A report without an ID is rejected.
func (r *SQLiteRepository) Create(ctx context.Context, report decision.CycleReport) error {
	if report.ID == "" {
		return fmt.Errorf("cycle report has no id")
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshalling cycle report: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cycle_runs (id, started_at, duration_ms, outcome, strategy, commands, sent, failed, skipped, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.StartedAt.UTC().Format(timeLayout),
		report.Duration.Milliseconds(),
		string(report.Outcome),
		report.Strategy,
		len(report.Commands),
		report.Sent,
		report.Failed,
		len(report.Skipped),
		string(body),
	)
	if err != nil {
		return fmt.Errorf("inserting cycle run: %w", err)
	}
	return nil
}

// List returns runs matching the filter, ordered by most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cycle_runs %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting cycle runs: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT report FROM cycle_runs %s ORDER BY started_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cycle runs: %w", err)
	}
	defer rows.Close()

	runs := []decision.CycleReport{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning cycle run: %w", err)
		}
		var report decision.CycleReport
		if err := json.Unmarshal([]byte(body), &report); err != nil {
			return nil, fmt.Errorf("decoding cycle run: %w", err)
		}
		runs = append(runs, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycle runs: %w", err)
	}

	return &ListResult{
		Runs:   runs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Prune deletes runs started before the given time and returns how many
// were removed.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM cycle_runs WHERE started_at < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning cycle runs: %w", err)
	}
	return res.RowsAffected()
}
