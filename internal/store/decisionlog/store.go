// Package decisionlog persists one record per trading cycle so the agent can
// review its own history across restarts.
package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// Record is one persisted trading decision.
type Record struct {
	DecisionID     int64           `json:"decision_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Cycle          int             `json:"cycle"`
	Action         string          `json:"action"`
	Reasoning      string          `json:"reasoning"`
	Parameters     map[string]any  `json:"parameters,omitempty"`
	Result         string          `json:"result,omitempty"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	TradeExecuted  bool            `json:"trade_executed"`
	ToolCalls      int             `json:"tool_calls"`
}

// Summary aggregates the whole log for the performance tool.
type Summary struct {
	TotalDecisions  int             `json:"total_decisions"`
	TradesExecuted  int             `json:"trades_executed"`
	ActionCounts    map[string]int  `json:"action_counts"`
	FirstValue      decimal.Decimal `json:"first_portfolio_value"`
	LatestValue     decimal.Decimal `json:"latest_portfolio_value"`
	ChangePct       decimal.Decimal `json:"portfolio_change_pct"`
	FirstDecisionAt time.Time       `json:"first_decision_at,omitempty"`
	LastDecisionAt  time.Time       `json:"last_decision_at,omitempty"`
}

// Store is the append-only SQLite decision log.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the decision log database.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("decision log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS decisions (
    decision_id     INTEGER PRIMARY KEY,
    ts              TEXT NOT NULL,
    cycle           INTEGER NOT NULL,
    action          TEXT NOT NULL,
    reasoning       TEXT NOT NULL DEFAULT '',
    parameters      TEXT NOT NULL DEFAULT '{}',
    result          TEXT NOT NULL DEFAULT '',
    portfolio_value TEXT NOT NULL DEFAULT '0',
    trade_executed  INTEGER NOT NULL DEFAULT 0,
    tool_calls      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(ts);
`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes a record and assigns the next monotonic decision id.
// The assigned id is written back into rec.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("decision log store is not initialized")
	}
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	params := rec.Parameters
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding decision parameters: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(decision_id) FROM decisions`).Scan(&last); err != nil {
		return err
	}
	rec.DecisionID = last.Int64 + 1

	executed := 0
	if rec.TradeExecuted {
		executed = 1
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO decisions (decision_id, ts, cycle, action, reasoning, parameters, result, portfolio_value, trade_executed, tool_calls)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.DecisionID,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Cycle,
		rec.Action,
		rec.Reasoning,
		string(paramsJSON),
		rec.Result,
		rec.PortfolioValue.String(),
		executed,
		rec.ToolCalls,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// LastDecisionID returns the highest assigned id, 0 when the log is empty.
func (s *Store) LastDecisionID(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("decision log store is not initialized")
	}
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(decision_id) FROM decisions`).Scan(&last); err != nil {
		return 0, err
	}
	return last.Int64, nil
}

// Recent returns the newest records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("decision log store is not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT decision_id, ts, cycle, action, reasoning, parameters, result, portfolio_value, trade_executed, tool_calls
FROM decisions ORDER BY decision_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// All returns every record in id order, oldest first.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("decision log store is not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT decision_id, ts, cycle, action, reasoning, parameters, result, portfolio_value, trade_executed, tool_calls
FROM decisions ORDER BY decision_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var (
			rec        Record
			ts         string
			paramsJSON string
			value      string
			executed   int
		)
		if err := rows.Scan(&rec.DecisionID, &ts, &rec.Cycle, &rec.Action, &rec.Reasoning,
			&paramsJSON, &rec.Result, &value, &executed, &rec.ToolCalls); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = parsed
		}
		if paramsJSON != "" && paramsJSON != "{}" {
			_ = json.Unmarshal([]byte(paramsJSON), &rec.Parameters)
		}
		if d, err := decimal.NewFromString(value); err == nil {
			rec.PortfolioValue = d
		}
		rec.TradeExecuted = executed != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PerformanceSummary aggregates action counts and portfolio drift.
func (s *Store) PerformanceSummary(ctx context.Context) (Summary, error) {
	records, err := s.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{ActionCounts: map[string]int{}}
	for _, rec := range records {
		sum.TotalDecisions++
		sum.ActionCounts[rec.Action]++
		if rec.TradeExecuted {
			sum.TradesExecuted++
		}
	}
	if len(records) > 0 {
		first := records[0]
		last := records[len(records)-1]
		sum.FirstValue = first.PortfolioValue
		sum.LatestValue = last.PortfolioValue
		sum.FirstDecisionAt = first.Timestamp
		sum.LastDecisionAt = last.Timestamp
		if sum.FirstValue.IsPositive() {
			sum.ChangePct = sum.LatestValue.Sub(sum.FirstValue).
				Div(sum.FirstValue).Mul(decimal.NewFromInt(100)).Round(4)
		}
	}
	return sum, nil
}
