package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecordTarget stores the outcome of one target. Recording the same target
// twice in a run replaces the earlier result.
func (s *SQLiteStore) RecordTarget(ctx context.Context, result *TargetResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO target_results
		 (run_id, target, status, sql_hash, error, duration_ms, outputs)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Target, string(result.Status),
		nullString(result.Hash), nullString(result.Error),
		result.Duration.Milliseconds(), strings.Join(result.Outputs, "\n"),
	)
	if err != nil {
		return fmt.Errorf("failed to record target %s: %w", result.Target, err)
	}
	return nil
}

// TargetResults returns the results of a run ordered by target.
func (s *SQLiteStore) TargetResults(ctx context.Context, runID string) ([]*TargetResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, target, status, sql_hash, error, duration_ms, outputs
		 FROM target_results WHERE run_id = ? ORDER BY target`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get target results: %w", err)
	}
	defer rows.Close()

	var results []*TargetResult
	for rows.Next() {
		var (
			r        TargetResult
			status   string
			hash     sql.NullString
			errMsg   sql.NullString
			duration int64
			outputs  string
		)
		if err := rows.Scan(&r.RunID, &r.Target, &status, &hash, &errMsg, &duration, &outputs); err != nil {
			return nil, fmt.Errorf("failed to scan target result: %w", err)
		}
		r.Status = TargetStatus(status)
		r.Hash = hash.String
		r.Error = errMsg.String
		r.Duration = time.Duration(duration) * time.Millisecond
		if outputs != "" {
			r.Outputs = strings.Split(outputs, "\n")
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get target results: %w", err)
	}
	return results, nil
}

// LastHash returns the SQL hash of the latest successful result of target
// in env.
func (s *SQLiteStore) LastHash(ctx context.Context, env, target string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	var hash sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT tr.sql_hash FROM target_results tr
		 JOIN runs r ON r.id = tr.run_id
		 WHERE r.environment = ? AND tr.target = ? AND tr.status <> ?
		 ORDER BY r.started_at DESC, r.rowid DESC LIMIT 1`,
		env, target, string(TargetStatusFailed),
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil // Never generated
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last hash: %w", err)
	}
	return hash.String, nil
}
