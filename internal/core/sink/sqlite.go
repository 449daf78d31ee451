package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zeusync/corestate/internal/core/aggregator"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	digest          TEXT NOT NULL,
	total_branches  INTEGER NOT NULL,
	records         INTEGER NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS core_state_patterns (
	run_id             TEXT NOT NULL,
	event_id           INTEGER NOT NULL,
	instruction_count  INTEGER NOT NULL,
	start_time         INTEGER NOT NULL,
	core_id            INTEGER NOT NULL,
	branch_ip          TEXT NOT NULL,
	branch_taken       INTEGER NOT NULL,
	states             TEXT NOT NULL,
	PRIMARY KEY (run_id, core_id, event_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS state_pattern_summary (
	run_id              TEXT NOT NULL,
	branch_ip           TEXT NOT NULL,
	count               INTEGER NOT NULL,
	avg_idle_position   REAL NOT NULL,
	idle_time_percent   REAL NOT NULL,
	branch_taken_ratio  REAL NOT NULL,
	PRIMARY KEY (run_id, branch_ip),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// SQLiteSink exports a report into a SQLite database. Each run is keyed by its
// run id so one file can hold several runs.
type SQLiteSink struct {
	Path string
}

func (s *SQLiteSink) Write(ctx context.Context, report aggregator.Report) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, digest, total_branches, records, created_at) VALUES (?, ?, ?, ?, ?)`,
		report.RunID,
		strconv.FormatUint(report.Digest(), 16),
		int64(report.Metrics.TotalBranches),
		len(report.Records),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	patternStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO core_state_patterns (run_id, event_id, instruction_count, start_time, core_id, branch_ip, branch_taken, states)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare patterns: %w", err)
	}
	defer patternStmt.Close()

	for _, rec := range report.Records {
		_, err := patternStmt.ExecContext(ctx,
			report.RunID,
			int64(rec.EventID),
			int64(rec.InstructionCount),
			rec.StartTime,
			rec.CoreID,
			FormatIP(rec.IP),
			rec.BranchTaken,
			FormatStates(rec),
		)
		if err != nil {
			return fmt.Errorf("insert record %d/%d: %w", rec.CoreID, rec.EventID, err)
		}
	}

	summaryStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO state_pattern_summary (run_id, branch_ip, count, avg_idle_position, idle_time_percent, branch_taken_ratio)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare summary: %w", err)
	}
	defer summaryStmt.Close()

	for _, row := range report.Summary {
		_, err := summaryStmt.ExecContext(ctx,
			report.RunID,
			FormatIP(row.IP),
			row.Count,
			row.AvgIdlePosition,
			row.IdleTimePercent,
			row.BranchTakenRatio,
		)
		if err != nil {
			return fmt.Errorf("insert summary %s: %w", FormatIP(row.IP), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
