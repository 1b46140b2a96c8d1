package trace

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/baseline"
	"github.com/danielpatrickdp/adaptive-context/internal/storage"
)

// ErrTraceNotFound is returned by Get for an unknown trace id.
var ErrTraceNotFound = errors.New("trace not found")

// Fixed-width UTC timestamps so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// #region schema
const traceSchema = `
CREATE TABLE IF NOT EXISTS run_traces (
	trace_id            TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL,
	session_id          TEXT NOT NULL,
	session_key         TEXT,
	timestamp           TEXT NOT NULL,
	provider            TEXT,
	model               TEXT,
	channel             TEXT,
	is_baseline         INTEGER NOT NULL DEFAULT 0,
	context_json        TEXT NOT NULL,
	usage_json          TEXT,
	input_tokens        INTEGER NOT NULL DEFAULT 0,
	output_tokens       INTEGER NOT NULL DEFAULT 0,
	total_tokens        INTEGER NOT NULL DEFAULT 0,
	duration_ms         INTEGER NOT NULL DEFAULT 0,
	system_prompt_chars INTEGER NOT NULL DEFAULT 0,
	aborted             INTEGER NOT NULL DEFAULT 0,
	error               TEXT
);

CREATE INDEX IF NOT EXISTS idx_run_traces_timestamp ON run_traces(timestamp);

CREATE TABLE IF NOT EXISTS trace_arms (
	trace_id    TEXT NOT NULL REFERENCES run_traces(trace_id),
	position    INTEGER NOT NULL,
	arm_id      TEXT NOT NULL,
	included    INTEGER NOT NULL,
	referenced  INTEGER NOT NULL,
	token_cost  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (trace_id, position)
);

CREATE INDEX IF NOT EXISTS idx_trace_arms_arm ON trace_arms(arm_id);
`

const traceColumns = `trace_id, run_id, session_id, session_key, timestamp, provider, model, channel,
	is_baseline, context_json, usage_json, duration_ms, system_prompt_chars, aborted, error`

// #endregion schema

// #region log-struct
// Log is the append-only run trace log.
type Log struct {
	db     *sql.DB
	ownsDB bool
}

// OpenLog opens a SQLite database at path and migrates the trace tables.
func OpenLog(path string) (*Log, error) {
	db, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	l, err := NewLog(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	l.ownsDB = true
	return l, nil
}

// NewLog migrates the trace tables on an existing handle. The caller keeps
// ownership of db.
func NewLog(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(traceSchema); err != nil {
		return nil, fmt.Errorf("migrate traces: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the database if the log opened it.
func (l *Log) Close() error {
	if !l.ownsDB {
		return nil
	}
	return l.db.Close()
}

// #endregion log-struct

// #region append
// Append writes a trace and its arm outcomes in one transaction.
func (l *Log) Append(tr RunTrace) error {
	if tr.TraceID == "" {
		return fmt.Errorf("append trace: empty trace id")
	}
	if tr.Timestamp.IsZero() {
		tr.Timestamp = time.Now()
	}
	ctxJSON, err := json.Marshal(tr.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	var usageJSON any
	var input, output int
	if tr.Usage != nil {
		b, err := json.Marshal(tr.Usage)
		if err != nil {
			return fmt.Errorf("marshal usage: %w", err)
		}
		usageJSON = string(b)
		input, output = tr.Usage.Input, tr.Usage.Output
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO run_traces (`+traceColumns+`, input_tokens, output_tokens, total_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.TraceID, tr.RunID, tr.SessionID, nullIfEmpty(tr.SessionKey),
		tr.Timestamp.UTC().Format(timeFormat),
		nullIfEmpty(tr.Provider), nullIfEmpty(tr.Model), nullIfEmpty(tr.Channel),
		boolInt(tr.IsBaseline), string(ctxJSON), usageJSON,
		tr.DurationMs, tr.SystemPromptChars, boolInt(tr.Aborted), nullIfEmpty(tr.Error),
		input, output, tr.Usage.TotalTokens(),
	)
	if err != nil {
		return fmt.Errorf("insert trace %s: %w", tr.TraceID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO trace_arms (trace_id, position, arm_id, included, referenced, token_cost)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare arms: %w", err)
	}
	defer stmt.Close()

	for i, a := range tr.Arms {
		if _, err := stmt.Exec(tr.TraceID, i, string(a.ArmID), boolInt(a.Included), boolInt(a.Referenced), a.TokenCost); err != nil {
			return fmt.Errorf("insert arm %s: %w", a.ArmID, err)
		}
	}
	return tx.Commit()
}

// #endregion append

// #region read
// Get returns one trace with its arm outcomes.
func (l *Log) Get(traceID string) (RunTrace, error) {
	row := l.db.QueryRow(`SELECT `+traceColumns+` FROM run_traces WHERE trace_id = ?`, traceID)
	tr, err := scanTrace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunTrace{}, fmt.Errorf("get %s: %w", traceID, ErrTraceNotFound)
	}
	if err != nil {
		return RunTrace{}, err
	}
	if tr.Arms, err = l.loadArms(tr.TraceID); err != nil {
		return RunTrace{}, err
	}
	return tr, nil
}

// List returns traces at or after since, oldest first. A zero since returns
// everything; limit <= 0 means no limit.
func (l *Log) List(since time.Time, limit int) ([]RunTrace, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + traceColumns + ` FROM run_traces`)
	var args []any
	if !since.IsZero() {
		b.WriteString(` WHERE timestamp >= ?`)
		args = append(args, since.UTC().Format(timeFormat))
	}
	b.WriteString(` ORDER BY timestamp ASC, trace_id ASC`)
	if limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := l.db.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	var out []RunTrace
	for rows.Next() {
		tr, err := scanTrace(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Arms, err = l.loadArms(out[i].TraceID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Recent returns the last n traces, oldest first.
func (l *Log) Recent(n int) ([]RunTrace, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := l.db.Query(
		`SELECT `+traceColumns+` FROM (
			SELECT `+traceColumns+` FROM run_traces
			ORDER BY timestamp DESC, trace_id DESC LIMIT ?
		) sub ORDER BY timestamp ASC, trace_id ASC`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent traces: %w", err)
	}
	var out []RunTrace
	for rows.Next() {
		tr, err := scanTrace(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Arms, err = l.loadArms(out[i].TraceID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *Log) loadArms(traceID string) ([]ArmOutcome, error) {
	rows, err := l.db.Query(
		`SELECT arm_id, included, referenced, token_cost FROM trace_arms WHERE trace_id = ? ORDER BY position`,
		traceID,
	)
	if err != nil {
		return nil, fmt.Errorf("load arms for %s: %w", traceID, err)
	}
	defer rows.Close()

	var out []ArmOutcome
	for rows.Next() {
		var a ArmOutcome
		var id string
		var included, referenced int
		if err := rows.Scan(&id, &included, &referenced, &a.TokenCost); err != nil {
			return nil, fmt.Errorf("scan arm: %w", err)
		}
		a.ArmID = arm.ID(id)
		a.Included = included != 0
		a.Referenced = referenced != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrace(sc scanner) (RunTrace, error) {
	var tr RunTrace
	var sessionKey, provider, model, channel, usageJSON, errText sql.NullString
	var ts, ctxJSON string
	var isBaseline, aborted int
	err := sc.Scan(
		&tr.TraceID, &tr.RunID, &tr.SessionID, &sessionKey, &ts, &provider, &model, &channel,
		&isBaseline, &ctxJSON, &usageJSON, &tr.DurationMs, &tr.SystemPromptChars, &aborted, &errText,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunTrace{}, err
		}
		return RunTrace{}, fmt.Errorf("scan trace: %w", err)
	}
	tr.SessionKey = sessionKey.String
	tr.Provider = provider.String
	tr.Model = model.String
	tr.Channel = channel.String
	tr.Error = errText.String
	tr.IsBaseline = isBaseline != 0
	tr.Aborted = aborted != 0
	tr.Timestamp, _ = time.Parse(timeFormat, ts)
	if err := json.Unmarshal([]byte(ctxJSON), &tr.Context); err != nil {
		return RunTrace{}, fmt.Errorf("unmarshal context for %s: %w", tr.TraceID, err)
	}
	if usageJSON.Valid {
		var u Usage
		if err := json.Unmarshal([]byte(usageJSON.String), &u); err != nil {
			return RunTrace{}, fmt.Errorf("unmarshal usage for %s: %w", tr.TraceID, err)
		}
		tr.Usage = &u
	}
	return tr, nil
}

// #endregion read

// #region summary
// Summary aggregates the whole log. Aborted runs count toward run totals but
// are left out of the per-path token averages.
func (l *Log) Summary() (Summary, error) {
	var s Summary
	var first, last sql.NullString
	var baselineAvg, selectedAvg sql.NullFloat64
	err := l.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(total_tokens), 0),
		       MIN(timestamp), MAX(timestamp),
		       COALESCE(SUM(is_baseline), 0),
		       AVG(CASE WHEN is_baseline = 1 AND aborted = 0 THEN total_tokens END),
		       AVG(CASE WHEN is_baseline = 0 AND aborted = 0 THEN total_tokens END)
		FROM run_traces`,
	).Scan(&s.TraceCount, &s.InputTokens, &s.OutputTokens, &s.TotalTokens, &first, &last,
		&s.BaselineRuns, &baselineAvg, &selectedAvg)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize traces: %w", err)
	}
	s.SelectedRuns = s.TraceCount - s.BaselineRuns
	if first.Valid {
		s.FirstTimestamp, _ = time.Parse(timeFormat, first.String)
	}
	if last.Valid {
		s.LastTimestamp, _ = time.Parse(timeFormat, last.String)
	}
	if err := l.db.QueryRow(`SELECT COUNT(DISTINCT arm_id) FROM trace_arms`).Scan(&s.ArmCount); err != nil {
		return Summary{}, fmt.Errorf("count arms: %w", err)
	}
	s.BaselineAvgTokens = baselineAvg.Float64
	s.SelectedAvgTokens = selectedAvg.Float64
	// a side without completed runs has no average to compare
	if baselineAvg.Valid && selectedAvg.Valid {
		s.TokenSavingsPercent = baseline.TokenSavingsPercent(s.BaselineAvgTokens, s.SelectedAvgTokens)
	}
	return s, nil
}

// #endregion summary

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
