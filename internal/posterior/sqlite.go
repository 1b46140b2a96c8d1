package posterior

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/storage"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS arm_posteriors (
	arm_id        TEXT PRIMARY KEY,
	alpha         REAL NOT NULL,
	beta          REAL NOT NULL,
	pulls         INTEGER NOT NULL DEFAULT 0,
	last_updated  TEXT NOT NULL
);
`

const upsertSQL = `INSERT INTO arm_posteriors (arm_id, alpha, beta, pulls, last_updated)
	 VALUES (?, ?, ?, ?, ?)
	 ON CONFLICT(arm_id) DO UPDATE SET
	   alpha = excluded.alpha,
	   beta = excluded.beta,
	   pulls = excluded.pulls,
	   last_updated = excluded.last_updated`

// #endregion schema

// #region store-struct
// SQLiteStore keeps posteriors in the arm_posteriors table.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
	now    func() time.Time
}

// #endregion store-struct

// #region constructor
// NewSQLiteStore opens a SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLiteStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStoreWithDB runs migrations on an existing handle. The caller keeps
// ownership of db.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// #endregion constructor

// #region close
// Close closes the database if the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying *sql.DB so the trace log can share it.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region load
// Load reads every posterior.
func (s *SQLiteStore) Load() (map[arm.ID]Posterior, error) {
	rows, err := s.db.Query(`SELECT arm_id, alpha, beta, pulls, last_updated FROM arm_posteriors`)
	if err != nil {
		return nil, fmt.Errorf("load posteriors: %w", err)
	}
	defer rows.Close()

	out := make(map[arm.ID]Posterior)
	for rows.Next() {
		p, err := scanPosterior(rows)
		if err != nil {
			return nil, err
		}
		out[p.ArmID] = p
	}
	return out, rows.Err()
}

// Get reads a single posterior.
func (s *SQLiteStore) Get(id arm.ID) (Posterior, error) {
	row := s.db.QueryRow(
		`SELECT arm_id, alpha, beta, pulls, last_updated FROM arm_posteriors WHERE arm_id = ?`, string(id),
	)
	p, err := scanPosterior(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Posterior{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Posterior{}, err
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPosterior(sc scanner) (Posterior, error) {
	var p Posterior
	var id, updated string
	if err := sc.Scan(&id, &p.Alpha, &p.Beta, &p.Pulls, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Posterior{}, err
		}
		return Posterior{}, fmt.Errorf("scan posterior: %w", err)
	}
	p.ArmID = arm.ID(id)
	p.LastUpdated, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}

// #endregion load

// #region save
// Save upserts one posterior.
func (s *SQLiteStore) Save(p Posterior) error {
	return s.SaveBatch([]Posterior{p})
}

// SaveBatch upserts every posterior in one transaction.
func (s *SQLiteStore) SaveBatch(ps []Posterior) error {
	if len(ps) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range ps {
		if p.LastUpdated.IsZero() {
			p.LastUpdated = s.now()
		}
		if _, err := stmt.Exec(string(p.ArmID), p.Alpha, p.Beta, p.Pulls, p.LastUpdated.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("upsert %s: %w", p.ArmID, err)
		}
	}
	return tx.Commit()
}

// #endregion save

// #region reset
// Reset sets one arm (or all arms when id is empty) back to Beta(1,1).
func (s *SQLiteStore) Reset(id arm.ID) (int, error) {
	now := s.now().Format(time.RFC3339Nano)
	var res sql.Result
	var err error
	if id == "" {
		res, err = s.db.Exec(
			`UPDATE arm_posteriors SET alpha = 1, beta = 1, pulls = 0, last_updated = ?`, now,
		)
	} else {
		res, err = s.db.Exec(
			`UPDATE arm_posteriors SET alpha = 1, beta = 1, pulls = 0, last_updated = ? WHERE arm_id = ?`,
			now, string(id),
		)
	}
	if err != nil {
		return 0, fmt.Errorf("reset posteriors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows affected: %w", err)
	}
	return int(n), nil
}

// #endregion reset
