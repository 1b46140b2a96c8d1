package posterior

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
)

const keyPrefix = "posterior/"

// #region badger-config
// BadgerConfig configures the Badger-backed store.
type BadgerConfig struct {
	// Dir holds the Badger files. Ignored when InMemory is true.
	Dir        string
	InMemory   bool
	SyncWrites bool
	// Logger receives Badger's internal logs. Nil disables them.
	Logger *zap.Logger
}

// DefaultBadgerConfig returns a durable on-disk configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{Dir: dir, SyncWrites: true}
}

// #endregion badger-config

// #region badger-logger
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.s.Debugf(format, args...) }

// #endregion badger-logger

// #region badger-store
// BadgerStore keeps posteriors as JSON values under "posterior/<arm id>".
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerStore opens (or creates) a Badger database.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("badger dir is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{s: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// #endregion badger-store

// #region badger-read
// Load reads every posterior.
func (s *BadgerStore) Load() (map[arm.ID]Posterior, error) {
	out := make(map[arm.ID]Posterior)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var p Posterior
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out[p.ArmID] = p
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load posteriors: %w", err)
	}
	return out, nil
}

// Get reads a single posterior.
func (s *BadgerStore) Get(id arm.ID) (Posterior, error) {
	var p Posterior
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Posterior{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Posterior{}, fmt.Errorf("get %s: %w", id, err)
	}
	return p, nil
}

// #endregion badger-read

// #region badger-write
// Save upserts one posterior.
func (s *BadgerStore) Save(p Posterior) error {
	return s.SaveBatch([]Posterior{p})
}

// SaveBatch upserts every posterior in one transaction.
func (s *BadgerStore) SaveBatch(ps []Posterior) error {
	if len(ps) == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, p := range ps {
			if p.LastUpdated.IsZero() {
				p.LastUpdated = s.now()
			}
			if err := put(txn, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save posteriors: %w", err)
	}
	return nil
}

// Reset sets one arm (or all arms when id is empty) back to Beta(1,1).
func (s *BadgerStore) Reset(id arm.ID) (int, error) {
	now := s.now()
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		if id != "" {
			if _, err := txn.Get(key(id)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil
				}
				return err
			}
			count = 1
			return put(txn, Uniform(id, now))
		}

		var ids []arm.ID
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, arm.ID(it.Item().Key()[len(keyPrefix):]))
		}
		it.Close()
		for _, armID := range ids {
			if err := put(txn, Uniform(armID, now)); err != nil {
				return err
			}
		}
		count = len(ids)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reset posteriors: %w", err)
	}
	return count, nil
}

func put(txn *badger.Txn, p Posterior) error {
	val, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.ArmID, err)
	}
	return txn.Set(key(p.ArmID), val)
}

func key(id arm.ID) []byte {
	return []byte(keyPrefix + string(id))
}

// #endregion badger-write
