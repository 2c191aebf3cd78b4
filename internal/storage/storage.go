package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "search_stats"
)

// Preferences stores the engine settings that survive restarts. They act as
// configuration fallback under the YAML file and setoption.
type Preferences struct {
	Backend           string    `json:"backend"`
	WeightsFile       string    `json:"weights_file"`
	BackendOptions    string    `json:"backend_options"`
	PolicySoftmaxTemp float64   `json:"policy_softmax_temp"`
	HistoryFill       string    `json:"history_fill"`
	SearchMode        string    `json:"search_mode"`
	LastUsed          time.Time `json:"last_used"`
}

// DefaultPreferences returns the built-in engine defaults.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Backend:           "random",
		PolicySoftmaxTemp: 1.0,
		HistoryFill:       "fen_only",
		SearchMode:        "policyhead",
		LastUsed:          time.Now(),
	}
}

// StrategyStats accumulates per-strategy counters.
type StrategyStats struct {
	Searches int64 `json:"searches"`
	Nodes    int64 `json:"nodes"`
}

// SearchStats stores cumulative search statistics.
type SearchStats struct {
	Searches   int64                    `json:"searches"`
	Nodes      int64                    `json:"nodes"`
	ByStrategy map[string]StrategyStats `json:"by_strategy"`
}

// NewSearchStats returns empty statistics.
func NewSearchStats() *SearchStats {
	return &SearchStats{
		ByStrategy: make(map[string]StrategyStats),
	}
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database under the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return NewStorageAt(dbDir)
}

// NewStorageAt opens the database in an explicit directory.
func NewStorageAt(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's logger writes to stdout, which belongs to UCI

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePreferences saves the engine preferences.
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.LastUsed = time.Now()

	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads the engine preferences, returning defaults when
// nothing has been saved yet.
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPreferences))
		if err == badger.ErrKeyNotFound {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, prefs)
		})
	})

	return prefs, err
}

// SaveStats saves the search statistics.
func (s *Storage) SaveStats(stats *SearchStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}

// LoadStats loads the search statistics, returning empty stats when nothing
// has been saved yet.
func (s *Storage) LoadStats() (*SearchStats, error) {
	stats := NewSearchStats()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil // Use empty stats
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})

	return stats, err
}

// RecordSearch records one completed search for a strategy.
func (s *Storage) RecordSearch(strategy string, nodes int64) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.Searches++
	stats.Nodes += nodes
	byStrategy := stats.ByStrategy[strategy]
	byStrategy.Searches++
	byStrategy.Nodes += nodes
	stats.ByStrategy[strategy] = byStrategy

	return s.SaveStats(stats)
}
