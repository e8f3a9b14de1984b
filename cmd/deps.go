package cmd

import (
	"fmt"
	"sort"
	"time"

	"billing/internal/config"
	"billing/internal/store"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// sortedKeys returns the map keys in ascending order for stable output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// openStore loads the configuration and opens the SQLite store behind it.
// The caller owns the returned store and must Close it.
func openStore() (*config.Config, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store at %s: %w", cfg.DBPath, err)
	}
	return cfg, st, nil
}
