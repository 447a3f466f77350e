package storage

import (
	"fmt"
	"strings"
)

// Open selects a backend by name: "memory", "leveldb" or "bolt".
func Open(backend, path string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory", "mem":
		return NewMemDB(), nil
	case "leveldb", "level":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("storage: leveldb requires a path")
		}
		return NewLevelDB(path)
	case "bolt", "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("storage: bolt requires a path")
		}
		return NewBoltDB(path, nil)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
