package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/almartin82/vtschooldata/internal/config"
)

// Driver names a Store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverSQLite     Driver = "sqlite"
)

// Entry is a stored blob with the time it was written.
type Entry struct {
	Key      Key
	Data     []byte
	StoredAt time.Time
}

// EntryInfo describes an entry without its payload.
type EntryInfo struct {
	Key      Key
	Size     int64
	StoredAt time.Time
}

// Store persists cache entries. Implementations are safe for use by one
// process; nothing coordinates writers across processes.
type Store interface {
	Driver() Driver
	// Read returns false when key has no entry.
	Read(ctx context.Context, key Key) (Entry, bool, error)
	// Write replaces any existing entry for key.
	Write(ctx context.Context, entry Entry) error
	// Delete reports whether an entry existed.
	Delete(ctx context.Context, key Key) (bool, error)
	// List returns every entry, ordered by key.
	List(ctx context.Context) ([]EntryInfo, error)
	Close() error
}

// OpenStore selects the store configured in cfg.
func OpenStore(cfg config.CacheConfig, logger *slog.Logger) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFilesystemStore(cfg.Dir)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		if logger != nil {
			logger.Error("unknown cache driver", slog.String("driver", cfg.Driver))
		}
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
