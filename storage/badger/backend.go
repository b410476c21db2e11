package badger

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// sequenceLease is how many IDs a sequence reserves per disk write.
const sequenceLease = 100

// Backend owns the badger handle shared by a Store.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

type backendConfig struct {
	logger     *slog.Logger
	syncWrites bool
}

// BackendOption configures OpenBackend.
type BackendOption func(*backendConfig)

// WithBackendLogger routes badger's internal log output to logger.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(c *backendConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSyncWrites makes every commit fsync before returning.
func WithSyncWrites(enabled bool) BackendOption {
	return func(c *backendConfig) {
		c.syncWrites = enabled
	}
}

// OpenBackend opens the database in dir, creating the directory when needed.
// An empty dir opens a throwaway in-memory database.
func OpenBackend(dir string, opts ...BackendOption) (*Backend, error) {
	cfg := backendConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("component", "badger")

	var bopts badger.Options
	if dir == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		bopts = badger.DefaultOptions(dir).WithSyncWrites(cfg.syncWrites)
	}
	bopts = bopts.
		WithLogger(slogAdapter{logger}).
		WithCompression(options.None)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	logger.Debug("database opened", "dir", dir, "in_memory", dir == "")
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn in a fresh transaction, read-write when write is set.
// fn must call Commit itself; anything uncommitted is discarded.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, write bool) error {
	tx := b.db.NewTransaction(write)
	defer tx.Discard()
	return fn(tx)
}

// Sequence returns the named monotonic counter. Callers release it.
func (b *Backend) Sequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), sequenceLease)
}

// DeletePrefixes removes every key starting with one of prefixes and returns
// how many keys were removed. Deletion is batched and not atomic.
func (b *Backend) DeletePrefixes(prefixes ...string) (int, error) {
	var keys [][]byte
	err := b.db.View(func(tx *badger.Txn) error {
		for _, prefix := range prefixes {
			keys = appendKeys(tx, []byte(prefix), keys)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	b.logger.Debug("deleted keys", "prefixes", prefixes, "count", len(keys))
	return len(keys), nil
}

func appendKeys(tx *badger.Txn, prefix []byte, keys [][]byte) [][]byte {
	it := tx.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// slogAdapter satisfies badger.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = slogAdapter{}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}
