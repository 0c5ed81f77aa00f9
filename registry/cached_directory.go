package registry

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metrics"
)

var (
	nextBlockKey   = []byte("directory/next_block")
	addressKeyPref = []byte("directory/address/")
)

// CachedDirectory persists discovered institution addresses in Badger so each
// listing only scans blocks not yet indexed. It serves the same best-effort contract
// as EventScanDirectory: the scan cursor advances only over contiguous successful chunks.
type CachedDirectory struct {
	scanner *EventScanDirectory
	db      *badger.DB
	metrics *metrics.Metrics
	log     *slog.Logger
}

// OpenCachedDirectory opens (or creates) the index at path. An empty path keeps the index in memory.
func OpenCachedDirectory(path string, scanner *EventScanDirectory, log *slog.Logger) (*CachedDirectory, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(&badgerLogger{log: log}).
		WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory cache dir: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening directory cache: %w", err)
	}
	return &CachedDirectory{scanner: scanner, db: db, log: log}, nil
}

func (c *CachedDirectory) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

func (c *CachedDirectory) Close() error {
	return c.db.Close()
}

// ListInstitutions indexes new blocks up to the chain head, then hydrates every indexed address.
func (c *CachedDirectory) ListInstitutions(ctx context.Context) ([]interfaces.DirectoryEntry, error) {
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	addrs, err := c.Addresses()
	if err != nil {
		return nil, err
	}
	return c.scanner.hydrate(ctx, addrs)
}

// Refresh scans blocks after the persisted cursor and records new addresses.
func (c *CachedDirectory) Refresh(ctx context.Context) error {
	next, err := c.nextBlock()
	if err != nil {
		return err
	}

	head, err := c.scanner.logs.BlockNumber(ctx)
	if err != nil {
		return ClassifyError("eth_blockNumber", err)
	}
	if next > head {
		return nil
	}

	scan := c.scanner.scan(ctx, next, head)
	if err := ctx.Err(); err != nil {
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		for _, addr := range scan.addresses {
			if err := txn.Set(addressKey(addr), nil); err != nil {
				return err
			}
		}
		if scan.resumeFrom > next {
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], scan.resumeFrom)
			return txn.Set(nextBlockKey, buf[:])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating directory cache: %w", err)
	}

	if !scan.complete {
		c.log.Warn("directory scan incomplete, will rescan from cursor", "cursor", scan.resumeFrom, "head", head)
	}
	c.metrics.SetDirectoryNextBlock(scan.resumeFrom)
	return nil
}

// Addresses returns every indexed institution address in byte order.
func (c *CachedDirectory) Addresses() ([]common.Address, error) {
	var addrs []common.Address
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = addressKeyPref
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			addrs = append(addrs, common.BytesToAddress(key[len(addressKeyPref):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading directory cache: %w", err)
	}
	return addrs, nil
}

func (c *CachedDirectory) nextBlock() (uint64, error) {
	next := c.scanner.startBlock
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nextBlockKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt directory cursor of length %d", len(val))
			}
			if stored := binary.BigEndian.Uint64(val); stored > next {
				next = stored
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("reading directory cursor: %w", err)
	}
	return next, nil
}

func addressKey(addr common.Address) []byte {
	key := make([]byte, 0, len(addressKeyPref)+common.AddressLength)
	key = append(key, addressKeyPref...)
	return append(key, addr.Bytes()...)
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.log.Error(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.log.Warn(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.log.Info(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.log.Debug(fmt.Sprintf(msg, args...), "component", "badger")
}
