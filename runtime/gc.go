package runtime

import (
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// StorageGCWorker reclaims Badger value-log space on a fixed interval.
// Badger never garbage-collects on its own; without this worker the
// message log's value files only ever grow.
type StorageGCWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewStorageGCWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *StorageGCWorker {
	return &StorageGCWorker{log: log, db: db, interval: interval}
}

func (w *StorageGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// One GC call rewrites at most one value-log file; loop
			// until there is nothing left worth rewriting.
			for {
				err := w.db.RunValueLogGC(0.5)
				if goerrors.Is(err, badger.ErrNoRewrite) {
					break
				}
				if err != nil {
					w.log.Warn("value log GC failed", "error", err)
					break
				}
				w.log.Debug("value log file reclaimed")
			}
		}
	}
}
