package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartTombstoneCompactor periodically drops the payload of records closed
// longer than retention ago. The address row stays, so a closed address can
// never be created again. A non-positive interval disables compaction.
func StartTombstoneCompactor(
	ctx context.Context,
	db *sql.DB,
	driver Driver,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		log.Info("tombstone compaction disabled", zap.Duration("interval", interval))
		return
	}
	ticker := time.NewTicker(interval)
	query := driver.Rebind(`
        UPDATE records
           SET data = NULL, size = 0
         WHERE closed = true
           AND closed_at < $1
           AND data IS NOT NULL
    `)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention).Unix()
				res, err := db.ExecContext(ctx, query, cutoff)
				if err != nil {
					log.Error("failed to compact tombstones", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("compacted tombstones", zap.Int64("reclaimed", rows))
				}
			}
		}
	}()
}
