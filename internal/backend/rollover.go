package backend

import (
	"context"
	"time"
)

// WatchYear polls the clock every interval. Once the year differs from the
// year of the open data files it waits for the in-flight change to finish,
// keeps the change lock so no further change can start, and returns
// ErrYearRollover. The caller is expected to shut down and be restarted
// against the new year's files.
func (b *Backend) WatchYear(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.opts.Now().In(b.opts.Location).Year() == b.store.Year() {
				continue
			}
			b.logger.Warn("year has changed; draining changes before shutdown", "dataYear", b.store.Year())
			if b.Stalled() {
				return ErrYearRollover
			}

			acquired := make(chan func(), 1)
			go func() { acquired <- b.lock.Acquire() }()
			select {
			case <-acquired:
				return ErrYearRollover
			case <-ctx.Done():
				// The queued acquisition still completes later; release
				// the lock as soon as it does.
				go func() { (<-acquired)() }()
				return ctx.Err()
			}
		}
	}
}
