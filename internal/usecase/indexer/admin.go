package indexer

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/store"
)

// Optimize compacts the index file and purges availability documents older
// than the retention window. Called by the maintenance scheduler and by the
// admin endpoint.
func (s *Service) Optimize(ctx context.Context) error {
	if err := s.guard.Lock(ctx); err != nil {
		return err
	}
	defer s.guard.Unlock()

	sizeBefore := s.fileSize()

	if err := s.queue.Enqueue(ctx, "compact index",
		func(ctx context.Context, st *store.Store) error {
			return st.Compact(ctx)
		}); err != nil {
		return fmt.Errorf("compact index: %w", err)
	}

	cutoff := s.now().Add(-s.retention)
	var purged int64
	if err := s.queue.Enqueue(ctx, "purge stale availability",
		func(ctx context.Context, st *store.Store) error {
			n, err := st.PurgeStaleAvailability(ctx, cutoff)
			purged = n
			return err
		}); err != nil {
		return fmt.Errorf("purge stale availability: %w", err)
	}

	s.cache.Clear()
	s.logger.Info("index optimized",
		zap.Int64("size_before_bytes", sizeBefore),
		zap.Int64("size_after_bytes", s.fileSize()),
		zap.Int64("stale_availability_purged", purged),
	)
	return nil
}

// Rebuild drops the index file, reinitializes the schema and replays every
// active property from the primary store. A schema initialization failure is
// returned because a broken store must not be silently left in place;
// per-property failures are logged and skipped.
func (s *Service) Rebuild(ctx context.Context) error {
	if err := s.guard.Lock(ctx); err != nil {
		return err
	}
	defer s.guard.Unlock()

	s.logger.Info("full index rebuild started", zap.String("path", s.indexPath))

	for _, path := range []string{s.indexPath, s.indexPath + "-wal", s.indexPath + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove index file %s: %w", path, err)
		}
	}

	st, err := store.Open(s.indexPath)
	if err != nil {
		return fmt.Errorf("reinitialize index: %w", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return fmt.Errorf("reinitialize index schema: %w", err)
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("close index after schema init: %w", err)
	}

	ids, err := s.properties.ListActivePropertyIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active properties: %w", err)
	}

	indexed := 0
	for _, id := range ids {
		if err := s.indexProperty(ctx, id); err != nil {
			s.logger.Error("rebuild: index property failed",
				zap.String("property_id", id), zap.Error(err))
			continue
		}
		indexed++
		if indexed%100 == 0 {
			s.logger.Info("rebuild progress",
				zap.Int("indexed", indexed), zap.Int("total", len(ids)))
		}
	}

	s.cache.Clear()
	s.logger.Info("full index rebuild finished",
		zap.Int("indexed", indexed), zap.Int("total", len(ids)))
	return nil
}

func (s *Service) fileSize() int64 {
	info, err := os.Stat(s.indexPath)
	if err != nil {
		return -1
	}
	return info.Size()
}
