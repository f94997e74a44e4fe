package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ocx/smugdancer/internal/ghosterr"
)

// collectGarbage purges the least-recently-used cached files once the
// cache directory reaches cfg.Limit bytes, removing files (at most
// cfg.PurgeMaxCount of them) until it is at or under cfg.PurgeLimit. A
// failure to list the cache directory or to query the LRU index is
// returned (and is the caller's responsibility to log); everything past
// that point is best-effort, since a single missing file or failed
// removal should never fail the request that triggered GC.
func (s *Service) collectGarbage(ctx context.Context) *ghosterr.Error {
	entries, err := os.ReadDir(s.cfg.CacheDir)
	if err != nil {
		return ghosterr.CollectGarbage(err)
	}

	var totalSize uint64
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		totalSize += uint64(info.Size())
	}

	if totalSize < s.cfg.Limit {
		return nil
	}
	s.logger.Info("purging cache", "limit", s.cfg.Limit, "total_size", totalSize)

	oldest, err := s.store.Oldest(ctx, s.cfg.PurgeMaxCount)
	if err != nil {
		return ghosterr.DBQuery(err)
	}

	type candidate struct {
		filename string
		size     uint64
	}
	var toRemove []candidate
	for _, filename := range oldest {
		info, err := os.Stat(filename)
		if err != nil {
			// Already gone; nothing to reclaim, nothing to remove.
			continue
		}
		toRemove = append(toRemove, candidate{filename: filename, size: uint64(info.Size())})
		totalSize -= uint64(info.Size())
		if totalSize <= s.cfg.PurgeLimit {
			break
		}
	}

	var removed []string
	var reclaimedBytes uint64
	for _, c := range toRemove {
		if err := os.Remove(c.filename); err != nil {
			s.logger.Warn("cache purge: cannot remove file", "file", c.filename, "error", err)
			continue
		}
		s.logger.Debug("cache purge: removed file", "file", c.filename)
		removed = append(removed, c.filename)
		reclaimedBytes += c.size
	}

	s.metrics.GCRunsTotal.Inc()
	s.metrics.GCPurgedFilesTotal.Add(float64(len(removed)))
	s.metrics.GCPurgedBytesTotal.Add(float64(reclaimedBytes))

	for _, filename := range removed {
		if err := s.store.Forget(ctx, filename); err != nil {
			s.logger.Warn("cache purge: cannot forget file in index", "file", filename, "error", err)
		}
	}

	return nil
}

// cachedFilePath returns the absolute path a speed's rendered GIF is (or
// would be) stored at.
func (s *Service) cachedFilePath(filename string) string {
	path := filepath.Join(s.cfg.CacheDir, filename)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
