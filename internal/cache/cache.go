// Package cache serves rendered GIFs from an on-disk cache, falling back
// to the render service on a miss, and keeps a persistent LRU index that
// drives garbage collection once the cache directory grows past a
// configured size.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/ocx/smugdancer/internal/ghosterr"
	"github.com/ocx/smugdancer/internal/metrics"
	"github.com/ocx/smugdancer/internal/render"
)

// Config configures the cache directory, its backing index, and the
// eviction thresholds.
type Config struct {
	CacheDir      string
	Database      string
	Limit         uint64
	PurgeLimit    uint64
	PurgeMaxCount int
}

// Service serves cached renders, coordinating with a render.Service on a
// miss and a Store for LRU bookkeeping.
type Service struct {
	cfg     Config
	render  *render.Service
	store   *Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a Service. The caller is expected to have created cfg.CacheDir
// already (see Setup).
func New(cfg Config, renderSvc *render.Service, store *Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{cfg: cfg, render: renderSvc, store: store, logger: logger, metrics: m}
}

// Setup creates the cache directory if it doesn't exist.
func Setup(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return ghosterr.DirSetup(err)
	}
	return nil
}

// cachedFilename is the on-disk name of a speed's rendered GIF: its
// IEEE-754 bit pattern in hex, so equal speeds always collide onto the
// same file regardless of how they were computed.
func cachedFilename(speed float64) string {
	return fmt.Sprintf("%x.gif", math.Float64bits(speed))
}

// Request serves speed's rendered GIF, from cache if present, otherwise
// by rendering it and (if this caller is the one responsible) writing it
// to the cache.
func (s *Service) Request(ctx context.Context, speed float64) ([]byte, *ghosterr.Error) {
	filename := cachedFilename(speed)
	path := s.cachedFilePath(filename)

	bytes, err := os.ReadFile(path)
	switch {
	case err == nil:
		s.metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()

	case os.IsNotExist(err):
		s.metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

		if gcErr := s.collectGarbage(ctx); gcErr != nil {
			s.logger.Error("cache garbage collection failed", "error", gcErr)
		}

		rendered, queuePosition, rerr := s.render.RenderSpeed(ctx, speed)
		if rerr != nil {
			// RenderSpeed already wraps errors delivered to secondary
			// waiters in RenderFailed; surface it unchanged rather than
			// wrapping a second time.
			if gerr, ok := rerr.(*ghosterr.Error); ok {
				return nil, gerr
			}
			return nil, ghosterr.EncodingJobExited()
		}
		if queuePosition == 0 {
			if werr := writeAtomic(path, rendered); werr != nil {
				return nil, ghosterr.CannotWriteGif(werr)
			}
		}
		bytes = rendered

	default:
		return nil, ghosterr.CannotReadGif(err)
	}

	go s.touchLRU(filename, path)

	return bytes, nil
}

// touchLRU records the current time against path in the LRU index.
// It runs in its own goroutine so this bookkeeping never delays the
// response; a failure here is logged, not surfaced to the client.
func (s *Service) touchLRU(filename, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.Touch(ctx, path, time.Now().Unix()); err != nil {
		s.logger.Warn("cannot record cache usage", "file", filename, "error", err)
	}
}

// writeAtomic writes data to path by writing to a sibling temp file and
// renaming into place, so a concurrent reader never observes a partial
// file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
