// Package render implements the encoding pipeline: coalescing concurrent
// requests for the same speed into a single encoder invocation, bounding
// how many invocations run at once, and fanning the result back out to
// every waiter.
package render

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ocx/smugdancer/internal/animation"
	"github.com/ocx/smugdancer/internal/ghosterr"
	"github.com/ocx/smugdancer/internal/metrics"
)

// Config configures the encoder invocation and its concurrency bound.
type Config struct {
	// Encoder is the path to the encoder executable.
	Encoder string
	// EncoderFlags are passed to the encoder. One of them must contain the
	// literal substring "{frame_indices}", and one may contain "{fps}".
	EncoderFlags []string
	// MaxJobs caps how many encoder subprocesses may run concurrently.
	MaxJobs int
}

// result is what a render produces: either the encoded bytes, or a
// failure every waiter of the same speed will be told about.
type result struct {
	bytes []byte
	err   *ghosterr.Error
}

type queueRequest struct {
	speed     float64
	responder chan waiterResult
}

type waiterResult struct {
	bytes         []byte
	queuePosition int
	err           *ghosterr.Error
}

type completedRender struct {
	speedBits uint64
	result    result
}

// Service coalesces renders and bounds how many run at once. Its exported surface is just
// RenderSpeed; everything else lives behind two goroutines started by
// Start.
type Service struct {
	cfg     Config
	anim    animation.Info
	logger  *slog.Logger
	metrics *metrics.Metrics

	jobs *semaphore.Weighted

	queueRequests    chan queueRequest
	renderRequests   chan float64
	completedRenders chan completedRender
}

// New builds a Service. Call Start before the first RenderSpeed.
func New(cfg Config, anim animation.Info, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		cfg:              cfg,
		anim:             anim,
		logger:           logger,
		metrics:          m,
		jobs:             semaphore.NewWeighted(int64(cfg.MaxJobs)),
		queueRequests:    make(chan queueRequest, 32),
		renderRequests:   make(chan float64, 32),
		completedRenders: make(chan completedRender, 8),
	}
}

// Start launches the coordinator and dispatcher goroutines. It returns
// immediately; both goroutines run until ctx is canceled.
func (s *Service) Start(ctx context.Context) {
	go s.coordinate(ctx)
	go s.dispatch(ctx)
}

// coordinate owns the waiter queues. It is the only goroutine that ever
// touches them, so no lock is needed: every mutation is driven through
// the two channels it selects on.
func (s *Service) coordinate(ctx context.Context) {
	s.logger.Info("render coordinator ready")
	queues := make(map[uint64][]chan waiterResult)

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-s.queueRequests:
			bits := math.Float64bits(req.speed)
			waiters := queues[bits]
			shouldRender := len(waiters) == 0
			queues[bits] = append(waiters, req.responder)
			if shouldRender {
				select {
				case s.renderRequests <- req.speed:
				case <-ctx.Done():
					return
				}
			}

		case done := <-s.completedRenders:
			waiters := queues[done.speedBits]
			delete(queues, done.speedBits)
			for i, waiter := range waiters {
				wr := waiterResult{queuePosition: i}
				if done.result.err != nil {
					if i == 0 {
						wr.err = done.result.err
					} else {
						wr.err = ghosterr.RenderFailed(done.result.err)
					}
				} else {
					wr.bytes = done.result.bytes
				}
				// Buffered with capacity 1: never blocks even if the
				// caller gave up waiting.
				waiter <- wr
			}
		}
	}
}

// dispatch receives render requests one at a time and spawns a worker
// goroutine for each; concurrency across workers is bounded by the
// semaphore, not by this goroutine, so it never blocks waiting on a slow
// render.
func (s *Service) dispatch(ctx context.Context) {
	s.logger.Info("render dispatcher ready")
	for {
		select {
		case <-ctx.Done():
			return
		case speed := <-s.renderRequests:
			go s.runOne(ctx, speed)
		}
	}
}

func (s *Service) runOne(ctx context.Context, speed float64) {
	bytes, err := s.renderSpeed(ctx, speed)
	select {
	case s.completedRenders <- completedRender{speedBits: math.Float64bits(speed), result: result{bytes: bytes, err: err}}:
	case <-ctx.Done():
	}
}

// renderSpeed does the actual encoding work for one speed, gated by the
// job semaphore.
func (s *Service) renderSpeed(ctx context.Context, speed float64) ([]byte, *ghosterr.Error) {
	if err := s.jobs.Acquire(ctx, 1); err != nil {
		return nil, ghosterr.EncodingJobExited()
	}
	defer s.jobs.Release(1)

	jobID := uuid.New().String()
	s.logger.Debug("starting render", "job_id", jobID, "speed", speed)

	frames, ferr := SelectFrames(speed, s.anim.FrameCount)
	if ferr != nil {
		s.metrics.RenderJobsTotal.WithLabelValues("error").Inc()
		return nil, ferr
	}

	args := BuildArgs(s.cfg.EncoderFlags, s.anim.FPS, frames)

	start := time.Now()
	out, rerr := RunEncoder(ctx, s.cfg.Encoder, args)
	s.metrics.RenderDuration.Observe(time.Since(start).Seconds())

	if rerr != nil {
		s.metrics.RenderJobsTotal.WithLabelValues("error").Inc()
		s.logger.Debug("render failed", "job_id", jobID, "speed", speed, "error", rerr)
		return nil, rerr
	}
	s.metrics.RenderJobsTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("render complete", "job_id", jobID, "speed", speed)
	return out, nil
}

// RenderSpeed requests a render for speed and blocks until it is done,
// whether that render was started by this call or coalesced into one
// already in flight. On success it also reports the caller's position in
// the list of waiters for that render: position 0 is responsible for
// writing the result to the cache.
func (s *Service) RenderSpeed(ctx context.Context, speed float64) ([]byte, int, error) {
	responder := make(chan waiterResult, 1)
	req := queueRequest{speed: speed, responder: responder}

	select {
	case s.queueRequests <- req:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}

	select {
	case wr := <-responder:
		if wr.err != nil {
			return nil, 0, wr.err
		}
		return wr.bytes, wr.queuePosition, nil
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}
