package render

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ocx/smugdancer/internal/animation"
	"github.com/ocx/smugdancer/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelectFrames_NaturalSpeed(t *testing.T) {
	frames, err := SelectFrames(1.0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if len(frames) != len(want) {
		t.Fatalf("frames = %v, want %v", frames, want)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frames[%d] = %d, want %d", i, frames[i], want[i])
		}
	}
}

func TestSelectFrames_DoubleSpeedSkipsFrames(t *testing.T) {
	frames, err := SelectFrames(2.0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 3, 5, 7, 9}
	if len(frames) != len(want) {
		t.Fatalf("frames = %v, want %v", frames, want)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frames[%d] = %d, want %d", i, frames[i], want[i])
		}
	}
}

func TestSelectFrames_TooFast(t *testing.T) {
	_, err := SelectFrames(20.0, 10)
	if err == nil || err.Kind.String() != "speed_too_fast" {
		t.Fatalf("err = %v, want speed_too_fast", err)
	}
}

func TestSelectFrames_TooSlow(t *testing.T) {
	_, err := SelectFrames(0.0001, 10)
	if err == nil || err.Kind.String() != "speed_too_slow" {
		t.Fatalf("err = %v, want speed_too_slow", err)
	}
}

// TestSelectFrames_TooSlow_JustOverFrameCount checks the bound against
// frameCount itself, not some larger fixed ceiling: 800 output frames
// from a 720-frame source must be rejected even though 800 is a
// thoroughly reasonable frame count in isolation.
func TestSelectFrames_TooSlow_JustOverFrameCount(t *testing.T) {
	_, err := SelectFrames(0.9, 720)
	if err == nil || err.Kind.String() != "speed_too_slow" {
		t.Fatalf("err = %v, want speed_too_slow", err)
	}
}

func TestBuildArgs_ExpandsFrameIndicesAndFPS(t *testing.T) {
	flags := []string{"--fps", "{fps}", "--frames", "{frame_indices}", "--loop"}
	args := BuildArgs(flags, 25, []int{1, 3, 5})

	want := []string{"--fps", "25", "--frames", "1", "3", "5", "--loop"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func newTestService(t *testing.T, encoder string, flags []string, maxJobs int) (*Service, context.Context, context.CancelFunc) {
	t.Helper()
	cfg := Config{Encoder: encoder, EncoderFlags: flags, MaxJobs: maxJobs}
	anim := animation.Info{FPS: 50, WaveCount: 12, FrameCount: 100}
	svc := New(cfg, anim, testLogger(), metrics.New())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	return svc, ctx, cancel
}

// TestRenderSpeed_CoalescesConcurrentRequests exercises two concurrent
// requests for the identical speed and checks that exactly one of them
// reports queue position 0, and both receive the same bytes.
func TestRenderSpeed_CoalescesConcurrentRequests(t *testing.T) {
	svc, _, cancel := newTestService(t, "echo", []string{"rendered"}, 2)
	defer cancel()

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]struct {
		bytes []byte
		pos   int
		err   error
	}, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, pos, err := svc.RenderSpeed(ctx, 3.0)
			results[i].bytes = b
			results[i].pos = pos
			results[i].err = err
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		require.NoErrorf(t, r.err, "result[%d]", i)
	}
	positions := map[int]bool{results[0].pos: true, results[1].pos: true}
	require.True(t, positions[0] && positions[1], "positions = %v, want {0,1}", positions)
	require.Equal(t, results[0].bytes, results[1].bytes, "coalesced waiters must see identical bytes")
}

func TestRenderSpeed_TooFastReturnsError(t *testing.T) {
	svc, _, cancel := newTestService(t, "echo", []string{"x"}, 1)
	defer cancel()

	_, _, err := svc.RenderSpeed(context.Background(), 1000.0)
	if err == nil {
		t.Fatal("expected error for an excessively fast speed")
	}
}

func TestRenderSpeed_ContextCanceledBeforeDispatch(t *testing.T) {
	svc, _, cancel := newTestService(t, "echo", []string{"x"}, 1)
	cancel()
	time.Sleep(10 * time.Millisecond)

	ctx, cancelCall := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelCall()
	_, _, err := svc.RenderSpeed(ctx, 2.0)
	if err == nil {
		t.Fatal("expected an error once the coordinator has stopped")
	}
}
