package render

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ocx/smugdancer/internal/ghosterr"
)

// SelectFrames walks an accumulator over the source animation: for each
// output frame it takes floor(accumulator)+1 as the (1-based) input
// frame index, then advances the accumulator by speed. The result is
// bounds-checked against the source animation's frame count before any
// encoder is invoked: a render can never select more output frames than
// the source has, since that would mean revisiting frames out of order
// to pad the output.
func SelectFrames(speed float64, frameCount int) ([]int, *ghosterr.Error) {
	outputFrames := int(float64(frameCount) / speed)
	if outputFrames <= 1 {
		return nil, ghosterr.SpeedTooFast()
	}
	if outputFrames > frameCount {
		return nil, ghosterr.SpeedTooSlow()
	}

	frames := make([]int, outputFrames)
	accumulator := 0.0
	for i := range frames {
		frames[i] = int(accumulator) + 1
		accumulator += speed
	}
	return frames, nil
}

// BuildArgs expands the configured encoder flags against fps and the
// selected frame indices. A flag containing the literal substring "{fps}"
// has that token replaced by fps; a flag containing "{frame_indices}" is expanded
// into one argument per frame, substituting the token each time while
// preserving any surrounding text in the flag. All other flags pass
// through unchanged.
func BuildArgs(flags []string, fps float64, frames []int) []string {
	args := make([]string, 0, len(flags)+len(frames))
	for _, flag := range flags {
		switch {
		case strings.Contains(flag, "{frame_indices}"):
			for _, frame := range frames {
				args = append(args, strings.ReplaceAll(flag, "{frame_indices}", strconv.Itoa(frame)))
			}
		case strings.Contains(flag, "{fps}"):
			args = append(args, strings.ReplaceAll(flag, "{fps}", strconv.FormatFloat(fps, 'f', -1, 64)))
		default:
			args = append(args, flag)
		}
	}
	return args
}

// RunEncoder runs the encoder binary with the given arguments and returns
// its captured stdout. No shell is involved.
func RunEncoder(ctx context.Context, encoderPath string, args []string) ([]byte, *ghosterr.Error) {
	cmd := exec.CommandContext(ctx, encoderPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, ghosterr.EncoderExitCode(exitErr.ExitCode(), stderr.String())
		}
		return nil, ghosterr.Encoder(err)
	}
	return stdout.Bytes(), nil
}
