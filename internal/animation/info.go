// Package animation holds the immutable properties of the source animation
// and the BPM/speed math derived from them.
package animation

import "math"

// Info describes the source animation: its playback rate, how many times
// it "waves" over its full length, and how many frames it has.
type Info struct {
	FPS        float64
	WaveCount  float64
	FrameCount int
}

// MinimumBPM is the BPM at which the animation plays at its natural (1.0x)
// speed.
func (i Info) MinimumBPM() float64 {
	return i.WaveCount * i.FPS * 60 / float64(i.FrameCount)
}

// Quantize rounds bpm up to the closest BPM at or above it that
// corresponds to an integer number of selected output frames (the frame
// count is floored), and returns that frame count alongside it. Two BPMs that quantize to the same output frame count always
// quantize to the same bpm value (bit for bit), which is what lets the
// cache and render services key on the quantized BPM's speed.
func (i Info) Quantize(bpm float64) (quantizedBPM float64, outputFrames int) {
	rawFrames := i.WaveCount * i.FPS * 60 / bpm
	outputFrames = int(math.Floor(rawFrames))
	quantizedBPM = i.WaveCount * i.FPS * 60 / float64(outputFrames)
	return quantizedBPM, outputFrames
}

// Speed converts an already-quantized BPM into the speed ratio the render
// service operates on: 1.0 plays the source animation at its natural rate.
func (i Info) Speed(quantizedBPM float64) float64 {
	return quantizedBPM / i.MinimumBPM()
}
