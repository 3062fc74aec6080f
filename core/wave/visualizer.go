package wave

import (
	"context"
	"io"
	"time"
)

// analysisWindow is the number of time-domain samples drawn per frame.
const analysisWindow = 1024

// Stroke colors for the two UI themes.
const (
	strokeDark  = "hsl(210,40%,98%)"
	strokeLight = "hsl(222.2,47.4%,11.2%)"
)

// SampleSource delivers live audio samples in the range [-1, 1]. Read
// fills buf with the most recent samples and returns how many are valid.
type SampleSource interface {
	Read(buf []float32) (int, error)
}

// Canvas abstracts the drawing surface the UI shell provides.
type Canvas interface {
	Size() (width, height int)
	Clear()
	SetStroke(color string, width float64)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
}

// ThemeFunc reports whether the dark theme is active. It is re-evaluated
// every frame so a live theme toggle recolors the trace without a restart.
type ThemeFunc func() bool

// Visualizer renders a continuously updating amplitude trace of a live
// audio signal. It is a best-effort visual: missing collaborators degrade
// to a silent no-op rather than an error.
type Visualizer struct {
	source SampleSource
	canvas Canvas
	isDark ThemeFunc

	// FrameInterval defaults to ~60 frames per second.
	FrameInterval time.Duration
}

// NewVisualizer wires a visualizer. Either argument may be nil; Run then
// does nothing.
func NewVisualizer(source SampleSource, canvas Canvas, isDark ThemeFunc) *Visualizer {
	return &Visualizer{
		source:        source,
		canvas:        canvas,
		isDark:        isDark,
		FrameInterval: time.Second / 60,
	}
}

// Run draws frames until ctx is cancelled or the source ends. Start it on
// stream attach and cancel the context on teardown; there is no separate
// stop call. It never returns an error: degraded preconditions no-op.
func (v *Visualizer) Run(ctx context.Context) {
	if v == nil || v.source == nil || v.canvas == nil {
		return
	}

	ticker := time.NewTicker(v.FrameInterval)
	defer ticker.Stop()

	buf := make([]float32, analysisWindow)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := v.source.Read(buf)
			if err == io.EOF {
				return
			}
			if err != nil {
				// Live capture hiccups are transient; skip the frame.
				continue
			}
			v.drawFrame(buf[:n])
		}
	}
}

// drawFrame strokes one connected path across the canvas: sample i maps to
// x = i * width/len, its amplitude to a y scaled to canvas height, with a
// final segment to the vertical midpoint at the right edge.
func (v *Visualizer) drawFrame(samples []float32) {
	if len(samples) == 0 {
		return
	}
	width, height := v.canvas.Size()
	if width <= 0 || height <= 0 {
		return
	}

	v.canvas.Clear()
	color := strokeLight
	if v.isDark != nil && v.isDark() {
		color = strokeDark
	}
	v.canvas.SetStroke(color, 2)

	sliceWidth := float64(width) / float64(len(samples))
	x := 0.0
	for i, s := range samples {
		y := (float64(s) + 1) * float64(height) / 2
		if i == 0 {
			v.canvas.MoveTo(x, y)
		} else {
			v.canvas.LineTo(x, y)
		}
		x += sliceWidth
	}
	v.canvas.LineTo(float64(width), float64(height)/2)
	v.canvas.Stroke()
}
