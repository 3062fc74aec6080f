package wave

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeCanvas records draw calls.
type fakeCanvas struct {
	mu      sync.Mutex
	width   int
	height  int
	clears  int
	strokes int
	colors  []string
	lines   [][2]float64
}

func (c *fakeCanvas) Size() (int, int) { return c.width, c.height }

func (c *fakeCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
}

func (c *fakeCanvas) SetStroke(color string, width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = append(c.colors, color)
}

func (c *fakeCanvas) MoveTo(x, y float64) {}

func (c *fakeCanvas) LineTo(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, [2]float64{x, y})
}

func (c *fakeCanvas) Stroke() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strokes++
}

func (c *fakeCanvas) snapshot() (clears, strokes int, colors []string, lines [][2]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears, c.strokes, append([]string(nil), c.colors...), append([][2]float64(nil), c.lines...)
}

// silenceSource always delivers a full buffer of zero samples.
type silenceSource struct{}

func (silenceSource) Read(buf []float32) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}

// endingSource ends the stream after n reads.
type endingSource struct {
	mu    sync.Mutex
	reads int
	limit int
}

func (s *endingSource) Read(buf []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.reads > s.limit {
		return 0, io.EOF
	}
	return len(buf), nil
}

func TestVisualizerStopsOnCancel(t *testing.T) {
	canvas := &fakeCanvas{width: 200, height: 100}
	v := NewVisualizer(silenceSource{}, canvas, nil)
	v.FrameInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx)
		close(done)
	}()

	// Let a few frames render, then tear down.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("visualizer did not stop after context cancellation")
	}

	clears, strokes, _, _ := canvas.snapshot()
	if clears == 0 || strokes == 0 {
		t.Errorf("no frames drawn: clears=%d strokes=%d", clears, strokes)
	}
}

func TestVisualizerStopsWhenSourceEnds(t *testing.T) {
	canvas := &fakeCanvas{width: 200, height: 100}
	v := NewVisualizer(&endingSource{limit: 3}, canvas, nil)
	v.FrameInterval = time.Millisecond

	done := make(chan struct{})
	go func() {
		v.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("visualizer did not stop when the source ended")
	}
}

func TestVisualizerDegradesSilently(t *testing.T) {
	// Missing collaborators must no-op, never panic or error.
	NewVisualizer(nil, nil, nil).Run(context.Background())
	NewVisualizer(silenceSource{}, nil, nil).Run(context.Background())
	NewVisualizer(nil, &fakeCanvas{width: 10, height: 10}, nil).Run(context.Background())

	var v *Visualizer
	v.Run(context.Background())
}

func TestVisualizerFrameGeometry(t *testing.T) {
	canvas := &fakeCanvas{width: 1024, height: 100}
	v := NewVisualizer(silenceSource{}, canvas, nil)

	v.drawFrame(make([]float32, analysisWindow))

	_, strokes, colors, lines := canvas.snapshot()
	if strokes != 1 {
		t.Fatalf("strokes = %d, want 1", strokes)
	}
	if len(colors) != 1 || colors[0] != strokeLight {
		t.Errorf("stroke color = %v, want light theme color", colors)
	}

	// Silence maps every sample to the vertical midpoint, and the final
	// segment extends to the midpoint at the right edge.
	last := lines[len(lines)-1]
	if last != [2]float64{1024, 50} {
		t.Errorf("final segment = %v, want [1024 50]", last)
	}
	for i, l := range lines {
		if l[1] != 50 {
			t.Errorf("line %d y = %f, want midpoint 50", i, l[1])
			break
		}
	}
}

func TestVisualizerThemeReevaluatedPerFrame(t *testing.T) {
	canvas := &fakeCanvas{width: 100, height: 100}

	dark := false
	v := NewVisualizer(silenceSource{}, canvas, func() bool { return dark })

	buf := make([]float32, 16)
	v.drawFrame(buf)
	dark = true
	v.drawFrame(buf)

	_, _, colors, _ := canvas.snapshot()
	if len(colors) != 2 || colors[0] != strokeLight || colors[1] != strokeDark {
		t.Errorf("colors = %v, want [light dark]", colors)
	}
}
