package wave

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	captureSampleRate = 44100
	captureChannels   = 1
)

// CaptureSource is a SampleSource over the default audio input device. A
// pump goroutine keeps the most recent analysis window of samples; Read
// copies that window and never waits for the device, so a stalled input
// cannot stall the visualizer's frame loop.
type CaptureSource struct {
	stream *portaudio.Stream
	buffer []float32

	mu     sync.Mutex
	recent []float32

	// pull fills buffer with the next device frame.
	pull func() error
	done chan struct{}
	wg   sync.WaitGroup
}

// NewCaptureSource initializes portaudio, opens the default input stream
// and starts the pump. Call Close to release the device.
func NewCaptureSource() (*CaptureSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &CaptureSource{
		buffer: make([]float32, analysisWindow),
		recent: make([]float32, analysisWindow),
	}

	stream, err := portaudio.OpenDefaultStream(
		captureChannels, // input channels
		0,               // output channels
		float64(captureSampleRate),
		analysisWindow, // frames per buffer
		c.buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	c.stream = stream
	c.pull = stream.Read

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	c.start()
	return c, nil
}

// start runs the pump until Close.
func (c *CaptureSource) start() {
	c.done = make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.done:
				return
			default:
			}
			if err := c.pull(); err != nil {
				// Input overflow and friends are transient; back off
				// instead of spinning.
				time.Sleep(10 * time.Millisecond)
				continue
			}
			c.mu.Lock()
			copy(c.recent, c.buffer)
			c.mu.Unlock()
		}
	}()
}

// Read copies the most recent window into buf. It returns immediately
// whether or not the device has delivered a fresh buffer since the last
// call.
func (c *CaptureSource) Read(buf []float32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copy(buf, c.recent), nil
}

// Close stops the stream, waits for the pump and releases portaudio.
func (c *CaptureSource) Close() error {
	var err error
	if c.stream != nil {
		// Stopping the stream unblocks a pending device read so the pump
		// can observe done.
		if stopErr := c.stream.Stop(); stopErr != nil {
			err = stopErr
		}
	}
	if c.done != nil {
		close(c.done)
		c.wg.Wait()
	}
	if c.stream != nil {
		c.stream.Close()
		portaudio.Terminate()
	}
	return err
}
