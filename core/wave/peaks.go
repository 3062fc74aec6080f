package wave

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ComputePeaks reduces a normalized sample sequence to a [min,max] pair
// per time bucket, the render cache used to draw a static waveform
// without reprocessing raw audio.
func ComputePeaks(samples []float64, buckets int) [][2]float64 {
	if len(samples) == 0 || buckets <= 0 {
		return nil
	}
	if buckets > len(samples) {
		buckets = len(samples)
	}

	peaks := make([][2]float64, buckets)
	per := len(samples) / buckets
	for b := 0; b < buckets; b++ {
		start := b * per
		end := start + per
		if b == buckets-1 {
			end = len(samples)
		}
		lo, hi := samples[start], samples[start]
		for _, s := range samples[start+1 : end] {
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		peaks[b] = [2]float64{lo, hi}
	}
	return peaks
}

// PeaksFromWAV decodes a WAV file and computes its peak matrix. Channels
// are interleaved in the decoded buffer; the min/max view makes channel
// separation irrelevant for rendering.
func PeaksFromWAV(path string, buckets int) ([][2]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file: %s", path)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return nil, fmt.Errorf("reading wav duration: %w", err)
	}
	totalSamples := int(duration.Seconds() * float64(decoder.SampleRate))
	if totalSamples == 0 {
		return nil, fmt.Errorf("wav file has no samples: %s", path)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: int(decoder.NumChans),
			SampleRate:  int(decoder.SampleRate),
		},
		Data:           make([]int, totalSamples*int(decoder.NumChans)),
		SourceBitDepth: int(decoder.BitDepth),
	}
	n, err := decoder.PCMBuffer(buf)
	if err != nil {
		return nil, fmt.Errorf("reading wav samples: %w", err)
	}

	maxVal := float64(int(1) << (uint(decoder.BitDepth) - 1))
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = float64(buf.Data[i]) / maxVal
	}
	return ComputePeaks(samples, buckets), nil
}
