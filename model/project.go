package model

import "time"

// Metadata is one candidate tag set for a segment, as returned by the
// splitter backend's recognition step.
type Metadata struct {
	Title  string `json:"title,omitempty"`
	Album  string `json:"album,omitempty"`
	Artist string `json:"artist,omitempty"`
	Year   string `json:"year,omitempty"`
}

// ProjectFileSegment is a contiguous time range within a source audio file,
// representing one logical track.
type ProjectFileSegment struct {
	Offset   float64 `json:"offset"`   // start in seconds from file start
	Duration float64 `json:"duration"` // length in seconds
	// MetadataOptions are ranked by recognition confidence, best first.
	MetadataOptions []Metadata `json:"metadataOptions,omitempty"`
	// MetaIndex selects the authoritative entry of MetadataOptions.
	MetaIndex int `json:"metaIndex"`
	// Peaks is an optional segment-scoped waveform render cache.
	Peaks [][2]float64 `json:"peaks,omitempty"`
}

// End returns the segment's end offset in seconds.
func (s ProjectFileSegment) End() float64 {
	return s.Offset + s.Duration
}

// Metadata returns the currently selected metadata candidate, or the zero
// value when no candidates exist.
func (s ProjectFileSegment) Metadata() Metadata {
	if len(s.MetadataOptions) == 0 {
		return Metadata{}
	}
	if s.MetaIndex < 0 || s.MetaIndex >= len(s.MetadataOptions) {
		return s.MetadataOptions[0]
	}
	return s.MetadataOptions[s.MetaIndex]
}

// ProjectFile is one imported audio asset inside a project.
type ProjectFile struct {
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
	// PresetName identifies the splitting profile used for the last split.
	PresetName string `json:"presetName,omitempty"`
	// Peaks is an optional precomputed [min,max] amplitude matrix per
	// time bucket, absent until computed.
	Peaks [][2]float64 `json:"peaks,omitempty"`
	// Segments is absent until a split has been performed. A re-split
	// replaces the whole sequence.
	Segments []ProjectFileSegment `json:"segments,omitempty"`
	// MismatchOffsets are advisory boundary warnings from the last split.
	MismatchOffsets []float64 `json:"mismatchOffsets,omitempty"`
	// Committed marks the reviewed segment set as accepted for export.
	Committed bool `json:"committed,omitempty"`
}

// Project is a user-defined container of imported audio files and their
// segmentation results.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Path        string        `json:"path"`
	Visited     bool          `json:"visited"`
	CreatedAt   time.Time     `json:"createdAt"`
	Files       []ProjectFile `json:"files"`
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Files = make([]ProjectFile, len(p.Files))
	for i, f := range p.Files {
		cf := f
		cf.Peaks = clonePeaks(f.Peaks)
		cf.MismatchOffsets = append([]float64(nil), f.MismatchOffsets...)
		cf.Segments = make([]ProjectFileSegment, len(f.Segments))
		for j, s := range f.Segments {
			cs := s
			cs.MetadataOptions = append([]Metadata(nil), s.MetadataOptions...)
			cs.Peaks = clonePeaks(s.Peaks)
			cf.Segments[j] = cs
		}
		if f.Segments == nil {
			cf.Segments = nil
		}
		cp.Files[i] = cf
	}
	return &cp
}

func clonePeaks(peaks [][2]float64) [][2]float64 {
	if peaks == nil {
		return nil
	}
	return append([][2]float64(nil), peaks...)
}

// ValidateSegments checks the segment sequence invariants: offsets
// non-negative and ascending, durations positive, no overlap between
// neighbors.
func ValidateSegments(segments []ProjectFileSegment) error {
	for i, s := range segments {
		if s.Offset < 0 {
			return &SegmentInvariantError{Index: i, Reason: "negative offset"}
		}
		if s.Duration <= 0 {
			return &SegmentInvariantError{Index: i, Reason: "non-positive duration"}
		}
		if i > 0 && segments[i-1].End() > s.Offset {
			return &SegmentInvariantError{Index: i, Reason: "overlaps previous segment"}
		}
	}
	return nil
}
