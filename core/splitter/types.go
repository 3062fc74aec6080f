package splitter

import "WaveSplit/model"

// SegmentCandidate is one detected track boundary pair with its ranked
// metadata candidates, as returned by POST /audio/split.
type SegmentCandidate struct {
	Offset          float64          `json:"offset"`
	Duration        float64          `json:"duration"`
	MetadataOptions []model.Metadata `json:"metadataOptions"`
}

// SplitResult is the full response of a split call. MismatchOffsets lists
// offsets where the segment afterward had a song mismatch; they are
// advisory and never block the workflow.
type SplitResult struct {
	Segments        []SegmentCandidate `json:"segments"`
	MismatchOffsets []float64          `json:"mismatchOffsets"`
}

// StoreRequest describes one segment export. FileType and NameTemplate are
// optional; the backend falls back to its own defaults when omitted.
type StoreRequest struct {
	FilePath        string         `json:"filePath"`
	TargetDirectory string         `json:"targetDirectory"`
	Offset          float64        `json:"offset"`
	Duration        float64        `json:"duration"`
	Metadata        model.Metadata `json:"metadata"`
	FileType        string         `json:"fileType,omitempty"`
	NameTemplate    string         `json:"nameTemplate,omitempty"`
}

type splitRequest struct {
	FilePath string `json:"filePath"`
}

type getSegmentRequest struct {
	FilePath string  `json:"filePath"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
}

type storeResponse struct {
	Success bool `json:"success"`
}
