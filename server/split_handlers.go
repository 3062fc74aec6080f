package server

import (
	"net/http"

	"WaveSplit/core/workflow"
	"WaveSplit/model"

	"github.com/gorilla/mux"
)

type splitSegmentRequest struct {
	At float64 `json:"at"`
}

type trimRequest struct {
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
}

type metaRequest struct {
	MetaIndex int `json:"metaIndex"`
}

type exportRequest struct {
	TargetDirectory string `json:"targetDirectory"`
	FileType        string `json:"fileType,omitempty"`
	NameTemplate    string `json:"nameTemplate,omitempty"`
}

// SplitFileHandler requests segmentation of one file. A second request
// while one is pending answers 409.
func (h *APIHandler) SplitFileHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	fileIndex, err := pathFileIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file index"})
		return
	}

	if err := h.engine.Split(r.Context(), projectID, fileIndex); err != nil {
		writeError(w, err)
		return
	}

	h.respondWithFile(w, projectID, fileIndex)
}

// FileStateHandler reports the workflow state plus the mismatch boundary
// mapping the review UI highlights.
func (h *APIHandler) FileStateHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	fileIndex, err := pathFileIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file index"})
		return
	}

	state, err := h.engine.FileState(projectID, fileIndex)
	if err != nil {
		writeError(w, err)
		return
	}

	project, err := h.projectRepo.GetProjectByID(projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	if fileIndex >= len(project.Files) {
		writeError(w, model.ErrProjectNotFound)
		return
	}
	file := project.Files[fileIndex]

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":              state,
		"mismatchOffsets":    file.MismatchOffsets,
		"mismatchBoundaries": workflow.MismatchBoundaries(&file),
	})
}

// editSegment runs one review edit and answers with the updated file.
func (h *APIHandler) editSegment(w http.ResponseWriter, r *http.Request, edit func(projectID string, fileIndex, segIndex int) error) {
	projectID := mux.Vars(r)["id"]
	fileIndex, err := pathFileIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file index"})
		return
	}
	segIndex, err := pathSegmentIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid segment index"})
		return
	}

	if err := edit(projectID, fileIndex, segIndex); err != nil {
		writeError(w, err)
		return
	}
	h.respondWithFile(w, projectID, fileIndex)
}

// respondWithFile answers with the current persisted state of one file.
func (h *APIHandler) respondWithFile(w http.ResponseWriter, projectID string, fileIndex int) {
	project, err := h.projectRepo.GetProjectByID(projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	if fileIndex >= len(project.Files) {
		writeError(w, model.ErrProjectNotFound)
		return
	}
	writeJSON(w, http.StatusOK, project.Files[fileIndex])
}

// MergeSegmentsHandler merges a segment with its right neighbor.
func (h *APIHandler) MergeSegmentsHandler(w http.ResponseWriter, r *http.Request) {
	h.editSegment(w, r, func(projectID string, fileIndex, segIndex int) error {
		return h.engine.MergeSegments(projectID, fileIndex, segIndex)
	})
}

// SplitSegmentHandler splits one segment at an absolute offset.
func (h *APIHandler) SplitSegmentHandler(w http.ResponseWriter, r *http.Request) {
	var req splitSegmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.editSegment(w, r, func(projectID string, fileIndex, segIndex int) error {
		return h.engine.SplitSegmentAt(projectID, fileIndex, segIndex, req.At)
	})
}

// TrimSegmentHandler adjusts one segment's boundaries.
func (h *APIHandler) TrimSegmentHandler(w http.ResponseWriter, r *http.Request) {
	var req trimRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.editSegment(w, r, func(projectID string, fileIndex, segIndex int) error {
		return h.engine.TrimSegment(projectID, fileIndex, segIndex, req.Offset, req.Duration)
	})
}

// SelectMetadataHandler picks the authoritative metadata candidate.
func (h *APIHandler) SelectMetadataHandler(w http.ResponseWriter, r *http.Request) {
	var req metaRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.editSegment(w, r, func(projectID string, fileIndex, segIndex int) error {
		return h.engine.SelectMetadata(projectID, fileIndex, segIndex, req.MetaIndex)
	})
}

// CommitFileHandler accepts the reviewed segment set.
func (h *APIHandler) CommitFileHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	fileIndex, err := pathFileIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file index"})
		return
	}

	if err := h.engine.Commit(projectID, fileIndex); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSegmentHandler exports one committed segment and answers with the
// deterministic target path.
func (h *APIHandler) ExportSegmentHandler(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	projectID := mux.Vars(r)["id"]
	fileIndex, err := pathFileIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file index"})
		return
	}
	segIndex, err := pathSegmentIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid segment index"})
		return
	}

	targetPath, err := h.engine.Export(r.Context(), workflow.ExportRequest{
		ProjectID:       projectID,
		FileIndex:       fileIndex,
		SegmentIndex:    segIndex,
		TargetDirectory: req.TargetDirectory,
		FileType:        req.FileType,
		NameTemplate:    req.NameTemplate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"targetPath": targetPath,
	})
}

// SegmentAudioHandler streams one segment's audio bytes for preview.
func (h *APIHandler) SegmentAudioHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	fileIndex, err := pathFileIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file index"})
		return
	}
	segIndex, err := pathSegmentIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid segment index"})
		return
	}

	data, err := h.engine.FetchSegment(r.Context(), projectID, fileIndex, segIndex)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", "inline; filename=audio.wav")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// FilePeaksHandler computes (or returns the cached) peak matrix of a file.
func (h *APIHandler) FilePeaksHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	fileIndex, err := pathFileIndex(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file index"})
		return
	}

	project, err := h.projectRepo.GetProjectByID(projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	if fileIndex < 0 || fileIndex >= len(project.Files) {
		writeError(w, model.ErrProjectNotFound)
		return
	}
	file := &project.Files[fileIndex]

	if file.Peaks == nil {
		peaks, err := h.computePeaks(file.FilePath)
		if err != nil {
			writeError(w, err)
			return
		}
		file.Peaks = peaks
		if err := h.projectRepo.SaveProject(project); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, file.Peaks)
}
