package workflow

import (
	"context"
	"fmt"
	"path"
	"strings"

	"WaveSplit/core/splitter"
	"WaveSplit/logger"
	"WaveSplit/model"
	"WaveSplit/notify"
)

// ExportRequest selects one committed segment for export as a tagged file.
// FileType and NameTemplate are optional overrides.
type ExportRequest struct {
	ProjectID       string `json:"projectId"`
	FileIndex       int    `json:"fileIndex"`
	SegmentIndex    int    `json:"segmentIndex"`
	TargetDirectory string `json:"targetDirectory"`
	FileType        string `json:"fileType,omitempty"`
	NameTemplate    string `json:"nameTemplate,omitempty"`
}

// TargetPath computes the deterministic export path for a request without
// performing the export. The backend never returns the generated path, so
// this is what the UI displays.
func (e *Engine) TargetPath(req ExportRequest) (string, error) {
	_, file, err := e.lookupFile(req.ProjectID, req.FileIndex)
	if err != nil {
		return "", err
	}
	if req.SegmentIndex < 0 || req.SegmentIndex >= len(file.Segments) {
		return "", &model.SegmentInvariantError{Index: req.SegmentIndex, Reason: "no such segment"}
	}
	seg := file.Segments[req.SegmentIndex]

	fileType := req.FileType
	if fileType == "" {
		fileType = file.FileType
	}
	if fileType == "" {
		fileType = e.opts.DefaultFileType
	}
	template := req.NameTemplate
	if template == "" {
		template = e.opts.NameTemplate
	}

	name := SanitizeFileName(RenderFileName(template, seg.Metadata()))
	return path.Join(req.TargetDirectory, name+"."+strings.TrimPrefix(fileType, ".")), nil
}

// Export stores one segment of a committed file as an individually tagged
// audio file in the target directory and returns the computed target path.
func (e *Engine) Export(ctx context.Context, req ExportRequest) (string, error) {
	_, file, err := e.lookupFile(req.ProjectID, req.FileIndex)
	if err != nil {
		return "", err
	}
	if !file.Committed {
		return "", &model.SegmentInvariantError{Index: req.SegmentIndex, Reason: "segment set not committed yet"}
	}
	if req.SegmentIndex < 0 || req.SegmentIndex >= len(file.Segments) {
		return "", &model.SegmentInvariantError{Index: req.SegmentIndex, Reason: "no such segment"}
	}
	seg := file.Segments[req.SegmentIndex]

	// Resolve overrides up front so the stored file matches the path we
	// report.
	if req.FileType == "" {
		req.FileType = file.FileType
	}
	if req.FileType == "" {
		req.FileType = e.opts.DefaultFileType
	}
	if req.NameTemplate == "" {
		req.NameTemplate = e.opts.NameTemplate
	}

	targetPath, err := e.TargetPath(req)
	if err != nil {
		return "", err
	}

	if e.opts.FailOnConflict && e.opts.Exists != nil && e.opts.Exists(targetPath) {
		e.notifier.Notify(notify.Notification{
			Level:   notify.LevelError,
			Title:   "Export skipped",
			Message: fmt.Sprintf("%s already exists", targetPath),
		})
		return "", model.ErrExportConflict
	}

	storeReq := splitter.StoreRequest{
		FilePath:        file.FilePath,
		TargetDirectory: req.TargetDirectory,
		Offset:          seg.Offset,
		Duration:        seg.Duration,
		Metadata:        seg.Metadata(),
		FileType:        req.FileType,
		NameTemplate:    req.NameTemplate,
	}
	if err := e.backend.Store(ctx, storeReq); err != nil {
		e.notifier.Notify(notify.Notification{
			Level:   notify.LevelError,
			Title:   "Export failed",
			Message: fmt.Sprintf("%s: %v", path.Base(targetPath), err),
		})
		return "", err
	}

	if e.opts.Archive != nil {
		e.archiveSegment(ctx, req.ProjectID, file, seg, path.Base(targetPath))
	}

	e.notifier.Notify(notify.Notification{
		Level:   notify.LevelSuccess,
		Title:   "Export finished",
		Message: targetPath,
	})
	return targetPath, nil
}

// archiveSegment mirrors the exported bytes into the archive. Best effort;
// a failed upload only logs.
func (e *Engine) archiveSegment(ctx context.Context, projectID string, file *model.ProjectFile, seg model.ProjectFileSegment, baseName string) {
	data, err := e.backend.GetSegment(ctx, file.FilePath, seg.Offset, seg.Duration)
	if err != nil {
		logger.Warn("archive fetch failed", logger.ErrorField(err))
		return
	}
	objectName := path.Join("exports", projectID, baseName)
	if err := e.opts.Archive.Upload(ctx, objectName, data); err != nil {
		logger.Warn("archive upload failed",
			logger.String("object", objectName),
			logger.ErrorField(err))
		return
	}
	logger.Info("segment archived", logger.String("object", objectName))
}
