package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"WaveSplit/core/splitter"
	"WaveSplit/logger"
	"WaveSplit/model"
	"WaveSplit/notify"
	"WaveSplit/repository"
)

// State is the per-file workflow state.
type State string

const (
	StateUnsplit   State = "unsplit"
	StateSplitting State = "splitting"
	StateReviewing State = "reviewing"
	StateCommitted State = "committed"
)

// Backend is the narrow splitter contract the engine depends on.
// *splitter.Client satisfies it.
type Backend interface {
	Split(ctx context.Context, filePath string) (*splitter.SplitResult, error)
	GetSegment(ctx context.Context, filePath string, offset, duration float64) ([]byte, error)
	Store(ctx context.Context, req splitter.StoreRequest) error
}

// SegmentCache stores fetched segment audio bytes for preview replay.
// A nil cache disables caching.
type SegmentCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Archiver mirrors exported segments into long-term storage. A nil
// archiver disables mirroring.
type Archiver interface {
	Upload(ctx context.Context, objectName string, data []byte) error
}

// Options tune engine behavior; zero values give sensible defaults.
type Options struct {
	// DetachedSplit keeps a split request running when the caller's
	// context is cancelled; the result is discarded harmlessly if the
	// file is gone by the time it settles.
	DetachedSplit bool
	// FailOnConflict rejects exports whose target path already exists,
	// checked through Exists. With a nil Exists func the check is
	// skipped and the backend's overwrite semantics apply.
	FailOnConflict bool
	Exists         func(path string) bool

	DefaultFileType string
	NameTemplate    string

	Cache   SegmentCache
	Archive Archiver
}

type fileKey struct {
	projectID string
	fileIndex int
}

// Engine orchestrates the split → review → commit → export cycle for one
// project file at a time. All state lives in the project repository; the
// engine itself only tracks which split requests are in flight.
type Engine struct {
	repo     repository.ProjectRepository
	backend  Backend
	notifier notify.Notifier
	opts     Options

	mu       sync.Mutex
	inflight map[fileKey]struct{}
}

// NewEngine wires the engine to its collaborators.
func NewEngine(repo repository.ProjectRepository, backend Backend, notifier notify.Notifier, opts Options) *Engine {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if opts.DefaultFileType == "" {
		opts.DefaultFileType = "mp3"
	}
	if opts.NameTemplate == "" {
		opts.NameTemplate = "{TITLE}"
	}
	return &Engine{
		repo:     repo,
		backend:  backend,
		notifier: notifier,
		opts:     opts,
		inflight: make(map[fileKey]struct{}),
	}
}

// FileState reports the workflow state of one project file.
func (e *Engine) FileState(projectID string, fileIndex int) (State, error) {
	e.mu.Lock()
	_, splitting := e.inflight[fileKey{projectID, fileIndex}]
	e.mu.Unlock()
	if splitting {
		return StateSplitting, nil
	}

	_, file, err := e.lookupFile(projectID, fileIndex)
	if err != nil {
		return "", err
	}
	switch {
	case file.Segments == nil:
		return StateUnsplit, nil
	case file.Committed:
		return StateCommitted, nil
	default:
		return StateReviewing, nil
	}
}

// Split requests segmentation of one file. Only one split per file may be
// in flight; a concurrent request is rejected with model.ErrSplitInFlight.
// On success the file's previous segments, metadata selections and commit
// flag are replaced wholesale.
func (e *Engine) Split(ctx context.Context, projectID string, fileIndex int) error {
	_, file, err := e.lookupFile(projectID, fileIndex)
	if err != nil {
		return err
	}

	key := fileKey{projectID, fileIndex}
	e.mu.Lock()
	if _, busy := e.inflight[key]; busy {
		e.mu.Unlock()
		return model.ErrSplitInFlight
	}
	e.inflight[key] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inflight, key)
		e.mu.Unlock()
	}()

	callCtx := ctx
	if e.opts.DetachedSplit {
		// The request outlives the view that issued it.
		callCtx = context.Background()
	}

	logger.Info("splitting file",
		logger.String("projectId", projectID),
		logger.String("filePath", file.FilePath))

	result, err := e.backend.Split(callCtx, file.FilePath)
	if err != nil {
		// Splitting falls back to the prior stable state; nothing was
		// persisted yet.
		e.notifier.Notify(notify.Notification{
			Level:   notify.LevelError,
			Title:   "Split failed",
			Message: fmt.Sprintf("%s: %v", file.FileName, err),
		})
		return err
	}

	segments := buildSegments(result)

	err = e.updateFile(projectID, fileIndex, func(f *model.ProjectFile) error {
		f.Segments = segments
		f.MismatchOffsets = append([]float64(nil), result.MismatchOffsets...)
		f.Committed = false
		return nil
	})
	if errors.Is(err, model.ErrProjectNotFound) {
		// The project was deleted while the request was in flight; the
		// result is discarded harmlessly.
		logger.Debug("discarding split result for deleted project",
			logger.String("projectId", projectID))
		return nil
	}
	if err != nil {
		return err
	}

	e.notifier.Notify(notify.Notification{
		Level:   notify.LevelSuccess,
		Title:   "Split finished",
		Message: fmt.Sprintf("%s: %d segments detected", file.FileName, len(segments)),
	})
	return nil
}

// buildSegments converts backend candidates into stored segments, sorted
// by offset with the best metadata candidate preselected.
func buildSegments(result *splitter.SplitResult) []model.ProjectFileSegment {
	segments := make([]model.ProjectFileSegment, len(result.Segments))
	for i, c := range result.Segments {
		segments[i] = model.ProjectFileSegment{
			Offset:          c.Offset,
			Duration:        c.Duration,
			MetadataOptions: append([]model.Metadata(nil), c.MetadataOptions...),
			MetaIndex:       0,
		}
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Offset < segments[j].Offset
	})
	return segments
}

// MergeSegments merges segment i with its right neighbor. The merged
// segment spans both ranges; metadata candidates of both are kept, best
// candidate of the left segment first, and the selection resets.
func (e *Engine) MergeSegments(projectID string, fileIndex, i int) error {
	return e.updateFile(projectID, fileIndex, func(f *model.ProjectFile) error {
		if i < 0 || i+1 >= len(f.Segments) {
			return &model.SegmentInvariantError{Index: i, Reason: "no right neighbor to merge with"}
		}
		left, right := f.Segments[i], f.Segments[i+1]
		merged := model.ProjectFileSegment{
			Offset:          left.Offset,
			Duration:        right.End() - left.Offset,
			MetadataOptions: append(append([]model.Metadata(nil), left.MetadataOptions...), right.MetadataOptions...),
			MetaIndex:       0,
		}
		f.Segments = append(f.Segments[:i], append([]model.ProjectFileSegment{merged}, f.Segments[i+2:]...)...)
		f.Committed = false
		return model.ValidateSegments(f.Segments)
	})
}

// SplitSegmentAt splits segment i at an absolute offset strictly inside
// it. Both halves inherit the candidate list with the selection reset.
func (e *Engine) SplitSegmentAt(projectID string, fileIndex, i int, at float64) error {
	return e.updateFile(projectID, fileIndex, func(f *model.ProjectFile) error {
		if i < 0 || i >= len(f.Segments) {
			return &model.SegmentInvariantError{Index: i, Reason: "no such segment"}
		}
		s := f.Segments[i]
		if at <= s.Offset || at >= s.End() {
			return &model.SegmentInvariantError{Index: i, Reason: "split point outside segment"}
		}
		first := model.ProjectFileSegment{
			Offset:          s.Offset,
			Duration:        at - s.Offset,
			MetadataOptions: append([]model.Metadata(nil), s.MetadataOptions...),
		}
		second := model.ProjectFileSegment{
			Offset:          at,
			Duration:        s.End() - at,
			MetadataOptions: append([]model.Metadata(nil), s.MetadataOptions...),
		}
		f.Segments = append(f.Segments[:i], append([]model.ProjectFileSegment{first, second}, f.Segments[i+1:]...)...)
		f.Committed = false
		return model.ValidateSegments(f.Segments)
	})
}

// TrimSegment moves segment i's boundaries. The new range must keep a
// positive duration and must not overlap its neighbors.
func (e *Engine) TrimSegment(projectID string, fileIndex, i int, offset, duration float64) error {
	return e.updateFile(projectID, fileIndex, func(f *model.ProjectFile) error {
		if i < 0 || i >= len(f.Segments) {
			return &model.SegmentInvariantError{Index: i, Reason: "no such segment"}
		}
		f.Segments[i].Offset = offset
		f.Segments[i].Duration = duration
		f.Committed = false
		return model.ValidateSegments(f.Segments)
	})
}

// SelectMetadata picks metadata candidate metaIndex for segment i.
func (e *Engine) SelectMetadata(projectID string, fileIndex, i, metaIndex int) error {
	return e.updateFile(projectID, fileIndex, func(f *model.ProjectFile) error {
		if i < 0 || i >= len(f.Segments) {
			return &model.SegmentInvariantError{Index: i, Reason: "no such segment"}
		}
		if metaIndex < 0 || metaIndex >= len(f.Segments[i].MetadataOptions) {
			return &model.SegmentInvariantError{Index: i, Reason: "metadata index out of range"}
		}
		f.Segments[i].MetaIndex = metaIndex
		return nil
	})
}

// Commit accepts the reviewed segment set, making the file eligible for
// export.
func (e *Engine) Commit(projectID string, fileIndex int) error {
	return e.updateFile(projectID, fileIndex, func(f *model.ProjectFile) error {
		if f.Segments == nil {
			return &model.SegmentInvariantError{Index: 0, Reason: "nothing to commit, file was never split"}
		}
		if err := model.ValidateSegments(f.Segments); err != nil {
			return err
		}
		f.Committed = true
		return nil
	})
}

// MismatchBoundaries maps each mismatch offset of the file to the index of
// the segment boundary at or after it (the first segment whose offset is
// not less than the mismatch value), or -1 when no such segment exists.
func MismatchBoundaries(file *model.ProjectFile) []int {
	out := make([]int, len(file.MismatchOffsets))
	for i, m := range file.MismatchOffsets {
		out[i] = -1
		for j, s := range file.Segments {
			if s.Offset >= m {
				out[i] = j
				break
			}
		}
	}
	return out
}

// FetchSegment returns the raw audio bytes of one segment for preview,
// going through the byte cache when one is configured.
func (e *Engine) FetchSegment(ctx context.Context, projectID string, fileIndex, segIndex int) ([]byte, error) {
	_, file, err := e.lookupFile(projectID, fileIndex)
	if err != nil {
		return nil, err
	}
	if segIndex < 0 || segIndex >= len(file.Segments) {
		return nil, &model.SegmentInvariantError{Index: segIndex, Reason: "no such segment"}
	}
	seg := file.Segments[segIndex]

	key := fmt.Sprintf("segment:%s:%d:%.3f:%.3f", projectID, fileIndex, seg.Offset, seg.Duration)
	if e.opts.Cache != nil {
		if data, err := e.opts.Cache.Get(ctx, key); err == nil && data != nil {
			return data, nil
		}
	}

	data, err := e.backend.GetSegment(ctx, file.FilePath, seg.Offset, seg.Duration)
	if err != nil {
		e.notifier.Notify(notify.Notification{
			Level:   notify.LevelError,
			Title:   "Preview failed",
			Message: fmt.Sprintf("%s: %v", file.FileName, err),
		})
		return nil, err
	}

	if e.opts.Cache != nil {
		if err := e.opts.Cache.Set(ctx, key, data, 30*time.Minute); err != nil {
			logger.Warn("segment cache write failed", logger.ErrorField(err))
		}
	}
	return data, nil
}

// lookupFile resolves a project file, returning a detached copy of the
// owning project.
func (e *Engine) lookupFile(projectID string, fileIndex int) (*model.Project, *model.ProjectFile, error) {
	project, err := e.repo.GetProjectByID(projectID)
	if err != nil {
		return nil, nil, err
	}
	if fileIndex < 0 || fileIndex >= len(project.Files) {
		return nil, nil, fmt.Errorf("project %s has no file %d: %w", projectID, fileIndex, model.ErrProjectNotFound)
	}
	return project, &project.Files[fileIndex], nil
}

// updateFile applies fn to a copy of the file and persists the project.
// Everything inside fn is synchronous and atomic within one call.
func (e *Engine) updateFile(projectID string, fileIndex int, fn func(*model.ProjectFile) error) error {
	project, file, err := e.lookupFile(projectID, fileIndex)
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		return err
	}
	return e.repo.SaveProject(project)
}
