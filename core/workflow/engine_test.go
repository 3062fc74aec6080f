package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"WaveSplit/core/splitter"
	"WaveSplit/db"
	"WaveSplit/model"
	"WaveSplit/notify"
	"WaveSplit/repository"
)

// fakeBackend scripts the splitter responses.
type fakeBackend struct {
	mu sync.Mutex

	splitResult *splitter.SplitResult
	splitErr    error
	splitCalls  int
	// When set, Split signals entered and blocks until release is closed.
	entered chan struct{}
	release chan struct{}

	segmentData []byte
	segmentErr  error

	storeErr error
	stored   []splitter.StoreRequest
}

func (f *fakeBackend) Split(ctx context.Context, filePath string) (*splitter.SplitResult, error) {
	f.mu.Lock()
	f.splitCalls++
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if f.splitErr != nil {
		return nil, f.splitErr
	}
	return f.splitResult, nil
}

func (f *fakeBackend) GetSegment(ctx context.Context, filePath string, offset, duration float64) ([]byte, error) {
	if f.segmentErr != nil {
		return nil, f.segmentErr
	}
	return f.segmentData, nil
}

func (f *fakeBackend) Store(ctx context.Context, req splitter.StoreRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, req)
	return nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (r *recordingNotifier) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recordingNotifier) byLevel(level notify.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.Level == level {
			count++
		}
	}
	return count
}

func newTestRepo(t *testing.T) repository.ProjectRepository {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	repo, err := repository.NewSQLiteProjectRepository(gdb)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	return repo
}

func seedProject(t *testing.T, repo repository.ProjectRepository) {
	t.Helper()
	err := repo.CreateProject(&model.Project{
		ID:        "p1",
		Name:      "Session",
		CreatedAt: time.Now(),
		Files: []model.ProjectFile{
			{
				Name:     "song",
				FileName: "song.mp3",
				FilePath: "/music/song.mp3",
				FileType: "mp3",
			},
		},
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func twoSegmentResult() *splitter.SplitResult {
	return &splitter.SplitResult{
		Segments: []splitter.SegmentCandidate{
			{Offset: 0, Duration: 180, MetadataOptions: []model.Metadata{{Title: "A"}}},
			{Offset: 180, Duration: 200, MetadataOptions: []model.Metadata{{Title: "B"}}},
		},
	}
}

func TestSplitStoresSegments(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, backend, notifier, Options{})

	if err := engine.Split(context.Background(), "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}

	project, err := repo.GetProjectByID("p1")
	if err != nil {
		t.Fatalf("GetProjectByID: %v", err)
	}
	segments := project.Files[0].Segments
	if len(segments) != 2 {
		t.Fatalf("stored %d segments, want 2", len(segments))
	}
	if segments[0].Offset != 0 || segments[0].Duration != 180 {
		t.Errorf("segments[0] = %+v, want offset 0 duration 180", segments[0])
	}
	if segments[1].Offset != 180 || segments[1].Duration != 200 {
		t.Errorf("segments[1] = %+v, want offset 180 duration 200", segments[1])
	}
	for i, s := range segments {
		if s.MetaIndex != 0 {
			t.Errorf("segments[%d].MetaIndex = %d, want 0", i, s.MetaIndex)
		}
	}
	if err := model.ValidateSegments(segments); err != nil {
		t.Errorf("stored segments break invariants: %v", err)
	}
	if got := notifier.byLevel(notify.LevelSuccess); got != 1 {
		t.Errorf("success notifications = %d, want 1", got)
	}

	state, err := engine.FileState("p1", 0)
	if err != nil {
		t.Fatalf("FileState: %v", err)
	}
	if state != StateReviewing {
		t.Errorf("state after split = %s, want %s", state, StateReviewing)
	}
}

func TestSplitSingleFlight(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{
		splitResult: twoSegmentResult(),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{})

	done := make(chan error, 1)
	go func() {
		done <- engine.Split(context.Background(), "p1", 0)
	}()
	<-backend.entered // first request is now in flight

	if err := engine.Split(context.Background(), "p1", 0); !errors.Is(err, model.ErrSplitInFlight) {
		t.Errorf("second Split error = %v, want ErrSplitInFlight", err)
	}
	if state, _ := engine.FileState("p1", 0); state != StateSplitting {
		t.Errorf("state while in flight = %s, want %s", state, StateSplitting)
	}

	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("first Split: %v", err)
	}

	backend.mu.Lock()
	calls := backend.splitCalls
	backend.mu.Unlock()
	if calls != 1 {
		t.Errorf("backend Split called %d times, want 1", calls)
	}
}

func TestSplitFailureResetsState(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitErr: &model.TransportError{Op: "split", Cause: errors.New("timeout")}}
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, backend, notifier, Options{})

	err := engine.Split(context.Background(), "p1", 0)
	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Split error = %v, want TransportError", err)
	}

	state, _ := engine.FileState("p1", 0)
	if state != StateUnsplit {
		t.Errorf("state after failed split = %s, want %s", state, StateUnsplit)
	}
	if got := notifier.byLevel(notify.LevelError); got != 1 {
		t.Errorf("error notifications = %d, want 1", got)
	}
}

func TestResplitDiscardsPriorState(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{})
	ctx := context.Background()

	if err := engine.Split(ctx, "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := engine.SelectMetadata("p1", 0, 0, 0); err != nil {
		t.Fatalf("SelectMetadata: %v", err)
	}
	if err := engine.Commit("p1", 0); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Re-split from Committed replaces everything.
	backend.splitResult = &splitter.SplitResult{
		Segments: []splitter.SegmentCandidate{
			{Offset: 0, Duration: 400, MetadataOptions: []model.Metadata{{Title: "C"}}},
		},
		MismatchOffsets: []float64{120},
	}
	if err := engine.Split(ctx, "p1", 0); err != nil {
		t.Fatalf("re-Split: %v", err)
	}

	project, _ := repo.GetProjectByID("p1")
	file := project.Files[0]
	if len(file.Segments) != 1 || file.Segments[0].MetadataOptions[0].Title != "C" {
		t.Errorf("re-split left residual segments: %+v", file.Segments)
	}
	if file.Committed {
		t.Error("re-split kept the committed flag")
	}
	if len(file.MismatchOffsets) != 1 || file.MismatchOffsets[0] != 120 {
		t.Errorf("mismatch offsets = %v, want [120]", file.MismatchOffsets)
	}
}

func TestMergeSegments(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{})

	if err := engine.Split(context.Background(), "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := engine.MergeSegments("p1", 0, 0); err != nil {
		t.Fatalf("MergeSegments: %v", err)
	}

	project, _ := repo.GetProjectByID("p1")
	segments := project.Files[0].Segments
	if len(segments) != 1 {
		t.Fatalf("after merge %d segments, want 1", len(segments))
	}
	if segments[0].Offset != 0 || segments[0].Duration != 380 {
		t.Errorf("merged segment = %+v, want offset 0 duration 380", segments[0])
	}
	if len(segments[0].MetadataOptions) != 2 {
		t.Errorf("merged candidates = %d, want 2", len(segments[0].MetadataOptions))
	}

	if err := engine.MergeSegments("p1", 0, 0); err == nil {
		t.Error("merging the last segment should fail")
	}
}

func TestSplitSegmentAt(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{})

	if err := engine.Split(context.Background(), "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := engine.SplitSegmentAt("p1", 0, 0, 90); err != nil {
		t.Fatalf("SplitSegmentAt: %v", err)
	}

	project, _ := repo.GetProjectByID("p1")
	segments := project.Files[0].Segments
	if len(segments) != 3 {
		t.Fatalf("after split %d segments, want 3", len(segments))
	}
	if segments[0].Duration != 90 || segments[1].Offset != 90 || segments[1].Duration != 90 {
		t.Errorf("split halves wrong: %+v %+v", segments[0], segments[1])
	}
	if err := model.ValidateSegments(segments); err != nil {
		t.Errorf("segments break invariants after split: %v", err)
	}

	// Split point outside the segment is rejected.
	if err := engine.SplitSegmentAt("p1", 0, 0, 500); err == nil {
		t.Error("split point outside segment should fail")
	}
}

func TestTrimSegmentRejectsOverlap(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{})

	if err := engine.Split(context.Background(), "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}

	// Growing segment 0 into segment 1 must fail.
	if err := engine.TrimSegment("p1", 0, 0, 0, 200); err == nil {
		t.Error("overlapping trim should fail")
	}
	// Shrinking is fine.
	if err := engine.TrimSegment("p1", 0, 0, 10, 150); err != nil {
		t.Errorf("valid trim failed: %v", err)
	}

	project, _ := repo.GetProjectByID("p1")
	s := project.Files[0].Segments[0]
	if s.Offset != 10 || s.Duration != 150 {
		t.Errorf("trimmed segment = %+v, want offset 10 duration 150", s)
	}
}

func TestSelectMetadataBounds(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{})

	if err := engine.Split(context.Background(), "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}

	if err := engine.SelectMetadata("p1", 0, 0, 1); err == nil {
		t.Error("out of range metaIndex should fail")
	}
	if err := engine.SelectMetadata("p1", 0, 0, 0); err != nil {
		t.Errorf("valid metaIndex failed: %v", err)
	}
}

func TestMismatchBoundaries(t *testing.T) {
	file := &model.ProjectFile{
		Segments: []model.ProjectFileSegment{
			{Offset: 0, Duration: 100},
			{Offset: 100, Duration: 100},
			{Offset: 200, Duration: 100},
		},
		MismatchOffsets: []float64{100, 150, 999},
	}

	got := MismatchBoundaries(file)
	// 100 => boundary at segment 1; 150 => first offset >= 150 is segment 2;
	// 999 => past the last boundary.
	want := []int{1, 2, -1}
	if len(got) != len(want) {
		t.Fatalf("MismatchBoundaries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MismatchBoundaries[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestExportRendersTargetPath(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: &splitter.SplitResult{
		Segments: []splitter.SegmentCandidate{
			{Offset: 10, Duration: 120, MetadataOptions: []model.Metadata{{Title: "Song"}}},
		},
	}}
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, backend, notifier, Options{})
	ctx := context.Background()

	if err := engine.Split(ctx, "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := engine.Commit("p1", 0); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	targetPath, err := engine.Export(ctx, ExportRequest{
		ProjectID:       "p1",
		FileIndex:       0,
		SegmentIndex:    0,
		TargetDirectory: "/out",
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if targetPath != "/out/Song.mp3" {
		t.Errorf("target path = %s, want /out/Song.mp3", targetPath)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.stored) != 1 {
		t.Fatalf("store called %d times, want 1", len(backend.stored))
	}
	req := backend.stored[0]
	if req.Offset != 10 || req.Duration != 120 || req.Metadata.Title != "Song" {
		t.Errorf("store request = %+v", req)
	}
	if got := notifier.byLevel(notify.LevelSuccess); got != 2 { // split + export
		t.Errorf("success notifications = %d, want 2", got)
	}
}

func TestExportRequiresCommit(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{})
	ctx := context.Background()

	if err := engine.Split(ctx, "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if _, err := engine.Export(ctx, ExportRequest{ProjectID: "p1", TargetDirectory: "/out"}); err == nil {
		t.Error("export before commit should fail")
	}
}

func TestExportConflictPolicy(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{splitResult: twoSegmentResult()}
	engine := NewEngine(repo, backend, &recordingNotifier{}, Options{
		FailOnConflict: true,
		Exists:         func(string) bool { return true },
	})
	ctx := context.Background()

	if err := engine.Split(ctx, "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := engine.Commit("p1", 0); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	_, err := engine.Export(ctx, ExportRequest{ProjectID: "p1", TargetDirectory: "/out"})
	if !errors.Is(err, model.ErrExportConflict) {
		t.Errorf("Export error = %v, want ErrExportConflict", err)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.stored) != 0 {
		t.Error("store must not be called when the conflict policy rejects")
	}
}

func TestFetchSegmentSurfacesTransportError(t *testing.T) {
	repo := newTestRepo(t)
	seedProject(t, repo)
	backend := &fakeBackend{
		splitResult: twoSegmentResult(),
		segmentErr:  &model.TransportError{Op: "get-segment", Cause: errors.New("offset beyond file duration")},
	}
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, backend, notifier, Options{})
	ctx := context.Background()

	if err := engine.Split(ctx, "p1", 0); err != nil {
		t.Fatalf("Split: %v", err)
	}

	_, err := engine.FetchSegment(ctx, "p1", 0, 1)
	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) {
		t.Errorf("FetchSegment error = %v, want TransportError", err)
	}
	if got := notifier.byLevel(notify.LevelError); got != 1 {
		t.Errorf("error notifications after failed preview = %d, want 1", got)
	}
}
