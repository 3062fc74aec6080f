package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"WaveSplit/logger"
	"WaveSplit/model"
	"WaveSplit/notify"
	"WaveSplit/repository"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// audioExtensions the watcher considers importable.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
}

// Watcher imports audio files dropped into a watch folder. New files are
// appended to a dedicated inbox project, which is created on demand.
type Watcher struct {
	repo      repository.ProjectRepository
	notifier  notify.Notifier
	dir       string
	inboxName string
}

// New creates a watcher over dir.
func New(repo repository.ProjectRepository, notifier notify.Notifier, dir, inboxName string) *Watcher {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if inboxName == "" {
		inboxName = "Inbox"
	}
	return &Watcher{repo: repo, notifier: notifier, dir: dir, inboxName: inboxName}
}

// Run watches the folder until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logger.Info("watching import folder", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if !audioExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if err := w.importFile(event.Name); err != nil {
				logger.Error("auto import failed",
					logger.String("path", event.Name),
					logger.ErrorField(err))
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", logger.ErrorField(err))
		}
	}
}

// importFile appends the file to the inbox project.
func (w *Watcher) importFile(path string) error {
	inbox, err := w.inboxProject()
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	name := strings.TrimSuffix(base, filepath.Ext(base))

	for _, f := range inbox.Files {
		if f.FilePath == path {
			// Already imported; editors firing duplicate create events
			// are common.
			return nil
		}
	}

	inbox.Files = append(inbox.Files, model.ProjectFile{
		Name:       name,
		FileName:   base,
		FilePath:   path,
		FileType:   ext,
		PresetName: model.DefaultPreset,
	})
	if err := w.repo.SaveProject(inbox); err != nil {
		return err
	}

	w.notifier.Notify(notify.Notification{
		Level:   notify.LevelSuccess,
		Title:   "File imported",
		Message: fmt.Sprintf("%s added to %s", base, inbox.Name),
	})
	return nil
}

// inboxProject finds or creates the inbox project.
func (w *Watcher) inboxProject() (*model.Project, error) {
	projects, err := w.repo.GetProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.Name == w.inboxName {
			return p, nil
		}
	}

	inbox := &model.Project{
		ID:          uuid.NewString(),
		Name:        w.inboxName,
		Description: "Automatically imported files",
		Path:        w.dir,
		CreatedAt:   time.Now(),
	}
	if err := w.repo.CreateProject(inbox); err != nil && !errors.Is(err, model.ErrDuplicateProjectID) {
		return nil, err
	}
	return inbox, nil
}
