package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"WaveSplit/db"
	"WaveSplit/model"

	"gorm.io/gorm"
)

// projectsNamespace keys the single durable record holding every project.
const projectsNamespace = "projects"

// ProjectRepository defines the interface for project data operations.
// Callers receive deep copies; nested edits go through SaveProject so every
// mutation is an explicit mutate-then-save with synchronous persistence.
type ProjectRepository interface {
	GetProjects() ([]*model.Project, error)
	GetProjectByID(id string) (*model.Project, error)
	CreateProject(project *model.Project) error
	SaveProject(project *model.Project) error
	DeleteProject(id string) error
	DeleteAllProjects() error
}

// sqliteProjectRepository implements ProjectRepository over a single
// KVRecord row. The full project sequence is held in memory, rehydrated
// wholesale at construction and re-serialized on every mutation.
type sqliteProjectRepository struct {
	gdb *gorm.DB

	mu       sync.Mutex
	projects []*model.Project // most-recently-created first
}

// NewSQLiteProjectRepository loads the stored project sequence and returns
// the repository. Construct once at startup and inject into consumers.
func NewSQLiteProjectRepository(gdb *gorm.DB) (ProjectRepository, error) {
	r := &sqliteProjectRepository{gdb: gdb}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *sqliteProjectRepository) load() error {
	var record db.KVRecord
	err := r.gdb.First(&record, "namespace = ?", projectsNamespace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.projects = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load project record: %w", err)
	}
	if err := json.Unmarshal(record.Payload, &r.projects); err != nil {
		return fmt.Errorf("failed to decode project record: %w", err)
	}
	return nil
}

// persist rewrites the whole record. Callers must hold r.mu.
func (r *sqliteProjectRepository) persist() error {
	payload, err := json.Marshal(r.projects)
	if err != nil {
		return fmt.Errorf("failed to encode project record: %w", err)
	}
	record := db.KVRecord{Namespace: projectsNamespace, Payload: payload}
	if err := r.gdb.Save(&record).Error; err != nil {
		return fmt.Errorf("failed to persist project record: %w", err)
	}
	return nil
}

// GetProjects returns all projects in store order, most recent first.
func (r *sqliteProjectRepository) GetProjects() ([]*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.Project, len(r.projects))
	for i, p := range r.projects {
		out[i] = p.Clone()
	}
	return out, nil
}

// GetProjectByID returns the project with the given ID, or
// model.ErrProjectNotFound when absent.
func (r *sqliteProjectRepository) GetProjectByID(id string) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.projects {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return nil, model.ErrProjectNotFound
}

// CreateProject inserts at the head of the sequence. The ID must not be
// present yet; the serialized record cannot enforce uniqueness by itself.
func (r *sqliteProjectRepository) CreateProject(project *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.projects {
		if p.ID == project.ID {
			return fmt.Errorf("project %s: %w", project.ID, model.ErrDuplicateProjectID)
		}
	}
	r.projects = append([]*model.Project{project.Clone()}, r.projects...)
	if err := r.persist(); err != nil {
		r.projects = r.projects[1:]
		return err
	}
	return nil
}

// SaveProject replaces the stored project with the same ID. Used after any
// nested file or segment mutation.
func (r *sqliteProjectRepository) SaveProject(project *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.projects {
		if p.ID == project.ID {
			prev := r.projects[i]
			r.projects[i] = project.Clone()
			if err := r.persist(); err != nil {
				r.projects[i] = prev
				return err
			}
			return nil
		}
	}
	return model.ErrProjectNotFound
}

// DeleteProject removes the matching entry. Deleting an absent project is
// a no-op, not an error.
func (r *sqliteProjectRepository) DeleteProject(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.projects {
		if p.ID == id {
			removed := r.projects[i]
			r.projects = append(r.projects[:i], r.projects[i+1:]...)
			if err := r.persist(); err != nil {
				r.projects = append(r.projects[:i], append([]*model.Project{removed}, r.projects[i:]...)...)
				return err
			}
			return nil
		}
	}
	return nil
}

// DeleteAllProjects clears the entire store.
func (r *sqliteProjectRepository) DeleteAllProjects() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.projects
	r.projects = nil
	if err := r.persist(); err != nil {
		r.projects = prev
		return err
	}
	return nil
}
