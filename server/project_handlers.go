package server

import (
	"net/http"
	"time"

	"WaveSplit/logger"
	"WaveSplit/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type createProjectRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Path        string              `json:"path"`
	Files       []model.ProjectFile `json:"files"`
}

type updateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Visited     *bool   `json:"visited,omitempty"`
}

// GetProjectsHandler returns all projects, most recently created first.
func (h *APIHandler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectRepo.GetProjects()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProjectHandler returns one project by id.
func (h *APIHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	project, err := h.projectRepo.GetProjectByID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// CreateProjectHandler creates a project from user input. The id and
// creation time are assigned here, never by the client.
func (h *APIHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project name is required"})
		return
	}

	for i := range req.Files {
		if req.Files[i].PresetName == "" {
			req.Files[i].PresetName = model.DefaultPreset
		} else if !model.ValidPreset(req.Files[i].PresetName) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown preset: " + req.Files[i].PresetName})
			return
		}
	}

	project := &model.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Path:        req.Path,
		CreatedAt:   time.Now(),
		Files:       req.Files,
	}
	if err := h.projectRepo.CreateProject(project); err != nil {
		writeError(w, err)
		return
	}

	logger.Info("project created",
		logger.String("id", project.ID),
		logger.String("name", project.Name),
		logger.Int("files", len(project.Files)))
	writeJSON(w, http.StatusCreated, project)
}

// UpdateProjectHandler patches the mutable project fields.
func (h *APIHandler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	project, err := h.projectRepo.GetProjectByID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Visited != nil {
		project.Visited = *req.Visited
	}
	if err := h.projectRepo.SaveProject(project); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// DeleteProjectHandler removes one project. Deleting an absent project
// still answers 204.
func (h *APIHandler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.projectRepo.DeleteProject(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllProjectsHandler clears the store.
func (h *APIHandler) DeleteAllProjectsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.projectRepo.DeleteAllProjects(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPresetsHandler lists the known splitting presets.
func (h *APIHandler) GetPresetsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Presets)
}
