package handler

import (
	"log/slog"
	"net/http"

	"pkm/internal/domain/models"
	"pkm/internal/domain/services"
	"pkm/internal/httputil"
)

// ProjectHandler exposes the project forest over HTTP
type ProjectHandler struct {
	projectService services.ProjectService
	logger         *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService services.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// Register mounts the project routes on mux
func (h *ProjectHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("POST /api/projects", h.CreateProject)
	mux.HandleFunc("GET /api/projects/roots", h.ListRootProjects)
	mux.HandleFunc("GET /api/projects/{id}", h.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", h.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/children", h.GetChildren)
	mux.HandleFunc("GET /api/projects/{id}/hierarchy/validate", h.ValidateHierarchy)
}

// ListProjects returns a page of the caller's projects
// GET /api/projects?skip=&limit=
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	projects, err := h.projectService.ListProjects(r.Context(), httputil.GetUserID(r), page)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// ListRootProjects returns a page of projects without a parent
// GET /api/projects/roots?skip=&limit=
func (h *ProjectHandler) ListRootProjects(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	projects, err := h.projectService.ListRootProjects(r.Context(), httputil.GetUserID(r), page)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a project, optionally under a parent
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectCreate
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// GetProject returns one project
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.projectService.GetProject(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// UpdateProject applies a partial update. A null parent_project_id moves
// the project to the root.
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch models.ProjectPatch
	if err := httputil.ParseJSON(w, r, &patch); err != nil {
		badRequest(w, err)
		return
	}

	project, err := h.projectService.UpdateProject(r.Context(), r.PathValue("id"), httputil.GetUserID(r), &patch)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// DeleteProject removes a project and its whole subtree
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.projectService.DeleteProject(r.Context(), r.PathValue("id"), httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetChildren returns the direct children of a project
// GET /api/projects/{id}/children
func (h *ProjectHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.projectService.GetChildren(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, children)
}

type hierarchyValidation struct {
	ProjectID string `json:"project_id"`
	ParentID  string `json:"parent_id"`
	Valid     bool   `json:"valid"`
}

// ValidateHierarchy reports whether parent_id may become the project's parent
// GET /api/projects/{id}/hierarchy/validate?parent_id=
func (h *ProjectHandler) ValidateHierarchy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	parentID := r.URL.Query().Get("parent_id")
	if parentID == "" {
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, "parent_id is required",
			map[string]interface{}{"field": "parent_id"})
		return
	}

	valid, err := h.projectService.ValidateHierarchy(r.Context(), id, parentID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, hierarchyValidation{
		ProjectID: id,
		ParentID:  parentID,
		Valid:     valid,
	})
}
