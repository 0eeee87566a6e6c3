package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/service"
	"bureau-engine/internal/storage"
)

// maxImageUpload bounds a single project image upload.
const maxImageUpload = 5 << 20

type projectRequest struct {
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	LongDescription string                `json:"longDescription"`
	Category        string                `json:"category"`
	Technologies    []string              `json:"technologies"`
	Features        []string              `json:"features"`
	Images          []domain.ProjectImage `json:"images"`
	Links           domain.ProjectLinks   `json:"links"`
	Client          domain.ProjectClient  `json:"client"`
	Metrics         domain.ProjectMetrics `json:"metrics"`
	Status          string                `json:"status"`
	Featured        bool                  `json:"featured"`
	Order           int                   `json:"order"`
}

func (r projectRequest) toInput() service.ProjectInput {
	return service.ProjectInput{
		Title:           r.Title,
		Description:     r.Description,
		LongDescription: r.LongDescription,
		Category:        r.Category,
		Technologies:    r.Technologies,
		Features:        r.Features,
		Images:          r.Images,
		Links:           r.Links,
		Client:          r.Client,
		Metrics:         r.Metrics,
		Status:          domain.ProjectStatus(r.Status),
		Featured:        r.Featured,
		Order:           r.Order,
	}
}

type ProjectResponse struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	LongDescription string                `json:"longDescription,omitempty"`
	Category        string                `json:"category"`
	Technologies    []string              `json:"technologies"`
	Features        []string              `json:"features"`
	Images          []domain.ProjectImage `json:"images"`
	Links           domain.ProjectLinks   `json:"links"`
	Client          domain.ProjectClient  `json:"client"`
	Metrics         domain.ProjectMetrics `json:"metrics"`
	Status          domain.ProjectStatus  `json:"status"`
	Featured        bool                  `json:"featured"`
	Order           int                   `json:"order"`
	CreatedAt       string                `json:"createdAt"`
	UpdatedAt       string                `json:"updatedAt"`
}

type CategoryResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"lastModified,omitempty"`
}

func (h *Handler) listProjects(c *gin.Context) {
	projects, err := h.projects.ListPublic(c.Request.Context(), c.Query("category"), c.Query("featured") == "true")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "", projectsToResponse(projects))
}

func (h *Handler) projectCategories(c *gin.Context) {
	counts, err := h.projects.Categories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]CategoryResponse, len(counts))
	for i, cc := range counts {
		resp[i] = CategoryResponse{Name: cc.Category, Count: cc.Count}
	}
	ok(c, http.StatusOK, "", resp)
}

func (h *Handler) featuredProjects(c *gin.Context) {
	projects, err := h.projects.Featured(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "", projectsToResponse(projects))
}

func (h *Handler) getProject(c *gin.Context) {
	project, err := h.projects.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "", projectToResponse(*project))
}

func (h *Handler) createProject(c *gin.Context) {
	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projects.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Project created successfully", projectToResponse(*project))
}

func (h *Handler) updateProject(c *gin.Context) {
	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projects.Update(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "Project updated successfully", projectToResponse(*project))
}

func (h *Handler) deleteProject(c *gin.Context) {
	id := c.Param("id")
	warnings, err := h.projects.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{"deleted": id}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	ok(c, http.StatusOK, "Project deleted successfully", resp)
}

func (h *Handler) listAllProjects(c *gin.Context) {
	filter := domain.ProjectFilter{
		Category: c.Query("category"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.ProjectStatus{domain.ProjectStatus(status)}
	}

	projects, page, err := h.projects.ListAll(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{
		"projects":   projectsToResponse(projects),
		"pagination": paginationToResponse(page),
	})
}

func (h *Handler) uploadProjectImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "image file is required")
		return
	}
	if file.Size > maxImageUpload {
		fail(c, http.StatusRequestEntityTooLarge, "image exceeds the 5MB limit")
		return
	}

	body, err := file.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer body.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		fail(c, http.StatusBadRequest, "file must be an image")
		return
	}

	url, err := h.projects.UploadImage(c.Request.Context(), c.Param("id"), file.Filename, contentType, body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Image uploaded successfully", gin.H{"url": url})
}

func (h *Handler) listProjectImages(c *gin.Context) {
	objects, err := h.projects.ListMedia(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	ok(c, http.StatusOK, "", resp)
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func projectsToResponse(projects []domain.Project) []ProjectResponse {
	resp := make([]ProjectResponse, len(projects))
	for i := range projects {
		resp[i] = projectToResponse(projects[i])
	}
	return resp
}

func projectToResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		LongDescription: p.LongDescription,
		Category:        p.Category,
		Technologies:    nonNil(p.Technologies),
		Features:        nonNil(p.Features),
		Images:          nonNil(p.Images),
		Links:           p.Links,
		Client:          p.Client,
		Metrics:         p.Metrics,
		Status:          p.Status,
		Featured:        p.Featured,
		Order:           p.Order,
		CreatedAt:       p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
