package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/service"
)

type contactRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	ProjectType string `json:"projectType"`
	Budget      string `json:"budget"`
	Timeline    string `json:"timeline"`
	Message     string `json:"message"`
}

type contactStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

type ContactResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Email       string               `json:"email"`
	Company     string               `json:"company,omitempty"`
	ProjectType string               `json:"projectType,omitempty"`
	Budget      string               `json:"budget,omitempty"`
	Timeline    string               `json:"timeline,omitempty"`
	Message     string               `json:"message"`
	Status      domain.ContactStatus `json:"status"`
	Notes       string               `json:"notes,omitempty"`
	IPAddress   string               `json:"ipAddress,omitempty"`
	UserAgent   string               `json:"userAgent,omitempty"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
}

type PaginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func (h *Handler) submitContact(c *gin.Context) {
	var req contactRequest
	if !bindJSON(c, &req) {
		return
	}

	contact, err := h.contacts.Submit(c.Request.Context(), service.ContactInput{
		Name:        req.Name,
		Email:       req.Email,
		Company:     req.Company,
		ProjectType: req.ProjectType,
		Budget:      req.Budget,
		Timeline:    req.Timeline,
		Message:     req.Message,
	}, service.SubmissionMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	ok(c, http.StatusCreated, "Thank you for your message! We will get back to you within 24 hours.", gin.H{
		"id":        contact.ID,
		"createdAt": contact.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) listContacts(c *gin.Context) {
	contacts, page, err := h.contacts.List(c.Request.Context(), domain.ContactFilter{
		Status: domain.ContactStatus(c.Query("status")),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ContactResponse, len(contacts))
	for i := range contacts {
		resp[i] = contactToResponse(contacts[i])
	}
	ok(c, http.StatusOK, "", gin.H{
		"contacts":   resp,
		"pagination": paginationToResponse(page),
	})
}

func (h *Handler) updateContactStatus(c *gin.Context) {
	var req contactStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	contact, err := h.contacts.UpdateStatus(c.Request.Context(), c.Param("id"), domain.ContactStatus(req.Status), req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "Contact status updated successfully", contactToResponse(*contact))
}

func (h *Handler) contactStats(c *gin.Context) {
	stats, err := h.contacts.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	ok(c, http.StatusOK, "", gin.H{
		"total":     stats.Total,
		"thisMonth": stats.ThisMonth,
		"byStatus":  byStatus,
	})
}

func contactToResponse(contact domain.Contact) ContactResponse {
	return ContactResponse{
		ID:          contact.ID,
		Name:        contact.Name,
		Email:       contact.Email,
		Company:     contact.Company,
		ProjectType: contact.ProjectType,
		Budget:      contact.Budget,
		Timeline:    contact.Timeline,
		Message:     contact.Message,
		Status:      contact.Status,
		Notes:       contact.Notes,
		IPAddress:   contact.IPAddress,
		UserAgent:   contact.UserAgent,
		CreatedAt:   contact.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   contact.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func paginationToResponse(p domain.Pagination) PaginationResponse {
	return PaginationResponse{Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages}
}

// queryInt returns 0 for missing or malformed values so services apply defaults.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
