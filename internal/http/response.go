package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/service"
)

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func ok(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func failValidation(c *gin.Context, fields []fieldErrorResponse) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation error",
		"errors":  fields,
	})
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as a generic failure.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]fieldErrorResponse, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = fieldErrorResponse{Field: f.Field, Message: f.Message}
		}
		failValidation(c, fields)
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrAccountLocked):
		fail(c, http.StatusLocked, "Account is temporarily locked due to too many failed login attempts")
	case errors.Is(err, service.ErrAccountDeactivated):
		fail(c, http.StatusUnauthorized, "Account is deactivated")
	case errors.Is(err, service.ErrTokenExpired):
		fail(c, http.StatusUnauthorized, "Token expired")
	case errors.Is(err, service.ErrTokenInvalid):
		fail(c, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, service.ErrAccountExists):
		fail(c, http.StatusBadRequest, "Admin with this email or username already exists")
	case errors.Is(err, service.ErrAccountNotFound):
		fail(c, http.StatusNotFound, "Admin not found")
	case errors.Is(err, service.ErrContactNotFound):
		fail(c, http.StatusNotFound, "Contact not found")
	case errors.Is(err, service.ErrDuplicateContact):
		fail(c, http.StatusTooManyRequests, "You have already submitted a contact form recently. Please wait before submitting again.")
	case errors.Is(err, service.ErrProjectNotFound):
		fail(c, http.StatusNotFound, "Project not found")
	case errors.Is(err, service.ErrMultiplePrimaryImages):
		fail(c, http.StatusBadRequest, "Only one image can be marked as primary")
	case errors.Is(err, service.ErrStorageDisabled):
		fail(c, http.StatusServiceUnavailable, "Image storage is not configured")
	default:
		h.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("request failed: %v", err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

// bindJSON decodes the request body and reports binding failures as field errors.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]fieldErrorResponse, len(verrs))
			for i, fe := range verrs {
				fields[i] = fieldErrorResponse{Field: jsonFieldName(fe), Message: describeTag(fe)}
			}
			failValidation(c, fields)
			return false
		}
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters long"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
