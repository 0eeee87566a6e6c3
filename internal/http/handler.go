package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/ratelimit"
	"bureau-engine/internal/service"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// TrustedProxies lists the proxies whose forwarding headers decide the
	// client IP. Empty means the socket address is always used.
	TrustedProxies []string
	RegisterSecret string
	Version        string
	Environment    string
	Production     bool

	Limiter     ratelimit.Limiter
	GlobalRule  ratelimit.Rule
	ContactRule ratelimit.Rule

	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	guard    service.AccountGuard
	contacts service.ContactService
	projects service.ProjectService
	opts     Options
	logger   logrus.FieldLogger
}

func NewHandler(guard service.AccountGuard, contacts service.ContactService, projects service.ProjectService, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		guard:    guard,
		contacts: contacts,
		projects: projects,
		opts:     opts,
		logger:   opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) error {
	if err := router.SetTrustedProxies(h.opts.TrustedProxies); err != nil {
		return fmt.Errorf("set trusted proxies: %w", err)
	}
	router.Use(requestLogger(h.logger), securityHeaders(h.opts.Production), corsMiddleware(h.opts.AllowedOrigins))

	router.GET("/health", h.health)
	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Route not found")
	})

	api := router.Group("/api")
	if h.opts.Limiter != nil && h.opts.GlobalRule.Limit > 0 {
		api.Use(h.rateLimit(h.opts.GlobalRule, "Too many requests from this IP, please try again later."))
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.registrationGate(), h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/logout", h.requireAuth(), h.logout)
		authGroup.GET("/verify", h.requireAuth(), h.verify)
		authGroup.PUT("/change-password", h.requireAuth(), h.changePassword)
	}

	contact := api.Group("/contact")
	{
		submit := []gin.HandlerFunc{}
		if h.opts.Limiter != nil && h.opts.ContactRule.Limit > 0 {
			submit = append(submit, h.rateLimit(h.opts.ContactRule, "Too many contact form submissions, please try again later."))
		}
		contact.POST("", append(submit, h.submitContact)...)
		contact.GET("", h.requireAuth(), h.listContacts)
		contact.GET("/stats", h.requireAuth(), h.contactStats)
		contact.PUT("/:id/status", h.requireAuth(), h.updateContactStatus)
	}

	projects := api.Group("/projects")
	{
		projects.GET("", h.listProjects)
		projects.GET("/categories", h.projectCategories)
		projects.GET("/featured", h.featuredProjects)
		projects.GET("/admin/all", h.requireAuth(), h.listAllProjects)
		projects.GET("/:id", h.getProject)
		projects.POST("", h.requireAuth(), h.createProject)
		projects.PUT("/:id", h.requireAuth(), h.updateProject)
		projects.DELETE("/:id", h.requireAuth(), h.deleteProject)
		projects.POST("/:id/images", h.requireAuth(), h.uploadProjectImage)
		projects.GET("/:id/images", h.requireAuth(), h.listProjectImages)
	}
	return nil
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"message":     "Bureau Engine API is running",
		"timestamp":   h.opts.Now().UTC().Format(time.RFC3339),
		"version":     h.opts.Version,
		"environment": h.opts.Environment,
	})
}
