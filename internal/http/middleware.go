package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/ratelimit"
	"bureau-engine/internal/service"
)

const (
	accountContextKey    = "account"
	registerSecretHeader = "X-Register-Secret"
)

func corsMiddleware(allowed []string) gin.HandlerFunc {
	wildcard := slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || slices.Contains(allowed, origin)) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+registerSecretHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func securityHeaders(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		if production {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// rateLimit rejects clients that exceed rule. Limiter failures let the
// request through.
func (h *Handler) rateLimit(rule ratelimit.Rule, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := h.opts.Limiter.Allow(c.Request.Context(), rule, c.ClientIP())
		if err != nil {
			h.logger.WithField("rule", rule.Name).Warnf("rate limiter unavailable: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			c.Header("Retry-After", ratelimit.RetryAfterSeconds(decision.RetryAfter))
			fail(c, http.StatusTooManyRequests, message)
			return
		}
		c.Next()
	}
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// registrationGate admits callers presenting the registration secret, or an
// authenticated super-admin.
func (h *Handler) registrationGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret := c.GetHeader(registerSecretHeader); secret != "" {
			if h.opts.RegisterSecret == "" ||
				subtle.ConstantTimeCompare([]byte(secret), []byte(h.opts.RegisterSecret)) != 1 {
				fail(c, http.StatusForbidden, "Invalid registration secret")
				return
			}
			c.Next()
			return
		}

		account, ok := h.authenticate(c)
		if !ok {
			return
		}
		if account.Role != domain.RoleSuperAdmin {
			fail(c, http.StatusForbidden, "Access denied. Super admin privileges required.")
			return
		}
		c.Next()
	}
}

// authenticate resolves the bearer token to an active account and stores it
// on the context. On failure the response is written and the chain aborted.
func (h *Handler) authenticate(c *gin.Context) (*domain.AccountProfile, bool) {
	token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		fail(c, http.StatusUnauthorized, "Access denied. No token provided.")
		return nil, false
	}

	accountID, err := h.guard.VerifyToken(token)
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}

	account, err := h.guard.ActiveAccount(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			fail(c, http.StatusUnauthorized, "Invalid token")
			return nil, false
		}
		h.writeError(c, err)
		return nil, false
	}

	c.Set(accountContextKey, account)
	return account, true
}

func currentAccount(c *gin.Context) *domain.AccountProfile {
	v, ok := c.Get(accountContextKey)
	if !ok {
		return nil
	}
	account, _ := v.(*domain.AccountProfile)
	return account
}
