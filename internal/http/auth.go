package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required,max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=admin super-admin"`
}

type loginRequest struct {
	// Username accepts either the username or the email address.
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type AccountResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	LastLogin *string     `json:"lastLogin,omitempty"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expiresAt"`
	Admin     AccountResponse `json:"admin"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.guard.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, expiresAt, err := h.guard.IssueToken(account.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ok(c, http.StatusCreated, "Admin registered successfully", LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Admin:     accountToResponse(*account),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.guard.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, expiresAt, err := h.guard.IssueToken(account.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ok(c, http.StatusOK, "Login successful", LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Admin:     accountToResponse(*account),
	})
}

// logout is stateless; clients drop the token.
func (h *Handler) logout(c *gin.Context) {
	ok(c, http.StatusOK, "Logout successful", nil)
}

func (h *Handler) verify(c *gin.Context) {
	account := currentAccount(c)
	if account == nil {
		fail(c, http.StatusUnauthorized, "Invalid token")
		return
	}
	ok(c, http.StatusOK, "", gin.H{"admin": accountToResponse(*account)})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	account := currentAccount(c)
	if account == nil {
		fail(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	if err := h.guard.ChangePassword(c.Request.Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			fail(c, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		h.writeError(c, err)
		return
	}

	ok(c, http.StatusOK, "Password changed successfully", nil)
}

func accountToResponse(a domain.AccountProfile) AccountResponse {
	resp := AccountResponse{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Name:     a.Name,
		Role:     a.Role,
	}
	if a.LastLoginAt != nil {
		v := a.LastLoginAt.UTC().Format(time.RFC3339)
		resp.LastLogin = &v
	}
	return resp
}
