package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/middleware"
	"github.com/revocity/revocity/api/models"
	"github.com/revocity/revocity/api/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Register records the caller's profile after sign-in
// POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if req.Email == "" {
		req.Email = middleware.CallerEmail(c)
	}

	user, role, err := h.users.Register(c.Request.Context(), middleware.CallerID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"role":    role,
		"isAdmin": role == models.RoleAdmin,
	})
}

// MyRole returns the caller's role
// GET /v1/users/me/role
func (h *UserHandler) MyRole(c *gin.Context) {
	role, err := h.users.RoleOf(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":    role,
		"isAdmin": role == models.RoleAdmin,
	})
}
