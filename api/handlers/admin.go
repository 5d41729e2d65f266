package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/config"
	"github.com/revocity/revocity/api/middleware"
	"github.com/revocity/revocity/api/models"
	"github.com/revocity/revocity/api/services"
)

// AdminHandler serves the administrative endpoints. Every mutating service
// call checks the caller's role itself; routing does not grant access.
type AdminHandler struct {
	config     *config.Config
	complaints *services.ComplaintService
	escalation *services.EscalationService
	users      *services.UserService
}

type AssignRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

func NewAdminHandler(cfg *config.Config, complaints *services.ComplaintService, escalation *services.EscalationService, users *services.UserService) *AdminHandler {
	return &AdminHandler{
		config:     cfg,
		complaints: complaints,
		escalation: escalation,
		users:      users,
	}
}

// UpdateComplaint applies a partial status/assignment/notes/cleanup update
// PATCH /v1/admin/complaints/:id
func (h *AdminHandler) UpdateComplaint(c *gin.Context) {
	var patch services.AdminPatch
	if !bindJSON(c, &patch) {
		return
	}

	complaint, err := h.complaints.Update(c.Request.Context(), middleware.CallerID(c), c.Param("id"), patch)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// VerifyCleanup stores an after-cleanup photo and returns the advisory verdict
// POST /v1/admin/complaints/:id/cleanup/verify
func (h *AdminHandler) VerifyCleanup(c *gin.Context) {
	var req imageRequest
	if !bindJSON(c, &req) {
		return
	}

	img, err := services.DecodeImage(req.ImageBase64, h.config.MaxImageBytes())
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.complaints.VerifyCleanup(c.Request.Context(), middleware.CallerID(c), c.Param("id"), img)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunEscalations runs one escalation sweep now
// POST /v1/admin/escalations/run
func (h *AdminHandler) RunEscalations(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.users.Authorize(ctx, middleware.CallerID(c), services.ActionRunEscalation); err != nil {
		c.Error(err)
		return
	}

	result, ran, err := h.escalation.RunLocked(ctx, time.Now())
	if err != nil {
		c.Error(err)
		return
	}
	if !ran {
		c.Error(apperr.Conflict("An escalation sweep is already running"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Escalation check completed",
		"summary": result,
	})
}

// ListUsers returns every registered user with their role
// GET /v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// AssignRole sets a user's role
// PUT /v1/admin/users/:uid/role
func (h *AdminHandler) AssignRole(c *gin.Context) {
	var req AssignRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.AssignRole(c.Request.Context(), middleware.CallerID(c), c.Param("uid"), req.Role); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"userId":  c.Param("uid"),
		"role":    req.Role,
	})
}

// RemoveRole deletes a user's role
// DELETE /v1/admin/users/:uid/role
func (h *AdminHandler) RemoveRole(c *gin.Context) {
	if err := h.users.RemoveRole(c.Request.Context(), middleware.CallerID(c), c.Param("uid")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
