package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/config"
	"github.com/revocity/revocity/api/middleware"
	"github.com/revocity/revocity/api/models"
	"github.com/revocity/revocity/api/services"
)

type ComplaintHandler struct {
	config     *config.Config
	complaints *services.ComplaintService
}

// SubmitComplaintRequest carries either a photo, a previously returned
// analysis, or both. A photo without analysis is analyzed on submission.
type SubmitComplaintRequest struct {
	ImageBase64 string                `json:"imageBase64"`
	Latitude    *float64              `json:"latitude"`
	Longitude   *float64              `json:"longitude"`
	Address     string                `json:"address"`
	AreaName    string                `json:"areaName"`
	Notes       string                `json:"notes"`
	Email       string                `json:"email"`
	Analysis    *services.BinAnalysis `json:"analysis"`
}

func NewComplaintHandler(cfg *config.Config, complaints *services.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{
		config:     cfg,
		complaints: complaints,
	}
}

// Submit files a new complaint for the caller
// POST /v1/complaints
func (h *ComplaintHandler) Submit(c *gin.Context) {
	var req SubmitComplaintRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.SubmitInput{
		ReporterID:    middleware.CallerID(c),
		ReporterEmail: req.Email,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Address:       req.Address,
		AreaName:      req.AreaName,
		Notes:         req.Notes,
		Analysis:      req.Analysis,
	}
	if in.ReporterEmail == "" {
		in.ReporterEmail = middleware.CallerEmail(c)
	}

	if req.ImageBase64 != "" {
		img, err := services.DecodeImage(req.ImageBase64, h.config.MaxImageBytes())
		if err != nil {
			c.Error(err)
			return
		}
		in.Image = img
	}

	result, err := h.complaints.Submit(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List returns complaints with optional status, priority and area filters
// GET /v1/complaints
func (h *ComplaintHandler) List(c *gin.Context) {
	filter := services.ComplaintFilter{
		ComplaintStatus: models.ComplaintStatus(c.Query("status")),
		Priority:        models.Priority(c.Query("priority")),
		AreaName:        c.Query("area"),
		Limit:           queryInt(c, "limit", 50),
		Offset:          queryInt(c, "offset", 0),
	}

	complaints, err := h.complaints.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaints": complaints,
		"count":      len(complaints),
	})
}

// ListMine returns the caller's own complaints
// GET /v1/complaints/mine
func (h *ComplaintHandler) ListMine(c *gin.Context) {
	complaints, err := h.complaints.ListMine(c.Request.Context(), middleware.CallerID(c), queryInt(c, "limit", 50))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaints": complaints,
		"count":      len(complaints),
	})
}

// Get returns one complaint by id or complaint code
// GET /v1/complaints/:id
func (h *ComplaintHandler) Get(c *gin.Context) {
	complaint, err := h.complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// Stats returns counts by workflow state, priority and area
// GET /v1/complaints/stats
func (h *ComplaintHandler) Stats(c *gin.Context) {
	stats, err := h.complaints.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
