package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/config"
	"github.com/revocity/revocity/api/services"
	"gorm.io/gorm"
)

type PublicHandler struct {
	config     *config.Config
	db         *gorm.DB
	complaints *services.ComplaintService
}

func NewPublicHandler(cfg *config.Config, db *gorm.DB, complaints *services.ComplaintService) *PublicHandler {
	return &PublicHandler{
		config:     cfg,
		db:         db,
		complaints: complaints,
	}
}

// Health reports service and database status
// GET /health
func (h *PublicHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   h.config.AppName,
		"timestamp": time.Now().UTC(),
	})
}

// Transparency returns the public city cleanliness report
// GET /v1/public/transparency
func (h *PublicHandler) Transparency(c *gin.Context) {
	report, err := h.complaints.Transparency(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}
