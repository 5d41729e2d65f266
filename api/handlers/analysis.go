package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/config"
	"github.com/revocity/revocity/api/middleware"
	"github.com/revocity/revocity/api/services"
)

type AnalysisHandler struct {
	config    *config.Config
	analyzer  *services.AnalyzerService
	validator *services.ValidatorService
}

func NewAnalysisHandler(cfg *config.Config, analyzer *services.AnalyzerService, validator *services.ValidatorService) *AnalysisHandler {
	return &AnalysisHandler{
		config:    cfg,
		analyzer:  analyzer,
		validator: validator,
	}
}

// AnalyzeBin assesses a bin photo and records it in the caller's scan history
// POST /v1/analysis/bin
func (h *AnalysisHandler) AnalyzeBin(c *gin.Context) {
	var req imageRequest
	if !bindJSON(c, &req) {
		return
	}

	img, err := services.DecodeImage(req.ImageBase64, h.config.MaxImageBytes())
	if err != nil {
		c.Error(err)
		return
	}

	analysis := h.analyzer.Analyze(c.Request.Context(), middleware.CallerID(c), img)
	c.JSON(http.StatusOK, gin.H{
		"success":  !analysis.Degraded,
		"analysis": analysis,
	})
}

// ValidateImage screens a photo for authenticity before a complaint is filed
// POST /v1/analysis/validate
func (h *AnalysisHandler) ValidateImage(c *gin.Context) {
	var req imageRequest
	if !bindJSON(c, &req) {
		return
	}

	img, err := services.DecodeImage(req.ImageBase64, h.config.MaxImageBytes())
	if err != nil {
		c.Error(err)
		return
	}

	verdict := h.validator.Validate(c.Request.Context(), img)
	c.JSON(http.StatusOK, gin.H{
		"validation": verdict,
		"blocked":    verdict.Blocking(),
		"warning":    verdict.Warning(),
	})
}

// ListScans returns the caller's recent bin analyses
// GET /v1/scans
func (h *AnalysisHandler) ListScans(c *gin.Context) {
	scans, err := h.analyzer.History(c.Request.Context(), middleware.CallerID(c), queryInt(c, "limit", 20))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans": scans,
		"count": len(scans),
	})
}
