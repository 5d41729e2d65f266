package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/middleware"
	"github.com/revocity/revocity/api/services"
)

// CommunityHandler serves the reward ledger and area risk read models
type CommunityHandler struct {
	rewards *services.RewardService
	areas   *services.AreaService
}

func NewCommunityHandler(rewards *services.RewardService, areas *services.AreaService) *CommunityHandler {
	return &CommunityHandler{
		rewards: rewards,
		areas:   areas,
	}
}

// MyRewards returns the caller's points and badges
// GET /v1/rewards/me
func (h *CommunityHandler) MyRewards(c *gin.Context) {
	reward, err := h.rewards.Get(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, reward)
}

// Leaderboard returns the top reporters by points
// GET /v1/rewards/leaderboard
func (h *CommunityHandler) Leaderboard(c *gin.Context) {
	rewards, err := h.rewards.Leaderboard(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": rewards})
}

// TopAreas returns the areas with the most overflow reports
// GET /v1/areas, GET /v1/public/areas
func (h *CommunityHandler) TopAreas(c *gin.Context) {
	areas, err := h.areas.TopAreas(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

// GetArea returns the statistic for one area key
// GET /v1/areas/:key
func (h *CommunityHandler) GetArea(c *gin.Context) {
	area, err := h.areas.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, area)
}
