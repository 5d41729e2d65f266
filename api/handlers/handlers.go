package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/apperr"
)

// imageRequest is the body of every endpoint that takes a single photo
type imageRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(apperr.BadRequest("Invalid request format: " + err.Error()))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
