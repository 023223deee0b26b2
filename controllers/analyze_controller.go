package controllers

import (
	"errors"
	"net/http"

	"github.com/royamoon/FoodLens/services"

	"github.com/gin-gonic/gin"
)

type AnalyzeInput struct {
	Image struct {
		InlineData struct {
			Data     string `json:"data" binding:"required"`
			MimeType string `json:"mimeType" binding:"required"`
		} `json:"inlineData" binding:"required"`
	} `json:"image" binding:"required"`
}

// AnalyzeFood forwards one inline image to the model and returns its
// structured nutrition estimate.
func AnalyzeFood(c *gin.Context) {
	var input AnalyzeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data. Please ensure image is properly encoded."})
		return
	}

	svc := services.NewAnalysisService()
	analysis, err := svc.Analyze(c.Request.Context(), input.Image.InlineData.Data, input.Image.InlineData.MimeType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuota):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrMissingAPIKey), errors.Is(err, services.ErrModelResponse):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze image"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"foodAnalysis": analysis},
	})
}
