package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/royamoon/FoodLens/config"
	"github.com/royamoon/FoodLens/models"
	"github.com/royamoon/FoodLens/services"

	"github.com/gin-gonic/gin"
)

type CreateFoodInput struct {
	IdentifiedFood           string                `json:"identifiedFood" binding:"required"`
	Image                    string                `json:"image" binding:"required"`
	MealType                 string                `json:"mealType" binding:"omitempty,oneof=Breakfast Lunch Dinner Snack"`
	Notes                    string                `json:"notes"`
	PortionSize              string                `json:"portionSize" binding:"required"`
	RecognizedServingSize    string                `json:"recognizedServingSize" binding:"required"`
	NutritionFactsPerPortion models.NutritionFacts `json:"nutritionFactsPerPortion" binding:"required"`
	AdditionalNotes          []string              `json:"additionalNotes"`
	Timestamp                *time.Time            `json:"timestamp"`
}

type UpdateFoodInput struct {
	IdentifiedFood           *string                `json:"identifiedFood"`
	Image                    *string                `json:"image"`
	MealType                 *string                `json:"mealType" binding:"omitempty,oneof=Breakfast Lunch Dinner Snack"`
	Notes                    *string                `json:"notes"`
	PortionSize              *string                `json:"portionSize"`
	RecognizedServingSize    *string                `json:"recognizedServingSize"`
	NutritionFactsPerPortion *models.NutritionFacts `json:"nutritionFactsPerPortion"`
	AdditionalNotes          *[]string              `json:"additionalNotes"`
	Timestamp                *time.Time             `json:"timestamp"`
}

// columnUpdates maps the provided fields onto their storage columns. The
// struct tags above and this table together are the entire camelCase to
// snake_case mapping; nothing is derived at runtime from field names.
func (in *UpdateFoodInput) columnUpdates() (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if in.IdentifiedFood != nil {
		updates["identified_food"] = *in.IdentifiedFood
	}
	if in.Image != nil {
		updates["image"] = *in.Image
	}
	if in.MealType != nil {
		updates["meal_type"] = *in.MealType
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if in.PortionSize != nil {
		updates["portion_size"] = *in.PortionSize
	}
	if in.RecognizedServingSize != nil {
		updates["recognized_serving_size"] = *in.RecognizedServingSize
	}
	if in.NutritionFactsPerPortion != nil {
		b, err := json.Marshal(in.NutritionFactsPerPortion)
		if err != nil {
			return nil, err
		}
		updates["nutrition_facts_per_portion"] = string(b)
	}
	if in.AdditionalNotes != nil {
		b, err := json.Marshal(in.AdditionalNotes)
		if err != nil {
			return nil, err
		}
		updates["additional_notes"] = string(b)
	}
	if in.Timestamp != nil {
		updates["timestamp"] = *in.Timestamp
	}
	return updates, nil
}

func CreateFood(c *gin.Context) {
	var input CreateFoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := models.FoodEntry{
		IdentifiedFood:           input.IdentifiedFood,
		Image:                    input.Image,
		MealType:                 input.MealType,
		Notes:                    input.Notes,
		PortionSize:              input.PortionSize,
		RecognizedServingSize:    input.RecognizedServingSize,
		NutritionFactsPerPortion: input.NutritionFactsPerPortion,
		AdditionalNotes:          input.AdditionalNotes,
	}
	if input.Timestamp != nil {
		entry.Timestamp = *input.Timestamp
	}

	svc := services.NewFoodService(config.DB)
	created, err := svc.Create(c.GetString("userID"), &entry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func ListFood(c *gin.Context) {
	svc := services.NewFoodService(config.DB)
	entries, err := svc.List(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func GetFood(c *gin.Context) {
	svc := services.NewFoodService(config.DB)
	entry, err := svc.Get(c.Param("id"), c.GetString("userID"))
	if err != nil {
		respondFoodError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func UpdateFood(c *gin.Context) {
	var input UpdateFoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates, err := input.columnUpdates()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := services.NewFoodService(config.DB)
	entry, err := svc.Update(c.Param("id"), c.GetString("userID"), updates)
	if err != nil {
		respondFoodError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func DeleteFood(c *gin.Context) {
	svc := services.NewFoodService(config.DB)
	if err := svc.Delete(c.Param("id"), c.GetString("userID")); err != nil {
		respondFoodError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Food entry deleted successfully"})
}

func respondFoodError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Food entry not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
