package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NutritionFacts carries the model's estimates as display strings
// ("250 kcal", "12g"). They are never parsed numerically.
type NutritionFacts struct {
	Calories    string `json:"calories"`
	Protein     string `json:"protein"`
	Carbs       string `json:"carbs"`
	Fat         string `json:"fat"`
	Fiber       string `json:"fiber"`
	Sugar       string `json:"sugar"`
	Sodium      string `json:"sodium"`
	Cholesterol string `json:"cholesterol"`
}

const (
	MealTypeBreakfast = "Breakfast"
	MealTypeLunch     = "Lunch"
	MealTypeDinner    = "Dinner"
	MealTypeSnack     = "Snack"
)

func ValidMealType(s string) bool {
	switch s {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

// FoodEntry is one logged meal. JSON tags are the client-facing camelCase
// names, column tags the storage snake_case names; the struct is the
// field-mapping table.
type FoodEntry struct {
	ID                       string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID                   string         `json:"user_id" gorm:"column:user_id;type:varchar(36);index;not null"`
	CreatedAt                time.Time      `json:"created_at"`
	Timestamp                time.Time      `json:"timestamp" gorm:"index"`
	IdentifiedFood           string         `json:"identifiedFood" gorm:"column:identified_food;not null"`
	Image                    string         `json:"image"`
	MealType                 string         `json:"mealType" gorm:"column:meal_type"`
	Notes                    string         `json:"notes"`
	PortionSize              string         `json:"portionSize" gorm:"column:portion_size"`
	RecognizedServingSize    string         `json:"recognizedServingSize" gorm:"column:recognized_serving_size"`
	NutritionFactsPerPortion NutritionFacts `json:"nutritionFactsPerPortion" gorm:"column:nutrition_facts_per_portion;serializer:json"`
	AdditionalNotes          []string       `json:"additionalNotes" gorm:"column:additional_notes;serializer:json"`
}

func (f *FoodEntry) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}
	if f.AdditionalNotes == nil {
		f.AdditionalNotes = []string{}
	}
	return nil
}

// Notes may carry a location tag as a "📍 Word\n" prefix
// (Home, Work, Restaurant, Event).
var locationTagRe = regexp.MustCompile(`📍 (\w+)\n?`)

// SplitLocationTag extracts the embedded location tag from a notes string.
// Returns the lowercased location (empty if none) and the remaining notes.
func SplitLocationTag(notes string) (location, rest string) {
	m := locationTagRe.FindStringSubmatch(notes)
	if m == nil {
		return "", notes
	}
	rest = strings.TrimSpace(locationTagRe.ReplaceAllString(notes, ""))
	return strings.ToLower(m[1]), rest
}

// JoinLocationTag prepends a location tag to notes, capitalizing the first
// letter the way the client composes it. An empty location returns notes
// unchanged.
func JoinLocationTag(location, notes string) string {
	if location == "" {
		return notes
	}
	tag := strings.ToUpper(location[:1]) + strings.ToLower(location[1:])
	return "📍 " + tag + "\n" + notes
}
