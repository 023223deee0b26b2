package services

import (
	"errors"
	"log"
	"strings"

	"github.com/royamoon/FoodLens/models"
	"github.com/royamoon/FoodLens/utils"

	"gorm.io/gorm"
)

// ErrNotFound covers both absent entries and entries owned by someone else,
// so callers cannot probe for other users' rows.
var ErrNotFound = errors.New("food entry not found")

type FoodService struct {
	db *gorm.DB
}

func NewFoodService(db *gorm.DB) *FoodService {
	return &FoodService{db: db}
}

func (s *FoodService) Create(userID string, entry *models.FoodEntry) (*models.FoodEntry, error) {
	entry.ID = ""
	entry.UserID = userID

	// Offload data-URI photos to S3 when configured; keep the inline image
	// if the upload fails.
	if utils.S3Enabled() && strings.HasPrefix(entry.Image, "data:") {
		url, err := utils.UploadBase64ImageToS3(entry.Image, userID)
		if err != nil {
			log.Printf("meal image upload failed, storing inline: %v", err)
		} else {
			entry.Image = url
		}
	}

	if err := s.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *FoodService) List(userID string) ([]models.FoodEntry, error) {
	entries := []models.FoodEntry{}
	err := s.db.Where("user_id = ?", userID).
		Order("timestamp desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *FoodService) Get(id, userID string) (*models.FoodEntry, error) {
	var entry models.FoodEntry
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update applies a partial column update and returns the fresh row.
func (s *FoodService) Update(id, userID string, updates map[string]interface{}) (*models.FoodEntry, error) {
	if _, err := s.Get(id, userID); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		err := s.db.Model(&models.FoodEntry{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates).Error
		if err != nil {
			return nil, err
		}
	}
	return s.Get(id, userID)
}

func (s *FoodService) Delete(id, userID string) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.FoodEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
