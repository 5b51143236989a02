package services

import (
	"context"
	"errors"
	"time"

	"food-ordering-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MinRating = 1
	MaxRating = 5
)

type RatingService struct {
	DB *gorm.DB
}

func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{DB: db}
}

// Rate stores the user's rating of a menu item, replacing any earlier one,
// and recomputes the item's plain average over all stored ratings.
func (s *RatingService) Rate(ctx context.Context, userID, menuItemID uint, rating int) (*models.MenuItem, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, ErrInvalidRating
	}

	var item models.MenuItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, menuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("menu item")
			}
			return err
		}

		row := models.MenuRating{MenuItemID: menuItemID, UserID: userID, Rating: rating}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "menu_item_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"rating":     rating,
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		var agg struct {
			Total int64
			Count int64
		}
		if err := tx.Model(&models.MenuRating{}).
			Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS count").
			Where("menu_item_id = ?", menuItemID).
			Scan(&agg).Error; err != nil {
			return err
		}
		avg := 0.0
		if agg.Count > 0 {
			avg = float64(agg.Total) / float64(agg.Count)
		}
		item.AverageRating = avg
		if err := tx.Model(&models.MenuItem{}).Where("id = ?", menuItemID).Update("average_rating", avg).Error; err != nil {
			return err
		}
		return tx.Where("menu_item_id = ?", menuItemID).Order("id asc").Find(&item.Ratings).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
