package models

import "time"

type Restaurant struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	OwnerID     uint       `json:"owner_id" gorm:"not null;index"`
	Owner       User       `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string     `json:"name" gorm:"not null"`
	Cuisine     string     `json:"cuisine"`
	Address     string     `json:"address"`
	Description string     `json:"description"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	IsOpen      bool       `json:"is_open" gorm:"default:true"`
	IsApproved  bool       `json:"is_approved" gorm:"default:false"`
	MenuItems   []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type MenuItem struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	RestaurantID  uint         `json:"restaurant_id" gorm:"not null;index"`
	Name          string       `json:"name" gorm:"not null"`
	Description   string       `json:"description"`
	Price         float64      `json:"price" gorm:"not null"`
	Image         string       `json:"image"`
	Category      string       `json:"category"`
	IsAvailable   bool         `json:"is_available" gorm:"default:true"`
	AverageRating float64      `json:"average_rating" gorm:"default:0"`
	Ratings       []MenuRating `json:"ratings,omitempty" gorm:"foreignKey:MenuItemID"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// MenuRating holds one user's latest rating of a menu item
type MenuRating struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	MenuItemID uint      `json:"menu_item_id" gorm:"not null;uniqueIndex:idx_rating_item_user"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_rating_item_user"`
	Rating     int       `json:"rating" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
