package models

import "time"

// CartItem is one (user, menu item) row prior to checkout
type CartItem struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_cart_user_item"`
	MenuItemID uint      `json:"menu_item_id" gorm:"not null;uniqueIndex:idx_cart_user_item"`
	MenuItem   MenuItem  `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	Quantity   int       `json:"quantity" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
