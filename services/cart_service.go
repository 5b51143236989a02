package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-ordering-api/models"
	"food-ordering-api/pricing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartService struct {
	DB *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{DB: db}
}

// Quote is the live price of a cart. Prices are the menu's current ones and
// may differ from what an order later freezes.
type Quote struct {
	Items  []models.CartItem
	Totals pricing.Totals
}

// AddItem puts qty of a menu item in the user's cart. An existing row for the
// same item is incremented in the same statement, so concurrent adds never
// lose an update.
func (s *CartService) AddItem(ctx context.Context, userID, menuItemID uint, qty int) (*models.CartItem, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var row models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.Select("id").First(&item, menuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("menu item")
			}
			return err
		}

		row = models.CartItem{UserID: userID, MenuItemID: menuItemID, Quantity: qty}
		err := tx.Clauses(mergeQuantity(qty)).Create(&row).Error
		if err != nil {
			return err
		}
		row = models.CartItem{}
		return tx.Where("user_id = ? AND menu_item_id = ?", userID, menuItemID).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// mergeQuantity adds qty to an existing (user, item) row. The column is
// qualified because postgres also exposes EXCLUDED.quantity in DO UPDATE.
func mergeQuantity(qty int) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "menu_item_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
			"updated_at": time.Now(),
		}),
	}
}

// SetQuantity overwrites the quantity of one of the user's rows. A quantity
// of zero or less removes the row and returns nil.
func (s *CartService) SetQuantity(ctx context.Context, userID, cartItemID uint, qty int) (*models.CartItem, error) {
	if qty <= 0 {
		return nil, s.RemoveItem(ctx, userID, cartItemID)
	}

	var row models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", cartItemID, userID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("cart item")
			}
			return err
		}
		row.Quantity = qty
		return tx.Model(&row).Update("quantity", qty).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RemoveItem deletes one of the user's rows
func (s *CartService) RemoveItem(ctx context.Context, userID, cartItemID uint) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("cart item")
	}
	return nil
}

// ListItems returns the user's rows joined with the current menu item data
func (s *CartService) ListItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return listCart(s.DB.WithContext(ctx), userID)
}

// Quote prices the live cart. An empty cart is ErrEmptyCart.
func (s *CartService) Quote(ctx context.Context, userID uint, promo string) (*Quote, error) {
	items, err := s.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	return quoteItems(items, promo)
}

func listCart(db *gorm.DB, userID uint) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := db.Preload("MenuItem").
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error
	return items, err
}

func quoteItems(items []models.CartItem, promo string) (*Quote, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{UnitPrice: it.MenuItem.Price, Quantity: it.Quantity})
	}
	totals, err := pricing.Compute(lines, promo)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownPromo) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPromo, promo)
		}
		return nil, err
	}
	return &Quote{Items: items, Totals: totals}, nil
}
