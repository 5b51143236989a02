package handlers

import (
	"errors"
	"net/http"

	"food-ordering-api/config"
	"food-ordering-api/middleware"
	"food-ordering-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ── Restaurant Management ────────────────────────────────────────────────────

type CreateRestaurantRequest struct {
	Name        string `json:"name" binding:"required"`
	Cuisine     string `json:"cuisine"`
	Address     string `json:"address" binding:"required"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Email       string `json:"email" binding:"omitempty,email"`
}

// ownRestaurant loads the caller's restaurant, answering 404 when there is none
func ownRestaurant(c *gin.Context) (*models.Restaurant, bool) {
	var restaurant models.Restaurant
	err := config.DB.Where("owner_id = ?", middleware.GetUserID(c)).First(&restaurant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		} else {
			respondError(c, err)
		}
		return nil, false
	}
	return &restaurant, true
}

// CreateRestaurant lets a restaurant-role user create their restaurant. It
// stays hidden from the public listing until an admin approves it.
func CreateRestaurant(c *gin.Context) {
	var req CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	restaurant, ok := createRestaurant(c, middleware.GetUserID(c), req, false)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created, awaiting approval", "restaurant": restaurant})
}

// createRestaurant inserts a restaurant for ownerID. An owner has at most one.
func createRestaurant(c *gin.Context, ownerID uint, req CreateRestaurantRequest, approved bool) (*models.Restaurant, bool) {
	var count int64
	if err := config.DB.Model(&models.Restaurant{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		respondError(c, err)
		return nil, false
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "This owner already has a restaurant"})
		return nil, false
	}

	restaurant := models.Restaurant{
		OwnerID:     ownerID,
		Name:        req.Name,
		Cuisine:     req.Cuisine,
		Address:     req.Address,
		Description: req.Description,
		Phone:       req.Phone,
		Email:       req.Email,
		IsOpen:      true,
	}
	if err := config.DB.Create(&restaurant).Error; err != nil {
		respondError(c, err)
		return nil, false
	}
	// is_approved has a column default, so a false value is never inserted explicitly
	if approved {
		if err := config.DB.Model(&restaurant).Update("is_approved", true).Error; err != nil {
			respondError(c, err)
			return nil, false
		}
	}
	return &restaurant, true
}

// GetMyRestaurant fetches the restaurant owned by the logged-in user
func GetMyRestaurant(c *gin.Context) {
	var restaurant models.Restaurant
	if err := config.DB.Preload("MenuItems").Where("owner_id = ?", middleware.GetUserID(c)).First(&restaurant).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// UpdateRestaurant updates restaurant details
func UpdateRestaurant(c *gin.Context) {
	restaurant, ok := ownRestaurant(c)
	if !ok {
		return
	}
	updateRestaurant(c, restaurant)
}

func updateRestaurant(c *gin.Context, restaurant *models.Restaurant) {
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Only allow safe fields
	allowed := map[string]bool{"name": true, "cuisine": true, "address": true, "description": true, "phone": true, "email": true, "is_open": true}
	update := map[string]interface{}{}
	for k, v := range req {
		if allowed[k] {
			update[k] = v
		}
	}
	if err := config.DB.Model(restaurant).Updates(update).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

// ── Menu Management ─────────────────────────────────────────────────────────

type CreateMenuItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
}

// AddMenuItem adds a new item to the restaurant's menu
func AddMenuItem(c *gin.Context) {
	restaurant, ok := ownRestaurant(c)
	if !ok {
		return
	}
	addMenuItem(c, restaurant)
}

func addMenuItem(c *gin.Context, restaurant *models.Restaurant) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := models.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Image:        req.Image,
		Category:     req.Category,
		IsAvailable:  true,
	}
	if err := config.DB.Create(&item).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

// ownMenuItem loads a menu item of the caller's restaurant
func ownMenuItem(c *gin.Context) (*models.MenuItem, bool) {
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return nil, false
	}
	var item models.MenuItem
	if err := config.DB.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		return nil, false
	}
	var restaurant models.Restaurant
	if err := config.DB.Where("id = ? AND owner_id = ?", item.RestaurantID, middleware.GetUserID(c)).First(&restaurant).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't own this menu item"})
		return nil, false
	}
	return &item, true
}

// UpdateMenuItem updates a menu item (only by the owner). Orders already
// placed keep the name and price they were frozen with.
func UpdateMenuItem(c *gin.Context) {
	item, ok := ownMenuItem(c)
	if !ok {
		return
	}
	updateMenuItem(c, item)
}

func updateMenuItem(c *gin.Context, item *models.MenuItem) {
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	allowed := map[string]bool{"name": true, "description": true, "price": true, "image": true, "category": true, "is_available": true}
	update := map[string]interface{}{}
	for k, v := range req {
		if allowed[k] {
			update[k] = v
		}
	}
	if price, ok := update["price"].(float64); ok && price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be positive"})
		return
	}
	if err := config.DB.Model(item).Updates(update).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

// DeleteMenuItem removes a menu item together with its cart rows and ratings
func DeleteMenuItem(c *gin.Context) {
	item, ok := ownMenuItem(c)
	if !ok {
		return
	}
	deleteMenuItem(c, item)
}

func deleteMenuItem(c *gin.Context, item *models.MenuItem) {
	err := config.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return purgeMenuItems(tx, "id = ?", item.ID)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}

// purgeMenuItems removes the menu items matching the condition and every
// cart row and rating that points at them. Placed orders keep their snapshots.
func purgeMenuItems(tx *gorm.DB, query string, arg uint) error {
	ids := tx.Model(&models.MenuItem{}).Select("id").Where(query, arg)
	if err := tx.Where("menu_item_id IN (?)", ids).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("menu_item_id IN (?)", ids).Delete(&models.MenuRating{}).Error; err != nil {
		return err
	}
	return tx.Where(query, arg).Delete(&models.MenuItem{}).Error
}
