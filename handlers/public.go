package handlers

import (
	"net/http"

	"food-ordering-api/config"
	"food-ordering-api/models"
	"food-ordering-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns approved restaurants (public)
func ListRestaurants(c *gin.Context) {
	restaurants := []models.Restaurant{}
	query := config.DB.Where("is_approved = ?", true)

	if cuisine := c.Query("cuisine"); cuisine != "" {
		query = query.Where("cuisine LIKE ?", "%"+cuisine+"%")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if open := c.Query("open"); open == "true" {
		query = query.Where("is_open = ?", true)
	}

	if err := query.Order("name asc").Find(&restaurants).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a single approved restaurant with its menu
func GetRestaurant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var restaurant models.Restaurant
	if err := config.DB.Preload("MenuItems").
		Where("is_approved = ?", true).
		First(&restaurant, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the menu for a specific restaurant (public)
func GetMenu(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var restaurant models.Restaurant
	if err := config.DB.Where("is_approved = ?", true).First(&restaurant, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}

	items := []models.MenuItem{}
	query := config.DB.Where("restaurant_id = ?", id)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("available") == "true" {
		query = query.Where("is_available = ?", true)
	}
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(items),
		"menu":       items,
	})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	next := gin.H{}
	for _, s := range statemachine.Statuses {
		next[string(s)] = statemachine.ValidTransitionsFrom(s)
	}
	c.JSON(http.StatusOK, gin.H{
		"statuses":        statemachine.Statuses,
		"transitions":     statemachine.GetAllTransitions(),
		"next":            next,
		"terminal_states": []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"description":     "Food ordering lifecycle: customers may cancel while Pending; operators set any non-cancelled status until the order is Delivered",
	})
}
