package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"food-ordering-api/config"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminGetAllOrders returns all orders with a status summary
func AdminGetAllOrders(c *gin.Context) {
	filter := services.OrderFilter{Status: models.OrderStatus(c.Query("status"))}
	if raw := c.Query("user_id"); raw != "" {
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		filter.UserID = uint(uid)
	}

	orders, err := orderService().ListAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	var totalRevenue float64
	for _, o := range orders {
		if o.Status == models.StatusDelivered {
			totalRevenue += o.Total
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": statusSummary(orders),
		"total_revenue": totalRevenue,
		"count":         len(orders),
		"orders":        orders,
	})
}

// AdminSetOrderStatus applies an operator transition to any order
func AdminSetOrderStatus(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applyStatus(c, orderService(), orderID, req)
}

// AdminDeleteOrder hard-deletes an order with its items and history
func AdminDeleteOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := orderService().Delete(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted", "order_id": orderID})
}

// AdminGetAllUsers returns all users
func AdminGetAllUsers(c *gin.Context) {
	users := []models.User{}
	query := config.DB
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Order("id asc").Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// AdminGetAllRestaurants returns every restaurant, approved or not
func AdminGetAllRestaurants(c *gin.Context) {
	restaurants := []models.Restaurant{}
	query := config.DB.Preload("Owner").Preload("MenuItems")
	if approved := c.Query("approved"); approved != "" {
		query = query.Where("is_approved = ?", approved == "true")
	}
	if err := query.Order("id asc").Find(&restaurants).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

type AdminCreateRestaurantRequest struct {
	CreateRestaurantRequest
	OwnerID uint `json:"owner_id"`
}

// AdminCreateRestaurant adds an approved restaurant. owner_id hands it to an
// existing restaurant-role user; without it the admin holds it.
func AdminCreateRestaurant(c *gin.Context) {
	var req AdminCreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownerID := middleware.GetUserID(c)
	if req.OwnerID != 0 {
		var count int64
		if err := config.DB.Model(&models.User{}).Where("id = ? AND role = ?", req.OwnerID, models.RoleRestaurant).Count(&count).Error; err != nil {
			respondError(c, err)
			return
		}
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id must be a restaurant account"})
			return
		}
		ownerID = req.OwnerID
	}
	restaurant, ok := createRestaurant(c, ownerID, req.CreateRestaurantRequest, true)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// restaurantByParam loads the restaurant named by the :id path param
func restaurantByParam(c *gin.Context) (*models.Restaurant, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	var restaurant models.Restaurant
	if err := config.DB.First(&restaurant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		} else {
			respondError(c, err)
		}
		return nil, false
	}
	return &restaurant, true
}

// menuItemByParam loads :itemId, which must belong to restaurant :id
func menuItemByParam(c *gin.Context) (*models.MenuItem, bool) {
	restaurantID, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return nil, false
	}
	var item models.MenuItem
	if err := config.DB.Where("id = ? AND restaurant_id = ?", itemID, restaurantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		} else {
			respondError(c, err)
		}
		return nil, false
	}
	return &item, true
}

// AdminUpdateRestaurant edits any restaurant's details
func AdminUpdateRestaurant(c *gin.Context) {
	restaurant, ok := restaurantByParam(c)
	if !ok {
		return
	}
	updateRestaurant(c, restaurant)
}

// AdminDeleteRestaurant removes a restaurant and its whole menu
func AdminDeleteRestaurant(c *gin.Context) {
	restaurant, ok := restaurantByParam(c)
	if !ok {
		return
	}
	err := config.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := purgeMenuItems(tx, "restaurant_id = ?", restaurant.ID); err != nil {
			return err
		}
		return tx.Delete(restaurant).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant and its menu deleted", "restaurant_id": restaurant.ID})
}

// AdminAddMenuItem adds an item to any restaurant's menu
func AdminAddMenuItem(c *gin.Context) {
	restaurant, ok := restaurantByParam(c)
	if !ok {
		return
	}
	addMenuItem(c, restaurant)
}

func AdminUpdateMenuItem(c *gin.Context) {
	item, ok := menuItemByParam(c)
	if !ok {
		return
	}
	updateMenuItem(c, item)
}

func AdminDeleteMenuItem(c *gin.Context) {
	item, ok := menuItemByParam(c)
	if !ok {
		return
	}
	deleteMenuItem(c, item)
}

// AdminApproveRestaurant publishes a restaurant
func AdminApproveRestaurant(c *gin.Context) {
	setApproval(c, true)
}

// AdminRejectRestaurant hides a restaurant from the public listing
func AdminRejectRestaurant(c *gin.Context) {
	setApproval(c, false)
}

func setApproval(c *gin.Context, approved bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res := config.DB.Model(&models.Restaurant{}).Where("id = ?", id).Update("is_approved", approved)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant_id": id, "is_approved": approved})
}

// AdminUnreconciledPayments lists succeeded payments no order references
func AdminUnreconciledPayments(c *gin.Context) {
	records, err := paymentService().Unreconciled(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "payments": records})
}
