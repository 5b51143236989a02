package handlers

import (
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,orderstatus"`
	Note   string             `json:"note"`
}

func statusSummary(orders []models.Order) map[string]int {
	summary := map[string]int{}
	for _, o := range orders {
		summary[string(o.Status)]++
	}
	return summary
}

// GetRestaurantOrders returns orders containing the owner's menu items
func GetRestaurantOrders(c *gin.Context) {
	restaurant, ok := ownRestaurant(c)
	if !ok {
		return
	}
	orders, err := orderService().ListForRestaurant(c.Request.Context(), restaurant.ID, models.OrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant":    restaurant.Name,
		"order_summary": statusSummary(orders),
		"count":         len(orders),
		"orders":        orders,
	})
}

// UpdateOrderStatus applies an operator transition to one of the
// restaurant's orders
func UpdateOrderStatus(c *gin.Context) {
	restaurant, ok := ownRestaurant(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders := orderService()
	mine, err := orders.BelongsToRestaurant(c.Request.Context(), orderID, restaurant.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !mine {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	applyStatus(c, orders, orderID, req)
}

func applyStatus(c *gin.Context, orders *services.OrderService, orderID uint, req UpdateOrderStatusRequest) {
	change, err := orders.SetStatus(c.Request.Context(), orderID, req.Status, middleware.GetUserID(c), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"order":           change.Order,
		"previous_status": change.From,
		"current_status":  change.To,
	})
}
