package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"food-ordering-api/config"
	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type RateMenuItemRequest struct {
	Rating int `json:"rating"`
}

// PlaceOrder turns the caller's cart into a Pending order
func PlaceOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := orderService().CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func GetMyOrders(c *gin.Context) {
	userID := middleware.GetUserID(c)
	orders, err := orderService().ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns a single order's full detail with history
func GetOrderDetail(c *gin.Context) {
	userID := middleware.GetUserID(c)
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := orderService().GetForUser(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":           order,
		"minutes_elapsed": int(time.Since(order.CreatedAt).Minutes()),
	})
}

// CancelOrder cancels one of the caller's orders while it is still Pending
func CancelOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := orderService().Cancel(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}

// RateMenuItem stores the caller's 1-5 rating, replacing any earlier one
func RateMenuItem(c *gin.Context) {
	userID := middleware.GetUserID(c)
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}
	var req RateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := services.NewRatingService(config.DB).Rate(c.Request.Context(), userID, itemID, req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Rating saved",
		"item":           item,
		"average_rating": item.AverageRating,
	})
}
