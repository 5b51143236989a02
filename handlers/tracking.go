package handlers

import (
	"log/slog"
	"net/http"

	"food-ordering-api/config"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/tracking"

	"github.com/gin-gonic/gin"
)

// TrackOrder upgrades to a websocket that receives the order's status changes.
// Customers may watch their own orders, owners orders with their items,
// admins any order.
func TrackOrder(c *gin.Context) {
	if config.Tracker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Tracking is not available"})
		return
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	orders := orderService()
	var (
		order *models.Order
		err   error
	)
	switch id := middleware.GetIdentity(c).(type) {
	case middleware.Customer:
		order, err = orders.GetForUser(ctx, id.ID, orderID)
	case middleware.RestaurantOwner:
		restaurant, ok := ownRestaurant(c)
		if !ok {
			return
		}
		mine, berr := orders.BelongsToRestaurant(ctx, orderID, restaurant.ID)
		if berr != nil {
			respondError(c, berr)
			return
		}
		if !mine {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		order, err = orders.Get(ctx, orderID)
	case middleware.Admin:
		order, err = orders.Get(ctx, orderID)
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown caller"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	current := tracking.OrderEvent{OrderID: order.ID, Status: order.Status, At: order.UpdatedAt}
	if err := config.Tracker.Serve(c.Writer, c.Request, current); err != nil {
		config.Log.Warn(ctx, "tracking_subscribe", "websocket subscription ended with an error",
			slog.Uint64("order_id", uint64(order.ID)),
			slog.String("reason", err.Error()))
	}
}
