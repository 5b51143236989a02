package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"food-ordering-api/config"
	"food-ordering-api/payment"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var pfe *services.PaymentFailedError
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrInvalidPromo),
		errors.Is(err, services.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &pfe):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "status": pfe.Status})
	case errors.Is(err, services.ErrPaymentFailed):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// parseID reads a positive numeric path parameter, answering 400 otherwise
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func cartService() *services.CartService {
	return services.NewCartService(config.DB)
}

func orderService() *services.OrderService {
	var notifier services.StatusNotifier
	if config.Tracker != nil {
		notifier = config.Tracker
	}
	svc := services.NewOrderService(config.DB, config.Payments, notifier, config.Log)
	svc.RequireVerifiedPayment = config.App.RequireVerifiedPayment
	return svc
}

func paymentService() *services.PaymentService {
	return services.NewPaymentService(config.DB, config.Payments, cartService(), orderService(), config.App.Currency, config.Log)
}
