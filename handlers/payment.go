package handlers

import (
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// CreatePayment charges the cart total. The client creates the order with a
// separate call after a success, passing payment_intent_id to link them.
func CreatePayment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req services.PaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := paymentService().Initiate(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Checkout charges the cart and creates the order in one call
func Checkout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req services.PaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := paymentService().Checkout(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Order != nil {
		c.JSON(http.StatusCreated, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PaymentWebhook receives signed processor events
func PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}
	record, err := paymentService().HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "reconciled": record != nil && record.OrderID != nil})
}
