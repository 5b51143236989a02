package handlers

import (
	"errors"
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/pricing"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type AddToCartRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func totalsPayload(t pricing.Totals) gin.H {
	return gin.H{
		"subtotal":     pricing.Float(t.Subtotal),
		"delivery_fee": pricing.Float(t.DeliveryFee),
		"tax":          pricing.Float(t.Tax),
		"discount":     pricing.Float(t.Discount),
		"total":        pricing.Float(t.Total),
		"promo_code":   t.PromoCode,
	}
}

// GetCart lists the caller's cart with live totals. ?promo= previews a code.
func GetCart(c *gin.Context) {
	userID := middleware.GetUserID(c)
	quote, err := cartService().Quote(c.Request.Context(), userID, c.Query("promo"))
	if errors.Is(err, services.ErrEmptyCart) {
		c.JSON(http.StatusOK, gin.H{"count": 0, "items": []any{}, "totals": nil})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(quote.Items),
		"items":  quote.Items,
		"totals": totalsPayload(quote.Totals),
	})
}

// AddToCart adds a menu item, merging with an existing row for the same item
func AddToCart(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := cartService().AddItem(c.Request.Context(), userID, req.MenuItemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item added to cart", "item": row})
}

// UpdateCartItem overwrites a row's quantity; zero or less removes it
func UpdateCartItem(c *gin.Context) {
	userID := middleware.GetUserID(c)
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := cartService().SetQuantity(c.Request.Context(), userID, itemID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	if row == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated", "item": row})
}

// RemoveCartItem deletes one row from the caller's cart
func RemoveCartItem(c *gin.Context) {
	userID := middleware.GetUserID(c)
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}
	if err := cartService().RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}
