package routes

import (
	"food-ordering-api/handlers"
	"food-ordering-api/middleware"
	"food-ordering-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) error {
	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", handlers.Register)
		public.POST("/auth/login", handlers.Login)

		// Restaurants & menus (no auth needed)
		public.GET("/restaurants", handlers.ListRestaurants)
		public.GET("/restaurants/:id", handlers.GetRestaurant)
		public.GET("/restaurants/:id/menu", handlers.GetMenu)

		public.GET("/state-machine", handlers.GetStateMachineInfo)

		// Signed by the processor, not by a user token
		public.POST("/payments/webhook", handlers.PaymentWebhook)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(middleware.AuthRequired())
	{
		auth.GET("/profile", handlers.GetProfile)
		auth.GET("/orders/:id/track", handlers.TrackOrder)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleCustomer))
	{
		customer.GET("/cart", handlers.GetCart)
		customer.POST("/cart", handlers.AddToCart)
		customer.PUT("/cart/:itemId", handlers.UpdateCartItem)
		customer.DELETE("/cart/:itemId", handlers.RemoveCartItem)

		customer.POST("/payments", handlers.CreatePayment)
		customer.POST("/checkout", handlers.Checkout)

		customer.POST("/orders", handlers.PlaceOrder)
		customer.GET("/orders", handlers.GetMyOrders)
		customer.GET("/orders/:id", handlers.GetOrderDetail)
		customer.PUT("/orders/:id/cancel", handlers.CancelOrder)

		customer.POST("/menu/:itemId/rate", handlers.RateMenuItem)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurant := r.Group("/api/restaurant")
	restaurant.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleRestaurant))
	{
		restaurant.POST("", handlers.CreateRestaurant)
		restaurant.GET("", handlers.GetMyRestaurant)
		restaurant.PUT("", handlers.UpdateRestaurant)

		restaurant.POST("/menu", handlers.AddMenuItem)
		restaurant.PUT("/menu/:itemId", handlers.UpdateMenuItem)
		restaurant.DELETE("/menu/:itemId", handlers.DeleteMenuItem)

		restaurant.GET("/orders", handlers.GetRestaurantOrders)
		restaurant.PUT("/orders/:id/status", handlers.UpdateOrderStatus)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", handlers.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", handlers.AdminSetOrderStatus)
		admin.DELETE("/orders/:id", handlers.AdminDeleteOrder)

		admin.GET("/users", handlers.AdminGetAllUsers)
		admin.GET("/restaurants", handlers.AdminGetAllRestaurants)
		admin.POST("/restaurants", handlers.AdminCreateRestaurant)
		admin.PUT("/restaurants/:id", handlers.AdminUpdateRestaurant)
		admin.DELETE("/restaurants/:id", handlers.AdminDeleteRestaurant)
		admin.PUT("/restaurants/:id/approve", handlers.AdminApproveRestaurant)
		admin.PUT("/restaurants/:id/reject", handlers.AdminRejectRestaurant)

		admin.POST("/restaurants/:id/menu", handlers.AdminAddMenuItem)
		admin.PUT("/restaurants/:id/menu/:itemId", handlers.AdminUpdateMenuItem)
		admin.DELETE("/restaurants/:id/menu/:itemId", handlers.AdminDeleteMenuItem)

		admin.GET("/payments/unreconciled", handlers.AdminUnreconciledPayments)
	}
	return nil
}
