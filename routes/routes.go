package routes

import (
	"time"

	"refripartes-backend/cache"
	"refripartes-backend/events"
	"refripartes-backend/firebase"
	"refripartes-backend/handlers"
	"refripartes-backend/middleware"
	"refripartes-backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the backing services the HTTP surface is built on.
// GuestCarts may be nil, in which case the guest cart endpoints are not mounted
// and logins skip the guest cart merge.
type Dependencies struct {
	DB         *gorm.DB
	Storage    firebase.StorageClient
	GuestCarts cache.GuestCartStore
	Publisher  events.Publisher
}

// SetupRoutes mounts every endpoint on r. The returned limiter guards the auth routes
// and should be stopped on shutdown.
func SetupRoutes(r *gin.Engine, deps Dependencies) *middleware.RateLimiter {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	carts := services.NewCartStore(deps.DB)
	checkout := services.NewCheckoutService(deps.DB, publisher)

	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: deps.DB, Carts: carts, GuestCarts: deps.GuestCarts}
	productHandler := &handlers.ProductHandler{DB: deps.DB, Storage: deps.Storage}
	categoryHandler := &handlers.CategoryHandler{DB: deps.DB}
	cartHandler := &handlers.CartHandler{Carts: carts}
	orderHandler := &handlers.OrderHandler{DB: deps.DB, Checkout: checkout}
	dashboardHandler := &handlers.DashboardHandler{Dashboard: services.NewDashboardService(deps.DB)}
	reviewHandler := &handlers.ReviewHandler{DB: deps.DB}
	wishlistHandler := &handlers.WishlistHandler{DB: deps.DB}
	addressHandler := &handlers.AddressHandler{DB: deps.DB}

	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Public routes
	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		auth.Use(authLimiter.Middleware())
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		// Catalog
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)
		api.GET("/products/:id/variants", productHandler.GetVariants)
		api.GET("/products/:id/reviews", reviewHandler.GetProductReviews)
		api.GET("/categories", categoryHandler.GetCategories)
		api.GET("/categories/:id", categoryHandler.GetCategory)
	}

	// Guest cart, keyed by the X-Guest-ID header
	if deps.GuestCarts != nil {
		guestCartHandler := &handlers.GuestCartHandler{DB: deps.DB, GuestCarts: deps.GuestCarts}
		guest := api.Group("/guest-cart")
		guest.Use(middleware.GuestMiddleware())
		{
			guest.GET("", guestCartHandler.GetCart)
			guest.POST("", guestCartHandler.AddItem)
			guest.PUT("", guestCartHandler.UpdateItem)
			guest.DELETE("/items/:product_id", guestCartHandler.RemoveItem)
			guest.DELETE("", guestCartHandler.Clear)
		}
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		// Profile
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)
		protected.PUT("/auth/password", authHandler.ChangePassword)

		// Cart
		protected.GET("/cart", cartHandler.GetCart)
		protected.POST("/cart", cartHandler.AddToCart)
		protected.PUT("/cart", cartHandler.UpdateCartItem)
		protected.DELETE("/cart/items/:product_id", cartHandler.RemoveFromCart)
		protected.DELETE("/cart", cartHandler.ClearCart)
		protected.POST("/cart/merge", cartHandler.MergeCart)

		// Orders
		protected.POST("/orders", orderHandler.CreateOrder)
		protected.GET("/orders", orderHandler.GetOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)
		protected.POST("/orders/:id/cancel", orderHandler.CancelOrder)

		// Reviews
		protected.PUT("/products/:id/reviews", reviewHandler.UpsertReview)
		protected.DELETE("/reviews/:review_id", reviewHandler.DeleteReview)

		// Wishlist
		protected.GET("/wishlist", wishlistHandler.GetWishlist)
		protected.POST("/wishlist/:product_id", wishlistHandler.AddToWishlist)
		protected.DELETE("/wishlist/:product_id", wishlistHandler.RemoveFromWishlist)

		// Addresses
		protected.GET("/addresses", addressHandler.GetAddresses)
		protected.POST("/addresses", addressHandler.CreateAddress)
		protected.PUT("/addresses/:id", addressHandler.UpdateAddress)
		protected.DELETE("/addresses/:id", addressHandler.DeleteAddress)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/dashboard", dashboardHandler.GetStats)

		// Product management
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)
		admin.POST("/products/:id/variants", productHandler.CreateVariant)
		admin.PUT("/products/:id/variants/:variant_id", productHandler.UpdateVariant)
		admin.DELETE("/products/:id/variants/:variant_id", productHandler.DeleteVariant)
		admin.POST("/products/:id/images", productHandler.AddProductImages)
		admin.POST("/products/:id/images/import", productHandler.ImportProductImage)
		admin.PUT("/products/:id/images/:image_id/primary", productHandler.SetPrimaryImage)
		admin.DELETE("/products/:id/images/:image_id", productHandler.DeleteProductImage)

		// Category management
		admin.POST("/categories", categoryHandler.CreateCategory)
		admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
		admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		// Order management
		admin.GET("/orders", orderHandler.GetOrders)
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
		admin.GET("/orders/:id/transitions", orderHandler.GetOrderTransitions)

		// User management
		admin.GET("/users", authHandler.ListUsers)
		admin.GET("/users/:id", authHandler.GetUser)
		admin.PUT("/users/:id", authHandler.UpdateUser)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return authLimiter
}
