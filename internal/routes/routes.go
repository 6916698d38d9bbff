package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hectorcoro13/El-parche-plotter/internal/config"
	"github.com/hectorcoro13/El-parche-plotter/internal/handlers"
	"github.com/hectorcoro13/El-parche-plotter/internal/middleware"
	"github.com/hectorcoro13/El-parche-plotter/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	mercadoPagoService := services.NewMercadoPagoService(cfg.MercadoPagoBaseURL, cfg.MercadoPagoToken)
	auth0Service := services.NewAuth0Service(cfg.Auth0Domain, cfg.Auth0ClientID, cfg.Auth0ClientSecret, cfg.Auth0CallbackURL)

	authHandler := handlers.NewAuthHandler(db, cfg)
	oauthHandler := handlers.NewOAuthHandler(db, cfg, auth0Service)
	userHandler := handlers.NewUserHandler(db)
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	orderHandler := handlers.NewOrderHandler(db, telegramService)
	mpHandler := handlers.NewMercadoPagoHandler(db, mercadoPagoService)
	adminHandler := handlers.NewAdminHandler(db)
	fileHandler := handlers.NewFileHandler(db, cfg)

	app.Static("/uploads", cfg.UploadDir)

	// OAuth flow runs at the root so the provider callback URL stays short.
	app.Get("/login", oauthHandler.Login)
	app.Get("/callback", oauthHandler.Callback)
	app.Get("/auth0/profile", oauthHandler.Profile)

	// Credential auth
	auth := app.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/signin", authHandler.Signin)

	// Public catalog
	app.Get("/categories", catalogHandler.ListCategories)
	app.Get("/products", productHandler.ListProducts)
	app.Get("/products/destacados", productHandler.ListFeatured)
	app.Get("/products/:id", productHandler.GetProduct)

	// Payment webhook (provider-called, unauthenticated)
	app.Post("/mercadopago/webhook", mpHandler.Webhook)

	// Authenticated surface
	protected := app.Group("", middleware.AuthMiddleware(db, cfg))

	protected.Get("/users/:id", userHandler.GetUser)
	protected.Put("/users/:id", userHandler.UpdateUser)

	cart := protected.Group("/cart")
	cart.Get("/", cartHandler.GetCart)
	cart.Post("/add", cartHandler.AddToCart)
	cart.Post("/decrease", cartHandler.DecreaseItem)
	cart.Delete("/clear", cartHandler.ClearCart)
	cart.Post("/sync", cartHandler.SyncCart)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Post("/mercadopago/create-preference", mpHandler.CreatePreference)

	protected.Post("/file/uploadProfile/:userId", fileHandler.UploadProfileImage)

	// Admin back-office
	admin := protected.Group("", middleware.AdminRequired(db))
	admin.Get("/users", userHandler.ListUsers)
	admin.Put("/users/block/:id", userHandler.BlockUser)
	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)
	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)
	admin.Get("/dashboard/stats", adminHandler.DashboardStats)
	admin.Get("/dashboard/orders", adminHandler.ListAllOrders)
	admin.Get("/dashboard/recent-orders", adminHandler.RecentOrders)
	admin.Post("/file/uploadImage/:productId", fileHandler.UploadProductImage)
}
