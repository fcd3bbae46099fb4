// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"

	"mealcraft/internal/cache"
	"mealcraft/internal/config"
	"mealcraft/internal/docstore"
	"mealcraft/internal/feed"
	"mealcraft/internal/friendgraph"
	"mealcraft/internal/meallog"
	"mealcraft/internal/middleware"
	"mealcraft/internal/nutrition"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config   *config.Config
	docs     *docstore.DB
	redis    *redis.Client
	engine   *friendgraph.Engine
	meals    *meallog.Store
	names    *feed.NameCache
	analyzer *nutrition.Client
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	docs, err := docstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("document store init failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	middleware.InitMiddleware(cfg)

	srv := &Server{
		config:   cfg,
		docs:     docs,
		redis:    redisClient,
		engine:   friendgraph.NewEngine(docs),
		meals:    meallog.NewStore(docs),
		names:    feed.NewNameCache(docs, redisClient),
		analyzer: nutrition.NewClient(cfg.AnalyzeURL, cfg.AnalyzeAPIKey, cfg.Timeout()),
	}
	return srv, nil
}

// SetupMiddleware registers the global middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger())
}

// SetupRoutes registers all API routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", s.Health)

	auth := api.Group("/auth")
	auth.Post("/register", s.Register)
	auth.Post("/login", s.Login)

	users := api.Group("/users", middleware.AuthRequired)
	users.Get("/search", s.SearchUserByEmail)

	friends := api.Group("/friends", middleware.AuthRequired)
	friends.Get("/", s.GetFriends)
	friends.Get("/requests", s.GetIncomingRequests)
	friends.Get("/requests/sent", s.GetOutgoingRequests)
	friends.Post("/requests/:userId", s.SendFriendRequest)
	friends.Post("/requests/:userId/accept", s.AcceptFriendRequest)
	friends.Delete("/requests/:userId", s.RejectFriendRequest)
	friends.Delete("/requests/sent/:userId", s.CancelFriendRequest)
	friends.Delete("/:userId", s.RemoveFriend)

	meals := api.Group("/meals", middleware.AuthRequired)
	meals.Get("/", s.ListMealLogs)
	meals.Post("/", s.CreateMealLog)
	meals.Post("/analyze", s.AnalyzeMeal)
	meals.Put("/:id", s.UpdateMealLog)
	meals.Delete("/:id", s.DeleteMealLog)
	meals.Put("/:id/privacy", s.SetMealPrivacy)

	feedGroup := api.Group("/feed", middleware.AuthRequired)
	feedGroup.Get("/", s.GetFeed)
	feedGroup.Post("/:ownerId/:logId/like", s.ToggleLike)

	api.Get("/ws", middleware.WebSocketAuthRequired, s.UpgradeWebSocket, s.StreamUpdates())
}

// Health handles GET /api/health
func (s *Server) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Shutdown releases server resources.
func (s *Server) Shutdown(_ context.Context) error {
	return s.docs.Close()
}
