package delivery

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/EAniwa/legacylancers-sub002/internal/auth"
	"github.com/EAniwa/legacylancers-sub002/internal/config"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

type Server struct {
	config   *config.Config
	verifier auth.Verifier
	handlers *Handlers
	manager  *Manager
	presence repository.Presence
}

func NewServer(config *config.Config, verifier auth.Verifier, handlers *Handlers, manager *Manager, presence repository.Presence) *Server {
	return &Server{
		config:   config,
		verifier: verifier,
		handlers: handlers,
		manager:  manager,
		presence: presence,
	}
}

func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Messaging WebSocket & REST Server",
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} ${latency}\n",
	}))

	corsConfig := cors.Config{
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With",
		AllowCredentials: s.config.AllowCredentials,
		MaxAge:           86400,
	}
	if s.config.IsProduction() {
		corsConfig.AllowOrigins = s.config.GetCORSOrigins()
		log.Printf("CORS configured for production with origins: %s", corsConfig.AllowOrigins)
	} else {
		corsConfig.AllowOrigins = "*"
		corsConfig.AllowCredentials = false // Never allow credentials with wildcard origin
		log.Printf("CORS configured for development with wildcard origin")
	}
	app.Use(cors.New(corsConfig))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"message":     "Messaging server is running",
			"port":        s.config.Port,
			"environment": s.config.Environment,
		})
	})

	// REST API routes
	api := app.Group("/api")
	api.Get("/conversations/:conversation_id/online", s.handleConversationOnline)

	// WebSocket upgrade: the connection authenticates exactly once, here.
	// A connection that fails never proceeds to the event loop.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "missing credentials",
			})
		}
		claims, err := s.verifier.VerifyToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "authentication failed",
			})
		}
		c.Locals("user_id", claims.UserID)
		return c.Next()
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return
		}
		s.handlers.HandleConnection(c, userID)
	}))

	log.Printf("Messaging server (WebSocket + REST) starting on port %s", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// bearerToken pulls the credential from the Authorization header or, for
// browser WebSocket clients that cannot set headers, the token query param.
func bearerToken(c *fiber.Ctx) string {
	if h := c.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer"))
	}
	return c.Query("token")
}
