package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Hub            *Hub
	Sessions       SessionManager
	Verifier       *TokenVerifier
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter serves the health check, the table listing and the websocket
// endpoint.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Hub == nil || cfg.Sessions == nil || cfg.Verifier == nil {
		return nil, errors.New("hub, sessions and verifier are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now(), "connections": cfg.Hub.Count()})
	})

	r.GET("/api/tables", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tables": cfg.Sessions.Tables()})
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	r.GET("/ws", func(c *gin.Context) {
		playerID, err := cfg.Verifier.Verify(tokenFromRequest(c.Request))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		client := newClient(conn, playerID, cfg.Hub, cfg.Sessions, logger)
		cfg.Hub.register(client)
		logger.Info("player connected", zap.String("player_id", playerID), zap.String("connection_id", client.id))

		go client.writePump()
		go client.readPump()
	})

	return r, nil
}

func allowsAll(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if allowsAll(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func originChecker(origins []string) func(*http.Request) bool {
	if allowsAll(origins) {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
