// Package server provides the invmon Gin-based REST API.
// Everything lives under /api/v1 except login, health and /metrics:
//   - JWT-protected routes check the "role" claim with Authorize.
//   - The telemetry report route takes the agent Bearer token instead.
package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vesaa/invmon/internal/config"
	"github.com/vesaa/invmon/internal/metrics"
	"github.com/vesaa/invmon/internal/models"
	"github.com/vesaa/invmon/internal/rating"
	"github.com/vesaa/invmon/internal/store"
	"github.com/vesaa/invmon/internal/telemetry"
	"gorm.io/gorm"
)

// Server holds the handlers' dependencies.
type Server struct {
	cfg       *config.Config
	db        *gorm.DB
	auth      *Auth
	telemetry *telemetry.Service
	devices   *store.TelemetryStore
	ratings   *rating.Aggregator
	documents *store.DocumentStore
	inventory *store.InventoryStore
}

// New wires a server over db. svc samples the local host for
// POST /api/v1/cpu-performance and may share db with the timer loop.
func New(cfg *config.Config, db *gorm.DB, svc *telemetry.Service) (*Server, error) {
	auth, err := NewAuth(cfg.JWTSecret, cfg.AdminUser, cfg.AdminPass, cfg.AgentToken)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		db:        db,
		auth:      auth,
		telemetry: svc,
		devices:   store.NewTelemetryStore(db),
		ratings:   rating.New(store.NewRatingStore(db)),
		documents: store.NewDocumentStore(db),
		inventory: store.NewInventoryStore(db),
	}, nil
}

// Auth returns the token issuer, e.g. for tests and tooling.
func (s *Server) Auth() *Auth {
	return s.auth
}

// Engine builds the gin engine with every route registered.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger(), requestID(), observe(), cors(s.cfg.AllowedOrigins))
	r.MaxMultipartMemory = 50 << 20

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.POST("/login", s.handleLogin)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	v1 := api.Group("/v1")
	s.registerTelemetryRoutes(v1.Group("/cpu-performance"))
	s.registerPurchasingRoutes(v1)
	s.registerInventoryRoutes(v1)
	s.registerDocumentRoutes(v1.Group("/documents"))
	v1.POST("/upload/excel", s.handleExcelUpload)
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed["*"] || allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// paramID parses a numeric path parameter, answering 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// respondError maps store and model errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var invalid *models.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
	default:
		log.Printf("[api] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
