// Package status is a small read-only HTTP surface over the state cache,
// meant for an operator poking at a running bot.
package status

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/state"
)

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	Name  string            `json:"name"`
	Auths map[string]string `json:"auths"`
}

// Handlers serves read-only snapshots of the cache.
type Handlers struct {
	cache *state.Cache
	log   *zerolog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(cache *state.Cache, logger *zerolog.Logger) *Handlers {
	return &Handlers{cache: cache, log: logger}
}

// Health reports liveness.
// GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Rooms lists every cached room with its current members.
// GET /api/rooms
func (h *Handlers) Rooms(c *gin.Context) {
	names := h.cache.RoomNames()
	rooms := make([]RoomResponse, 0, len(names))
	for _, name := range names {
		rooms = append(rooms, RoomResponse{
			Name:    name,
			Members: h.cache.RoomMembers(name),
		})
	}
	c.JSON(http.StatusOK, rooms)
}

// User returns one user's display name and per-room authorization.
// GET /api/users/:name
func (h *Handlers) User(c *gin.Context) {
	name := c.Param("name")
	display := h.cache.UserName(name)
	if display == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, UserResponse{
		Name:  display,
		Auths: h.cache.UserAuths(name),
	})
}

// NewRouter wires the status routes onto a fresh engine.
func NewRouter(cache *state.Cache, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := NewHandlers(cache, logger)
	r.GET("/healthz", h.Health)
	api := r.Group("/api")
	api.GET("/rooms", h.Rooms)
	api.GET("/users/:name", h.User)
	return r
}

// NewServer builds the HTTP server for the status surface.
func NewServer(addr string, cache *state.Cache, logger *zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cache, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
