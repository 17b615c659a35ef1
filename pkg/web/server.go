// Package web serves a running scene over HTTP and websocket: rig state,
// the snapshot schema, pointer input and a live frame stream.
package web

import (
	"context"
	"errors"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/invopop/jsonschema"

	"github.com/teslashibe/go-rigmotion/internal/log"
	"github.com/teslashibe/go-rigmotion/pkg/hub"
	"github.com/teslashibe/go-rigmotion/pkg/scene"
)

// Source is the scene as the server sees it. *scene.Scene satisfies it.
type Source interface {
	Snapshot() scene.Snapshot
	Lookup(id string) (scene.RigState, error)
	SetPointer(p mgl64.Vec3) string
	SetHover(id string) error
	ClearPointer()
	Stats() scene.Stats
}

// Config configures the server.
type Config struct {
	Addr string

	// Debug logs every request.
	Debug bool
}

// Server is the inspection API.
type Server struct {
	app    *fiber.App
	addr   string
	source Source
	frames *hub.Hub

	schemaOnce sync.Once
	schema     *jsonschema.Schema
}

// NewServer builds the routes. Snapshots reach websocket clients through
// Frames, which the caller installs as the scene's sink.
func NewServer(cfg Config, source Source) *Server {
	s := &Server{
		addr:   cfg.Addr,
		source: source,
		frames: hub.New("frames"),
	}
	s.frames.OnMessage = s.handleInbound

	app := fiber.New(fiber.Config{
		AppName:               "rigmotion",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/rigs", s.handleListRigs)
	api.Get("/rigs/:id", s.handleGetRig)
	api.Get("/schema", s.handleSchema)
	api.Post("/pointer", s.handlePointer)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Frames is the hub that streams snapshots to websocket clients.
func (s *Server) Frames() *hub.Hub {
	return s.frames
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.frames.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		log.Info("web server listening", "addr", s.addr)
		errc <- s.app.Listen(s.addr)
	}()

	select {
	case <-ctx.Done():
		return s.app.Shutdown()
	case err := <-errc:
		return err
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, scene.ErrUnknownRig):
		code = fiber.StatusNotFound
	}
	if code >= fiber.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
