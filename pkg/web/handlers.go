package web

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/invopop/jsonschema"

	"github.com/teslashibe/go-rigmotion/internal/log"
	"github.com/teslashibe/go-rigmotion/pkg/hub"
	"github.com/teslashibe/go-rigmotion/pkg/scene"
)

// Status is the body of GET /api/status.
type Status struct {
	scene.Stats
	Tick    uint64  `json:"tick"`
	Time    float64 `json:"time"`
	Clients int     `json:"clients"`
	Dropped uint64  `json:"dropped"`
}

// RigSummary is one entry of GET /api/rigs.
type RigSummary struct {
	ID       string     `json:"id"`
	Kind     string     `json:"kind"`
	Program  string     `json:"program,omitempty"`
	Side     string     `json:"side,omitempty"`
	Position mgl64.Vec3 `json:"position"`
	State    string     `json:"state,omitempty"`
	Cycles   int        `json:"cycles"`
}

// PointerRequest is the body of POST /api/pointer and the payload of a
// "pointer" websocket message. Clear wins over Hover, Hover over Position.
type PointerRequest struct {
	Position *mgl64.Vec3 `json:"position,omitempty"`
	Hover    string      `json:"hover,omitempty"`
	Clear    bool        `json:"clear,omitempty"`
}

// PointerResponse reports what the pointer now hovers.
type PointerResponse struct {
	Hover string `json:"hover"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	snap := s.source.Snapshot()
	return c.JSON(Status{
		Stats:   s.source.Stats(),
		Tick:    snap.Tick,
		Time:    snap.Time,
		Clients: s.frames.ClientCount(),
		Dropped: s.frames.Dropped(),
	})
}

func (s *Server) handleListRigs(c *fiber.Ctx) error {
	snap := s.source.Snapshot()
	kind := c.Query("kind")

	out := make([]RigSummary, 0, len(snap.Rigs))
	for _, r := range snap.Rigs {
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, RigSummary{
			ID:       r.ID,
			Kind:     r.Kind,
			Program:  r.Program,
			Side:     r.Side,
			Position: r.Position,
			State:    r.State,
			Cycles:   r.Cycles,
		})
	}
	return c.JSON(fiber.Map{"tick": snap.Tick, "rigs": out})
}

func (s *Server) handleGetRig(c *fiber.Ctx) error {
	r, err := s.source.Lookup(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (s *Server) handleSchema(c *fiber.Ctx) error {
	s.schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{DoNotReference: true}
		s.schema = reflector.Reflect(&scene.Snapshot{})
		s.schema.Title = "Scene snapshot"
		s.schema.Description = "One frame of /ws/frames"
	})
	return c.JSON(s.schema)
}

func (s *Server) handlePointer(c *fiber.Ctx) error {
	var req PointerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid pointer body")
	}
	hover, err := s.applyPointer(req)
	if err != nil {
		return err
	}
	return c.JSON(PointerResponse{Hover: hover})
}

func (s *Server) applyPointer(req PointerRequest) (string, error) {
	switch {
	case req.Clear:
		s.source.ClearPointer()
		return "", nil
	case req.Hover != "":
		if err := s.source.SetHover(req.Hover); err != nil {
			return "", err
		}
		return req.Hover, nil
	case req.Position != nil:
		return s.source.SetPointer(*req.Position), nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, "pointer needs position, hover or clear")
	}
}

// handleFramesWS sends the current snapshot, then streams every published
// one until the client goes away.
func (s *Server) handleFramesWS(conn *websocket.Conn) {
	if err := conn.WriteJSON(s.source.Snapshot()); err != nil {
		return
	}
	client := hub.NewClient(s.frames, conn)
	client.Run()
}

// handleInbound accepts pointer messages from frame clients.
func (s *Server) handleInbound(_ *hub.Client, data []byte) {
	in, err := hub.ParseInbound(data)
	if err != nil {
		log.Debug("ignoring malformed client message", "error", err)
		return
	}
	if err := s.dispatch(in); err != nil {
		log.Debug("client message rejected", "type", in.Type, "error", err)
	}
}

func (s *Server) dispatch(in hub.Inbound) error {
	switch in.Type {
	case "pointer":
		var req PointerRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			return fmt.Errorf("pointer payload: %w", err)
		}
		_, err := s.applyPointer(req)
		return err
	default:
		return fmt.Errorf("unknown message type %q", in.Type)
	}
}
