// rigwatch connects to a running rigserve, lists its rigs and prints a line
// per streamed frame.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-rigmotion/internal/httpc"
	"github.com/teslashibe/go-rigmotion/pkg/scene"
	"github.com/teslashibe/go-rigmotion/pkg/task"
	"github.com/teslashibe/go-rigmotion/pkg/web"
)

var (
	addr   = flag.String("addr", "http://localhost:8080", "rigserve base URL")
	frames = flag.Int("frames", 0, "stop after this many frames (0 runs until Ctrl+C)")
	kind   = flag.String("kind", "", "only list rigs of this kind (arm or leg)")
	hover  = flag.String("hover", "", "hover this rig ID before watching")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "rigwatch: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	base := strings.TrimRight(*addr, "/")

	var status web.Status
	if err := httpc.GetJSON(ctx, base+"/api/status", &status); err != nil {
		return err
	}
	fmt.Printf("📡 %s: %d arms, %d legs, tick %d, %d cycles, %d watching\n",
		base, status.Arms, status.Legs, status.Tick, status.Cycles, status.Clients)

	listURL := base + "/api/rigs"
	if *kind != "" {
		listURL += "?kind=" + url.QueryEscape(*kind)
	}
	var list struct {
		Rigs []web.RigSummary `json:"rigs"`
	}
	if err := httpc.GetJSON(ctx, listURL, &list); err != nil {
		return err
	}
	for _, r := range list.Rigs {
		label := r.Program
		if label == "" {
			label = r.Side
		}
		fmt.Printf("  %s  %-4s %-20s (%.1f, %.1f)\n", r.ID, r.Kind, label, r.Position.X(), r.Position.Z())
	}

	if *hover != "" {
		var resp web.PointerResponse
		if err := httpc.PostJSON(ctx, base+"/api/pointer", web.PointerRequest{Hover: *hover}, &resp); err != nil {
			return err
		}
		fmt.Printf("hovering %s\n", resp.Hover)
	}

	return watch(ctx, base)
}

func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", base, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/frames"
	return u.String(), nil
}

func watch(ctx context.Context, base string) error {
	target, err := wsURL(base)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for n := 0; *frames == 0 || n < *frames; n++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		var snap scene.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		fmt.Println(summarize(snap))
	}
	return nil
}

// summarize reports how many pick-and-place arms hold something and how many
// cycles have finished across the scene.
func summarize(snap scene.Snapshot) string {
	holding, cycles, grounded, legs := 0, 0, 0, 0
	for _, r := range snap.Rigs {
		cycles += r.Cycles
		if s, ok := task.ParseState(r.State); ok && s.Grips() {
			holding++
		}
		if r.Kind == "leg" {
			legs++
			if r.Grounded {
				grounded++
			}
		}
	}
	line := fmt.Sprintf("tick %6d  t=%7.2fs  holding %2d  cycles %4d  feet down %d/%d",
		snap.Tick, snap.Time, holding, cycles, grounded, legs)
	if snap.Hover != "" {
		line += "  hover " + snap.Hover[:min(8, len(snap.Hover))]
	}
	return line
}
