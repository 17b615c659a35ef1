package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-rigmotion/pkg/hub"
	"github.com/teslashibe/go-rigmotion/pkg/scene"
)

type fakeSource struct {
	mu      sync.Mutex
	snap    scene.Snapshot
	pointer *mgl64.Vec3
	hover   string
	cleared bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{snap: scene.Snapshot{
		Tick: 12,
		Time: 0.2,
		Rigs: []scene.RigState{
			{ID: "arm-1", Kind: "arm", Program: "pick_place", State: "grasp", Cycles: 3},
			{ID: "arm-2", Kind: "arm", Program: "path_planning"},
			{ID: "leg-1", Kind: "leg", Side: "left"},
		},
	}}
}

func (f *fakeSource) Snapshot() scene.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) Lookup(id string) (scene.RigState, error) {
	for _, r := range f.snap.Rigs {
		if r.ID == id {
			return r, nil
		}
	}
	return scene.RigState{}, fmt.Errorf("%w: %s", scene.ErrUnknownRig, id)
}

func (f *fakeSource) SetPointer(p mgl64.Vec3) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointer = &p
	f.hover = "arm-1"
	return f.hover
}

func (f *fakeSource) SetHover(id string) error {
	if _, err := f.Lookup(id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hover = id
	return nil
}

func (f *fakeSource) ClearPointer() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointer, f.hover, f.cleared = nil, "", true
}

func (f *fakeSource) pointerAt() *mgl64.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pointer
}

func (f *fakeSource) Stats() scene.Stats {
	return scene.Stats{Ticks: 12, Arms: 2, Legs: 1, Cycles: 3}
}

func do(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestStatus(t *testing.T) {
	s := NewServer(Config{Addr: ":0"}, newFakeSource())

	code, body := do(t, s, "GET", "/api/status", "")
	if code != 200 {
		t.Fatalf("Status = %d, want 200", code)
	}
	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Tick != 12 || st.Arms != 2 || st.Cycles != 3 {
		t.Errorf("status: got %+v", st)
	}
}

func TestListRigs(t *testing.T) {
	s := NewServer(Config{Addr: ":0"}, newFakeSource())

	tests := []struct {
		path string
		want int
	}{
		{"/api/rigs", 3},
		{"/api/rigs?kind=arm", 2},
		{"/api/rigs?kind=leg", 1},
		{"/api/rigs?kind=tentacle", 0},
	}
	for _, tt := range tests {
		code, body := do(t, s, "GET", tt.path, "")
		if code != 200 {
			t.Errorf("%s: status %d", tt.path, code)
			continue
		}
		var resp struct {
			Rigs []RigSummary `json:"rigs"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("%s: decode: %v", tt.path, err)
		}
		if len(resp.Rigs) != tt.want {
			t.Errorf("%s: got %d rigs, want %d", tt.path, len(resp.Rigs), tt.want)
		}
	}
}

func TestGetRig(t *testing.T) {
	s := NewServer(Config{Addr: ":0"}, newFakeSource())

	code, body := do(t, s, "GET", "/api/rigs/arm-1", "")
	if code != 200 {
		t.Fatalf("Status = %d, want 200", code)
	}
	var r scene.RigState
	if err := json.Unmarshal(body, &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.State != "grasp" || r.Cycles != 3 {
		t.Errorf("rig: got state %q cycles %d", r.State, r.Cycles)
	}

	code, body = do(t, s, "GET", "/api/rigs/missing", "")
	if code != 404 {
		t.Errorf("unknown rig: status %d, want 404", code)
	}
	if !strings.Contains(string(body), "unknown rig") {
		t.Errorf("unknown rig: body %s", body)
	}
}

func TestSchema(t *testing.T) {
	s := NewServer(Config{Addr: ":0"}, newFakeSource())

	code, body := do(t, s, "GET", "/api/schema", "")
	if code != 200 {
		t.Fatalf("Status = %d, want 200", code)
	}
	var schema map[string]any
	if err := json.Unmarshal(body, &schema); err != nil {
		t.Fatalf("decode: %v", err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %s", body)
	}
	for _, key := range []string{"tick", "time", "rigs"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema missing %q", key)
		}
	}
}

func TestPointer(t *testing.T) {
	src := newFakeSource()
	s := NewServer(Config{Addr: ":0"}, src)

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantHover string
	}{
		{"position", `{"position":[1,0,2]}`, 200, "arm-1"},
		{"hover", `{"hover":"leg-1"}`, 200, "leg-1"},
		{"unknown hover", `{"hover":"nope"}`, 404, ""},
		{"clear", `{"clear":true}`, 200, ""},
		{"empty", `{}`, 400, ""},
		{"malformed", `{`, 400, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, s, "POST", "/api/pointer", tt.body)
			if code != tt.wantCode {
				t.Fatalf("Status = %d, want %d (%s)", code, tt.wantCode, body)
			}
			if code != 200 {
				return
			}
			var resp PointerResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Hover != tt.wantHover {
				t.Errorf("Hover: got %q, want %q", resp.Hover, tt.wantHover)
			}
		})
	}

	if !src.cleared {
		t.Error("clear request did not reach the source")
	}
}

func TestFramesRequiresUpgrade(t *testing.T) {
	s := NewServer(Config{Addr: ":0"}, newFakeSource())

	code, _ := do(t, s, "GET", "/ws/frames", "")
	if code != 426 {
		t.Errorf("Status = %d, want 426", code)
	}
}

func TestDispatch(t *testing.T) {
	src := newFakeSource()
	s := NewServer(Config{Addr: ":0"}, src)

	in, err := hub.ParseInbound([]byte(`{"type":"pointer","payload":{"position":[3,0,4]}}`))
	if err != nil {
		t.Fatalf("ParseInbound: %v", err)
	}
	if err := s.dispatch(in); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if p := src.pointerAt(); p == nil || *p != (mgl64.Vec3{3, 0, 4}) {
		t.Errorf("pointer: got %v", p)
	}

	if err := s.dispatch(hub.Inbound{Type: "teleport"}); err == nil {
		t.Error("dispatch: expected error for unknown type")
	}
	if err := s.dispatch(hub.Inbound{Type: "pointer", Payload: []byte("[")}); err == nil {
		t.Error("dispatch: expected error for bad payload")
	}
}

func TestFramesWebSocket(t *testing.T) {
	src := newFakeSource()
	s := NewServer(Config{Addr: ":18090"}, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var ws *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		var err error
		ws, _, err = websocket.DefaultDialer.Dial("ws://localhost:18090/ws/frames", nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Dial: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	// the current snapshot arrives first
	var first scene.Snapshot
	if err := ws.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if first.Tick != 12 || len(first.Rigs) != 3 {
		t.Errorf("first frame: tick %d with %d rigs", first.Tick, len(first.Rigs))
	}

	// then whatever is broadcast once the client is registered
	for s.Frames().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Frames().BroadcastJSON(scene.Snapshot{Tick: 13}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	var next scene.Snapshot
	if err := ws.ReadJSON(&next); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if next.Tick != 13 {
		t.Errorf("broadcast frame: got tick %d, want 13", next.Tick)
	}

	// pointer messages flow back to the source
	msg := `{"type":"pointer","payload":{"position":[1,0,1]}}`
	if err := ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	for src.pointerAt() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p := src.pointerAt(); p == nil || *p != (mgl64.Vec3{1, 0, 1}) {
		t.Errorf("pointer: got %v, want [1 0 1]", p)
	}
}
