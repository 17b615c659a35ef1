package scene

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-rigmotion/internal/config"
	"github.com/teslashibe/go-rigmotion/pkg/task"
)

const tick = time.Second / 60

func smallScene() config.Scene {
	sc := config.Default()
	sc.Arms.Rows = 2
	sc.Arms.Cols = 2
	return sc
}

func TestNew_Layout(t *testing.T) {
	s := New(smallScene())
	snap := s.Snapshot()

	if got := len(snap.Rigs); got != 6 {
		t.Fatalf("rigs: got %d, want 4 arms + 2 legs", got)
	}

	programs := task.Programs()
	for i := 0; i < 4; i++ {
		r := snap.Rigs[i]
		if r.Kind != "arm" {
			t.Errorf("rig %d: kind got %q, want arm", i, r.Kind)
		}
		if want := programs[i].Name; r.Program != want {
			t.Errorf("rig %d: program got %q, want %q", i, r.Program, want)
		}
		if (r.Prop != nil) == programs[i].Scripted() {
			t.Errorf("rig %d: prop %v for program %q", i, r.Prop, r.Program)
		}
	}
	if snap.Rigs[4].Side != "left" || snap.Rigs[5].Side != "right" {
		t.Errorf("legs: got sides %q %q", snap.Rigs[4].Side, snap.Rigs[5].Side)
	}

	st := s.Stats()
	if st.Arms != 4 || st.Legs != 2 {
		t.Errorf("Stats: got %d arms %d legs", st.Arms, st.Legs)
	}
}

func TestNew_GridCentred(t *testing.T) {
	snap := New(smallScene()).Snapshot()

	var sum mgl64.Vec3
	for _, r := range snap.Rigs[:4] {
		sum = sum.Add(r.Position)
	}
	if sum.Len() > 1e-9 {
		t.Errorf("grid centre: got %v, want origin", sum.Mul(0.25))
	}
}

func TestNew_DeterministicIDs(t *testing.T) {
	a := New(smallScene()).Snapshot()
	b := New(smallScene()).Snapshot()

	seen := make(map[string]bool)
	for i := range a.Rigs {
		if a.Rigs[i].ID != b.Rigs[i].ID {
			t.Errorf("rig %d: IDs differ across runs", i)
		}
		if seen[a.Rigs[i].ID] {
			t.Errorf("rig %d: duplicate ID %s", i, a.Rigs[i].ID)
		}
		seen[a.Rigs[i].ID] = true
	}

	sc := smallScene()
	sc.Seed = 2
	if c := New(sc).Snapshot(); c.Rigs[0].ID == a.Rigs[0].ID {
		t.Error("IDs should depend on the seed")
	}
}

func TestTick_Deterministic(t *testing.T) {
	a := New(smallScene())
	b := New(smallScene())

	var sa, sb Snapshot
	for now := time.Duration(0); now <= 3*time.Second; now += tick {
		sa = a.Tick(now)
		sb = b.Tick(now)
	}
	for i := range sa.Rigs {
		if sa.Rigs[i].Angles != sb.Rigs[i].Angles {
			t.Errorf("rig %d: angles diverged: %+v vs %+v", i, sa.Rigs[i].Angles, sb.Rigs[i].Angles)
		}
	}
}

func TestTick_Snapshot(t *testing.T) {
	s := New(smallScene())

	snap := s.Tick(0)
	snap = s.Tick(tick)
	if snap.Tick != 2 {
		t.Errorf("Tick: got %d, want 2", snap.Tick)
	}
	if got := s.Snapshot(); got.Tick != snap.Tick {
		t.Errorf("Snapshot: got tick %d, want %d", got.Tick, snap.Tick)
	}
	for _, r := range snap.Rigs {
		if !r.Angles.IsFinite() {
			t.Errorf("rig %s: non-finite angles %+v", r.ID, r.Angles)
		}
		if len(r.Chain()) < 4 {
			t.Errorf("rig %s: chain has %d joints", r.ID, len(r.Chain()))
		}
	}
	if snap.Rigs[0].State != task.MoveToObject.String() {
		t.Errorf("State: got %q, want %q", snap.Rigs[0].State, task.MoveToObject)
	}
}

func TestTick_PickPlaceMakesProgress(t *testing.T) {
	sc := smallScene()
	sc.Humanoid.Enabled = false
	s := New(sc)

	var snap Snapshot
	for now := time.Duration(0); now <= 40*time.Second; now += tick {
		snap = s.Tick(now)
	}

	st := s.Stats()
	if st.Cycles+st.Recoveries == 0 {
		t.Fatal("no pick-and-place arm finished a cycle or recovered in 40s")
	}
	total := 0
	for _, r := range snap.Rigs {
		total += r.Cycles
	}
	if total != st.Cycles {
		t.Errorf("cycles: snapshot sums to %d, Stats reports %d", total, st.Cycles)
	}
	if len(st.CycleTimes) != st.Cycles {
		t.Errorf("CycleTimes: got %d entries, want %d", len(st.CycleTimes), st.Cycles)
	}
}

func TestLookup(t *testing.T) {
	s := New(smallScene())
	want := s.Snapshot().Rigs[1]

	got, err := s.Lookup(want.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ID != want.ID || got.Program != want.Program {
		t.Errorf("Lookup: got %s/%s, want %s/%s", got.ID, got.Program, want.ID, want.Program)
	}

	if _, err := s.Lookup("nope"); !errors.Is(err, ErrUnknownRig) {
		t.Errorf("Lookup unknown: got %v, want ErrUnknownRig", err)
	}
}

func TestSetPointer(t *testing.T) {
	s := New(smallScene())
	target := s.Snapshot().Rigs[2]

	p := target.Position.Add(mgl64.Vec3{0.5, 0, -0.5})
	if got := s.SetPointer(p); got != target.ID {
		t.Errorf("SetPointer: hovered %q, want %q", got, target.ID)
	}
	snap := s.Tick(0)
	if snap.Hover != target.ID || snap.Pointer == nil || *snap.Pointer != p {
		t.Errorf("snapshot: hover %q pointer %v", snap.Hover, snap.Pointer)
	}

	// between arms on a 4m grid nothing is within reach
	if got := s.SetPointer(mgl64.Vec3{0, 0, 0}); got != "" {
		t.Errorf("SetPointer centre: hovered %q, want none", got)
	}

	leg := s.Snapshot().Rigs[4]
	if err := s.SetHover(leg.ID); err != nil {
		t.Errorf("SetHover: %v", err)
	}
	if err := s.SetHover("nope"); !errors.Is(err, ErrUnknownRig) {
		t.Errorf("SetHover unknown: got %v, want ErrUnknownRig", err)
	}
	if snap = s.Tick(tick); snap.Hover != leg.ID {
		t.Errorf("hover: got %q, want %q", snap.Hover, leg.ID)
	}

	s.ClearPointer()
	snap = s.Tick(2 * tick)
	if snap.Pointer != nil || snap.Hover != "" {
		t.Errorf("after ClearPointer: hover %q pointer %v", snap.Hover, snap.Pointer)
	}
}

type fakeSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (f *fakeSink) BroadcastJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, v.(Snapshot))
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

func TestRun_PublishesUntilCancelled(t *testing.T) {
	sc := smallScene()
	sc.Hz = 200
	sc.PublishHz = 100
	s := New(sc)
	sink := &fakeSink{}
	s.SetSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if sink.count() < 3 {
		t.Fatalf("published %d snapshots, want at least 3", sink.count())
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, snap := range sink.snaps {
		if snap.Tick%2 != 0 {
			t.Errorf("published tick %d, want every second tick", snap.Tick)
		}
	}
}

func TestStop(t *testing.T) {
	s := New(smallScene())
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	s.Stop()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
