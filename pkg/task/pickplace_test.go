package task

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const frame = 16 * time.Millisecond

// trackingArm is a stand-in for the frame driver: the effector eases toward
// each commanded target at a fixed rate.
type trackingArm struct {
	effector mgl64.Vec3
	rate     float64 // per second; <= 0 snaps to the target
}

func (a *trackingArm) follow(cmd Command, dt time.Duration) {
	if a.rate <= 0 {
		a.effector = cmd.Target
		return
	}
	k := math.Min(1, dt.Seconds()*a.rate*cmd.SpeedScale)
	a.effector = a.effector.Add(cmd.Target.Sub(a.effector).Mul(k))
}

func newTestMachine() *PickPlace {
	return NewPickPlace(DefaultConfig(), mgl64.Vec3{}, 0, rand.New(rand.NewPCG(7, 11)))
}

func TestPickPlace_CompletesCycle(t *testing.T) {
	tests := []struct {
		name string
		rate float64
	}{
		{"snapping effector", 0},
		{"easing effector", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestMachine()
			arm := &trackingArm{effector: mgl64.Vec3{0, 1, 1}, rate: tt.rate}
			object := mgl64.Vec3{0.3, 0.15, 1.0}

			var visited []State
			last := State(-1)
			for now := time.Duration(0); now <= 35*time.Second; now += frame {
				cmd := p.Update(arm.effector, object, now)
				if cmd.State != last {
					visited = append(visited, cmd.State)
					last = cmd.State
				}
				if cmd.ResetObject && p.Cycles() == 0 {
					t.Fatalf("stuck-state recovery at %v in %v", now, cmd.State)
				}
				arm.follow(cmd, frame)
				if p.Cycles() >= 1 {
					break
				}
			}

			if p.Cycles() < 1 {
				t.Fatalf("Cycles: got %d after 35s, visited %v", p.Cycles(), visited)
			}
			want := []State{MoveToObject, GraspObject, LiftObject, MoveToPlace, PlaceObject, ReleaseObject, ResetPosition, MoveToObject}
			if len(visited) != len(want) {
				t.Fatalf("visited: got %v, want %v", visited, want)
			}
			for i := range want {
				if visited[i] != want[i] {
					t.Errorf("visited[%d]: got %v, want %v", i, visited[i], want[i])
				}
			}
		})
	}
}

func TestPickPlace_StuckStateResets(t *testing.T) {
	p := newTestMachine()
	unreachable := mgl64.Vec3{0, 5, 50}
	object := mgl64.Vec3{0, 0.15, 1}

	resets := 0
	for now := time.Duration(0); now <= 11*time.Second; now += frame {
		cmd := p.Update(unreachable, object, now)
		if cmd.ResetObject {
			resets++
			if cmd.State != MoveToObject {
				t.Errorf("after reset: state %v, want %v", cmd.State, MoveToObject)
			}
		}
	}

	if resets != 2 {
		t.Errorf("resets: got %d, want 2", resets)
	}
	if p.Cycles() != 0 {
		t.Errorf("Cycles: got %d, want 0", p.Cycles())
	}
}

func TestPickPlace_GraspDwell(t *testing.T) {
	p := newTestMachine()
	object := mgl64.Vec3{0, 0.15, 1}
	near := mgl64.Vec3{0, 0.45, 1}

	p.Update(near, object, 0)
	if p.State() != GraspObject {
		t.Fatalf("State: got %v, want %v", p.State(), GraspObject)
	}

	cmd := p.Update(near, object, 400*time.Millisecond)
	if cmd.State != GraspObject {
		t.Errorf("at 400ms: got %v, want %v", cmd.State, GraspObject)
	}
	if !cmd.Grip || cmd.GripperWidth != DefaultConfig().GripClosed {
		t.Errorf("grasp command: grip=%v width=%v", cmd.Grip, cmd.GripperWidth)
	}

	cmd = p.Update(near, object, 501*time.Millisecond)
	if cmd.State != LiftObject {
		t.Errorf("at 501ms: got %v, want %v", cmd.State, LiftObject)
	}
}

func TestPickPlace_LazyInitFloorsRest(t *testing.T) {
	p := newTestMachine()
	if p.Started() {
		t.Fatal("Started before first Update")
	}

	p.Update(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{1, -0.5, 1}, 0)

	if got := p.Rest().Y(); got != DefaultConfig().MinHeight {
		t.Errorf("Rest.Y: got %v, want %v", got, DefaultConfig().MinHeight)
	}
	if p.State() != MoveToObject {
		t.Errorf("State: got %v, want %v", p.State(), MoveToObject)
	}
}

func TestPickPlace_SlowsNearPlace(t *testing.T) {
	p := newTestMachine()
	p.Update(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 0.15, 1}, 0)
	p.enter(MoveToPlace, 0)
	p.place = mgl64.Vec3{0, 0.2, 1.5}

	tests := []struct {
		effector mgl64.Vec3
		want     float64
	}{
		{mgl64.Vec3{0, 1.2, 0}, 1},
		{mgl64.Vec3{0, 1.2, 1.0}, 0.5},
		{mgl64.Vec3{0.5, 1.2, 1.5}, 0.5},
	}
	for _, tt := range tests {
		cmd := p.Update(tt.effector, mgl64.Vec3{}, 100*time.Millisecond)
		if cmd.State != MoveToPlace {
			t.Fatalf("effector %v: state %v", tt.effector, cmd.State)
		}
		if math.Abs(cmd.SpeedScale-tt.want) > 1e-9 {
			t.Errorf("effector %v: SpeedScale got %v, want %v", tt.effector, cmd.SpeedScale, tt.want)
		}
	}

	// Within the slowdown floor.
	p.place = mgl64.Vec3{0, 0.2, 1.45}
	cmd := p.Update(mgl64.Vec3{0, 1.2, 1.0}, mgl64.Vec3{}, 100*time.Millisecond)
	if math.Abs(cmd.SpeedScale-0.45) > 1e-9 {
		t.Errorf("SpeedScale: got %v, want 0.45", cmd.SpeedScale)
	}
}

func TestPickPlace_PlaceTargets(t *testing.T) {
	cfg := DefaultConfig()
	origin := mgl64.Vec3{3, 0, -2}
	heading := 0.5
	p := NewPickPlace(cfg, origin, heading, rand.New(rand.NewPCG(1, 2)))

	for i := 0; i < 200; i++ {
		place := p.newPlace()

		if place.Y() != cfg.MinHeight+cfg.PlaceClearance {
			t.Fatalf("place %v: height got %v", place, place.Y())
		}
		d := planar(place, origin)
		if d < cfg.PlaceRadius*cfg.PlaceMinRatio-1e-9 || d > cfg.PlaceRadius+1e-9 {
			t.Fatalf("place %v: radius %v out of range", place, d)
		}
		bearing := math.Atan2(place.X()-origin.X(), place.Z()-origin.Z())
		if off := math.Abs(math.Remainder(bearing-heading, 2*math.Pi)); off > cfg.PlaceArc+1e-9 {
			t.Fatalf("place %v: bearing %v off heading by %v", place, bearing, off)
		}
	}
}

func TestPickPlace_TargetsStayAboveWristFloor(t *testing.T) {
	cfg := DefaultConfig()
	p := newTestMachine()
	arm := &trackingArm{effector: mgl64.Vec3{0, 1, 1}, rate: 5}
	object := mgl64.Vec3{-0.4, 0, 0.9}

	for now := time.Duration(0); now <= 20*time.Second; now += frame {
		cmd := p.Update(arm.effector, object, now)
		if cmd.Target.Y() < cfg.WristFloor() {
			t.Fatalf("at %v in %v: target %v below %v", now, cmd.State, cmd.Target, cfg.WristFloor())
		}
		arm.follow(cmd, frame)
	}
}

func TestPickPlace_ZeroElapsedKeepsState(t *testing.T) {
	p := newTestMachine()
	object := mgl64.Vec3{0, 0.15, 1}
	far := mgl64.Vec3{0, 2, -2}

	first := p.Update(far, object, time.Second)
	for i := 0; i < 5; i++ {
		cmd := p.Update(far, object, time.Second)
		if cmd != first {
			t.Fatalf("repeat %d: got %+v, want %+v", i, cmd, first)
		}
	}
}

func TestState_String(t *testing.T) {
	if got := PlaceObject.String(); got != "place_object" {
		t.Errorf("String: got %q", got)
	}
	if got := State(42).String(); got != "unknown" {
		t.Errorf("String: got %q, want unknown", got)
	}
	for _, s := range []State{GraspObject, LiftObject, MoveToPlace, PlaceObject} {
		if !s.Grips() {
			t.Errorf("%v: should grip", s)
		}
	}
	if MoveToObject.Grips() || ReleaseObject.Grips() {
		t.Error("open states should not grip")
	}
}

func TestParseState(t *testing.T) {
	for s := MoveToObject; s <= ResetPosition; s++ {
		got, ok := ParseState(s.String())
		if !ok || got != s {
			t.Errorf("ParseState(%q): got %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseState("dancing"); ok {
		t.Error("ParseState: unknown name should fail")
	}
}
