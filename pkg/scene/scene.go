// Package scene lays out rig instances, steps them once per tick and
// publishes snapshots of the result.
//
// Ticks run on a single goroutine and each rig's state is touched only by
// its own slice of the tick. Readers on other goroutines only ever see
// finished snapshots.
package scene

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/teslashibe/go-rigmotion/internal/config"
	"github.com/teslashibe/go-rigmotion/internal/log"
	"github.com/teslashibe/go-rigmotion/pkg/motion"
	"github.com/teslashibe/go-rigmotion/pkg/rig"
	"github.com/teslashibe/go-rigmotion/pkg/task"
)

// ErrUnknownRig is returned when a rig ID is not in the scene.
var ErrUnknownRig = errors.New("scene: unknown rig")

// HoverRadius is how close the pointer must be to an arm to hover it.
const HoverRadius = 1.5

// heartbeatTicks is how often Run logs a heartbeat.
const heartbeatTicks = 600

var namespace = uuid.MustParse("6f1c2a52-7d0b-4d5e-9a43-2b8f6c1e9d70")

// Sink receives published snapshots. *hub.Hub satisfies it.
type Sink interface {
	BroadcastJSON(v any) error
}

type armInstance struct {
	id      string
	index   int
	program task.Program
	rig     *rig.Rig

	// exactly one of pick or script is set
	pick   *motion.Arm
	script *motion.Scripted
	prop   *motion.Prop

	lastCycle time.Duration
}

type legInstance struct {
	id   string
	side string
	leg  *motion.Leg
}

// Scene owns every rig instance and the tick loop.
type Scene struct {
	cfg       config.Scene
	motionCfg motion.Config
	arms      []*armInstance
	legs      []*legInstance
	clock     motion.Clock

	// cycle durations of pick-and-place arms, seconds
	cycleTimes []float64
	recoveries int

	mu       sync.RWMutex
	snapshot Snapshot
	pointer  *mgl64.Vec3
	hover    string

	// Control loop
	rate     time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	sink     Sink
	publish  uint64 // publish every n ticks

	tickCount uint64
}

// New lays out a scene from its description.
func New(sc config.Scene) *Scene {
	s := &Scene{
		cfg:       sc,
		motionCfg: motion.DefaultConfig(),
		rate:      time.Second / time.Duration(max(sc.Hz, 1)),
		stop:      make(chan struct{}),
		publish:   1,
	}
	if sc.PublishHz > 0 {
		s.publish = uint64(max(sc.Hz/sc.PublishHz, 1))
	}
	s.layoutArms()
	if sc.Humanoid.Enabled {
		s.layoutHumanoid()
	}
	s.snapshot = s.capture(0)
	return s
}

func (s *Scene) id(kind string, a, b int) string {
	name := fmt.Sprintf("%s/%d/%d/%d", kind, s.cfg.Seed, a, b)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

func (s *Scene) layoutArms() {
	grid := s.cfg.Arms
	if grid.Rows*grid.Cols == 0 {
		return
	}
	layout := rand.New(rand.NewPCG(s.cfg.Seed, 0))
	offsetX := float64(grid.Cols-1) * grid.Spacing / 2
	offsetZ := float64(grid.Rows-1) * grid.Spacing / 2
	taskCfg := task.DefaultConfig()

	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			index := row*grid.Cols + col
			program, _ := task.LookupProgram(grid.Programs[index%len(grid.Programs)])
			origin := mgl64.Vec3{float64(col)*grid.Spacing - offsetX, 0, float64(row)*grid.Spacing - offsetZ}

			r := rig.Build(rig.KindArm, false)
			r.Place(origin, 0)
			inst := &armInstance{
				id:      s.id("arm", row, col),
				index:   index,
				program: program,
				rig:     r,
			}

			if program.Scripted() {
				inst.script = motion.NewScripted(r, program, index, s.motionCfg)
			} else {
				bearing := (layout.Float64()*2 - 1) * math.Pi / 2
				reach := grid.PropMinReach + (grid.PropMaxReach-grid.PropMinReach)*layout.Float64()
				inst.prop = &motion.Prop{Position: origin.Add(mgl64.Vec3{
					math.Sin(bearing) * reach,
					taskCfg.MinHeight,
					math.Cos(bearing) * reach,
				})}
				rng := rand.New(rand.NewPCG(s.cfg.Seed, uint64(index)+1))
				pp := task.NewPickPlace(taskCfg, origin, r.Heading(), rng)
				inst.pick = motion.NewArm(r, pp, taskCfg, s.motionCfg)
			}
			s.arms = append(s.arms, inst)
		}
	}
}

func (s *Scene) layoutHumanoid() {
	h := s.cfg.Humanoid
	pelvis := mgl64.Vec3{h.Position[0], h.HipHeight, h.Position[2]}

	for i, side := range []string{"left", "right"} {
		var src task.FootSource
		switch h.Mode {
		case config.ModeKick:
			src = task.Stand{}
			if side == "right" {
				src = task.DefaultKick()
			}
		case config.ModeStand:
			src = task.Stand{}
		default:
			src = task.DefaultGait().WithPhase(0.5 * float64(i))
		}

		r := rig.Build(rig.KindLeg, side == "right")
		r.Place(pelvis, h.Heading)
		s.legs = append(s.legs, &legInstance{
			id:   s.id("leg", i, 0),
			side: side,
			leg:  motion.NewLeg(r, src, s.motionCfg),
		})
	}
}

// SetSink sets where Run publishes snapshots.
func (s *Scene) SetSink(sink Sink) {
	s.sink = sink
}

// Tick steps every rig to now and returns the resulting snapshot. Tick must
// not be called concurrently with itself or Run.
func (s *Scene) Tick(now time.Duration) Snapshot {
	f := s.clock.Frame(now)

	var done []float64
	recovered := 0
	for _, a := range s.arms {
		if a.script != nil {
			a.script.Step(f)
			continue
		}
		before := a.pick.Task.Cycles()
		cmd := a.pick.Step(f, a.prop)
		switch {
		case a.pick.Task.Cycles() > before:
			took := f.Now - a.lastCycle
			a.lastCycle = f.Now
			done = append(done, took.Seconds())
			log.Debug("cycle complete", "rig", a.id, "cycles", a.pick.Task.Cycles(), "took", took)
		case cmd.ResetObject:
			a.lastCycle = f.Now
			recovered++
			log.Debug("stuck state recovered", "rig", a.id)
		}
	}
	for _, l := range s.legs {
		l.leg.Step(f)
	}

	s.mu.Lock()
	s.tickCount++
	s.cycleTimes = append(s.cycleTimes, done...)
	s.recoveries += recovered
	s.mu.Unlock()

	snap := s.capture(now)

	s.mu.Lock()
	snap.Pointer, snap.Hover = s.pointer, s.hover
	s.snapshot = snap
	s.mu.Unlock()
	return snap
}

func (s *Scene) capture(now time.Duration) Snapshot {
	snap := Snapshot{
		Tick: s.tickCount,
		Time: now.Seconds(),
		Rigs: make([]RigState, 0, len(s.arms)+len(s.legs)),
	}
	for _, a := range s.arms {
		st := RigState{
			ID:       a.id,
			Kind:     a.rig.Kind.String(),
			Program:  a.program.Name,
			Position: a.rig.Position(),
			Heading:  a.rig.Heading(),
			Angles:   a.rig.Angles(),
			Gripper:  a.rig.Gripper(),
			Effector: a.rig.EffectorPosition(),
			Joints:   joints(a.rig),
		}
		if a.pick != nil {
			st.State = a.pick.Task.State().String()
			st.Cycles = a.pick.Task.Cycles()
			st.Prop = vecPtr(a.prop.Position)
			if a.pick.Task.Started() {
				st.Target = vecPtr(a.pick.Last().Target)
			}
		}
		snap.Rigs = append(snap.Rigs, st)
	}
	for _, l := range s.legs {
		r := l.leg.Rig
		snap.Rigs = append(snap.Rigs, RigState{
			ID:       l.id,
			Kind:     r.Kind.String(),
			Side:     l.side,
			Position: r.Position(),
			Heading:  r.Heading(),
			Angles:   r.Angles(),
			Effector: r.EffectorPosition(),
			Joints:   joints(r),
			Grounded: l.leg.Last().Grounded,
		})
	}
	return snap
}

// Run ticks the scene at its configured rate until ctx is done or Stop is
// called.
func (s *Scene) Run(ctx context.Context) {
	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()
	start := time.Now()

	log.Info("scene started", "hz", s.cfg.Hz, "arms", len(s.arms), "legs", len(s.legs))

	for {
		select {
		case <-ctx.Done():
			log.Info("scene stopped", "ticks", s.tickCount, "reason", ctx.Err())
			return
		case <-s.stop:
			log.Info("scene stopped", "ticks", s.tickCount)
			return
		case <-ticker.C:
			snap := s.Tick(time.Since(start))
			if s.sink != nil && snap.Tick%s.publish == 0 {
				if err := s.sink.BroadcastJSON(snap); err != nil {
					log.Warn("publish snapshot", "error", err)
				}
			}
			if snap.Tick%heartbeatTicks == 0 {
				st := s.Stats()
				log.Info("scene heartbeat", "ticks", snap.Tick, "cycles", st.Cycles, "recoveries", st.Recoveries)
			}
		}
	}
}

// Stop halts Run.
func (s *Scene) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Snapshot returns the most recent snapshot. Safe for concurrent use.
func (s *Scene) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Lookup returns one rig from the most recent snapshot.
func (s *Scene) Lookup(id string) (RigState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.snapshot.Rigs {
		if r.ID == id {
			return r, nil
		}
	}
	return RigState{}, fmt.Errorf("%w: %s", ErrUnknownRig, id)
}

// SetPointer records the pointer's position on the floor and hovers the
// nearest arm within HoverRadius. The latest call wins; the next snapshot
// reports it.
func (s *Scene) SetPointer(p mgl64.Vec3) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pointer = &p
	s.hover = ""
	best := HoverRadius
	for _, r := range s.snapshot.Rigs {
		if r.Kind != rig.KindArm.String() {
			continue
		}
		if d := math.Hypot(r.Position.X()-p.X(), r.Position.Z()-p.Z()); d <= best {
			best = d
			s.hover = r.ID
		}
	}
	return s.hover
}

// SetHover hovers a rig directly, leaving the pointer unchanged.
func (s *Scene) SetHover(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.snapshot.Rigs {
		if r.ID == id {
			s.hover = id
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownRig, id)
}

// ClearPointer removes the pointer and any hover.
func (s *Scene) ClearPointer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = nil
	s.hover = ""
}

// Stats summarises the run so far.
type Stats struct {
	Ticks      uint64    `json:"ticks"`
	Arms       int       `json:"arms"`
	Legs       int       `json:"legs"`
	Cycles     int       `json:"cycles"`
	Recoveries int       `json:"recoveries"`
	CycleTimes []float64 `json:"-"`
}

// Stats returns run statistics. Safe for concurrent use.
func (s *Scene) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Ticks:      s.tickCount,
		Arms:       len(s.arms),
		Legs:       len(s.legs),
		Cycles:     len(s.cycleTimes),
		Recoveries: s.recoveries,
		CycleTimes: append([]float64(nil), s.cycleTimes...),
	}
}
