package motion

import (
	"github.com/teslashibe/go-rigmotion/pkg/kinematics"
	"github.com/teslashibe/go-rigmotion/pkg/rig"
	"github.com/teslashibe/go-rigmotion/pkg/task"
)

// Scripted drives an arm from a scripted training program.
type Scripted struct {
	Rig     *rig.Rig
	Program task.Program
	Index   int // varies the program per rig

	cfg Config
}

// NewScripted wires a rig to a program and parks it in the safe pose.
func NewScripted(r *rig.Rig, p task.Program, index int, cfg Config) *Scripted {
	r.Apply(r.Config.SafePose)
	return &Scripted{Rig: r, Program: p, Index: index, cfg: cfg}
}

// Step advances the arm by one frame and returns the guarded target pose.
func (s *Scripted) Step(f Frame) kinematics.Angles {
	if f.Delta <= 0 {
		return s.Rig.Angles()
	}

	pose, grip := s.Program.Pose(f.Now, s.Index)
	target := kinematics.Guard(pose, s.Rig.Config)

	k := easing(f.Delta, s.cfg.BodySpeed)
	s.Rig.Apply(blend(s.Rig.Angles(), target, k))
	s.Rig.SetGripper(lerp(s.Rig.Gripper(), grip, clamp(k*s.cfg.GripperRate, 0, 1)))
	return target
}
