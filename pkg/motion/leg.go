package motion

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-rigmotion/pkg/kinematics"
	"github.com/teslashibe/go-rigmotion/pkg/rig"
	"github.com/teslashibe/go-rigmotion/pkg/task"
)

// Leg drives one leg rig from a foot trajectory source.
type Leg struct {
	Rig    *rig.Rig
	Source task.FootSource

	cfg  Config
	last task.FootCommand
}

// NewLeg wires a leg rig to its foot source and parks it in the safe pose.
func NewLeg(r *rig.Rig, src task.FootSource, cfg Config) *Leg {
	r.Apply(r.Config.SafePose)
	return &Leg{Rig: r, Source: src, cfg: cfg, last: task.FootCommand{Grounded: true}}
}

// Last returns the most recent foot command.
func (l *Leg) Last() task.FootCommand {
	return l.last
}

// Target returns the world-space foot target for a command: the hip
// projected onto the floor plus the offset turned to the body heading.
func (l *Leg) Target(cmd task.FootCommand) mgl64.Vec3 {
	hip := l.Rig.Shoulder.WorldPosition()
	ground := mgl64.Vec3{hip.X(), 0, hip.Z()}
	return ground.Add(mgl64.Rotate3DY(l.Rig.Heading()).Mul3x1(cmd.Offset))
}

// Step advances the leg by one frame.
func (l *Leg) Step(f Frame) task.FootCommand {
	if f.Delta <= 0 {
		return l.last
	}

	cmd := l.Source.Foot(f.Now)
	solved := kinematics.Solve(l.Rig.ToLocal(l.Target(cmd)), l.Rig.Config)
	l.Rig.Apply(blend(l.Rig.Angles(), solved, easing(f.Delta, l.cfg.LegSpeed)))

	l.last = cmd
	return cmd
}
