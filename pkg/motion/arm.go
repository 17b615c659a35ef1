package motion

import (
	"math"

	"github.com/teslashibe/go-rigmotion/pkg/kinematics"
	"github.com/teslashibe/go-rigmotion/pkg/rig"
	"github.com/teslashibe/go-rigmotion/pkg/task"
)

// Arm drives one arm rig through the pick-and-place cycle.
type Arm struct {
	Rig  *rig.Rig
	Task *task.PickPlace

	cfg     Config
	taskCfg task.Config
	last    task.Command
}

// NewArm wires a rig to its state machine and parks it in the safe pose.
func NewArm(r *rig.Rig, t *task.PickPlace, taskCfg task.Config, cfg Config) *Arm {
	r.Apply(r.Config.SafePose)
	r.SetGripper(taskCfg.GripOpen)
	return &Arm{Rig: r, Task: t, cfg: cfg, taskCfg: taskCfg}
}

// Last returns the most recent command.
func (a *Arm) Last() task.Command {
	return a.last
}

// Step advances the arm by one frame and moves prop when carried or falling.
// A frame with no elapsed time changes nothing.
func (a *Arm) Step(f Frame, prop *Prop) task.Command {
	if f.Delta <= 0 {
		return a.last
	}

	cmd := a.Task.Update(a.Rig.EffectorPosition(), prop.Position, f.Now)
	if cmd.ResetObject {
		prop.Position = a.Task.Rest()
	}

	solved := kinematics.Solve(a.Rig.ToLocal(cmd.Target), a.Rig.Config)
	k := easing(f.Delta, a.cfg.BodySpeed*cmd.SpeedScale)
	a.Rig.Apply(blend(a.Rig.Angles(), solved, k))
	a.Rig.SetGripper(lerp(a.Rig.Gripper(), cmd.GripperWidth, clamp(k*a.cfg.GripperRate, 0, 1)))

	floor := a.taskCfg.MinHeight
	switch {
	case cmd.Grip:
		p := a.Rig.EffectorPosition()
		p[1] = math.Max(p.Y()-a.taskCfg.GripperLength, floor)
		prop.Position = p
	case cmd.State.Drops() && prop.Position.Y() > floor:
		prop.Position[1] = math.Max(floor, prop.Position.Y()-a.cfg.DropRate*f.Delta.Seconds())
	}

	a.last = cmd
	return cmd
}
