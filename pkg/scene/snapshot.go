package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-rigmotion/pkg/kinematics"
	"github.com/teslashibe/go-rigmotion/pkg/rig"
)

// Snapshot is the observable state of the scene after one tick.
type Snapshot struct {
	Tick    uint64      `json:"tick"`
	Time    float64     `json:"time"` // seconds since start
	Rigs    []RigState  `json:"rigs"`
	Pointer *mgl64.Vec3 `json:"pointer,omitempty"`
	Hover   string      `json:"hover,omitempty"`
}

// RigState describes one rig instance.
type RigState struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Program  string            `json:"program,omitempty"`
	Side     string            `json:"side,omitempty"`
	Position mgl64.Vec3        `json:"position"`
	Heading  float64           `json:"heading"`
	Angles   kinematics.Angles `json:"angles"`
	Gripper  float64           `json:"gripper"`
	Effector mgl64.Vec3        `json:"effector"`
	Joints   []Joint           `json:"joints"`

	// Pick-and-place arms
	State  string      `json:"state,omitempty"`
	Cycles int         `json:"cycles"`
	Target *mgl64.Vec3 `json:"target,omitempty"`
	Prop   *mgl64.Vec3 `json:"prop,omitempty"`

	// Legs
	Grounded bool `json:"grounded,omitempty"`
}

// Joint is a named point of a rig in world space.
type Joint struct {
	Name     string     `json:"name"`
	Position mgl64.Vec3 `json:"position"`
}

// Chain returns the main joint chain from base to effector, skipping
// fingers.
func (r RigState) Chain() []mgl64.Vec3 {
	var out []mgl64.Vec3
	for _, j := range r.Joints {
		if j.Name == "gripper_left" || j.Name == "gripper_right" {
			continue
		}
		out = append(out, j.Position)
	}
	return out
}

func joints(r *rig.Rig) []Joint {
	var out []Joint
	r.Root.Walk(func(n *rig.Node) {
		out = append(out, Joint{Name: n.Name, Position: n.WorldPosition()})
	})
	return out
}

func vecPtr(v mgl64.Vec3) *mgl64.Vec3 {
	return &v
}
