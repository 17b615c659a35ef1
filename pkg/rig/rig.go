// Package rig builds the joint hierarchy for arm and leg rigs and exposes
// named handles for the solver and frame driver to manipulate.
package rig

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-rigmotion/pkg/kinematics"
)

// Kind selects the joint chain to build.
type Kind int

const (
	KindArm Kind = iota
	KindLeg
)

func (k Kind) String() string {
	switch k {
	case KindArm:
		return "arm"
	case KindLeg:
		return "leg"
	default:
		return "unknown"
	}
}

// Lateral offsets. Mirrored rigs flip their sign.
const (
	fingerSpread = 0.06
	hipSpread    = 0.1
)

var (
	axisYaw   = mgl64.Vec3{0, 1, 0}
	axisRaise = mgl64.Vec3{-1, 0, 0}
	axisBend  = mgl64.Vec3{1, 0, 0}
	axisGrip  = mgl64.Vec3{0, 0, 1}
)

// Rig is the flat handle set for one rig instance.
type Rig struct {
	Kind     Kind
	Mirrored bool
	Config   kinematics.Config

	Root     *Node // placement and heading in the world
	Base     *Node // yaw
	Shoulder *Node // shoulder / hip pitch
	Upper    *Node // upper arm / thigh group
	Elbow    *Node // elbow / knee
	Lower    *Node // forearm / shin group
	Wrist    *Node // wrist / ankle
	Effector *Node // point the task targets

	GripperLeft  *Node // arm only
	GripperRight *Node // arm only
	Foot         *Node // leg only
}

// Build constructs a rig of the given kind with its default solver
// configuration.
func Build(kind Kind, mirrored bool) *Rig {
	if kind == KindLeg {
		return BuildWith(kind, mirrored, kinematics.LegConfig())
	}
	return BuildWith(kind, mirrored, kinematics.ArmConfig())
}

// BuildWith constructs a rig using cfg for segment lengths.
func BuildWith(kind Kind, mirrored bool, cfg kinematics.Config) *Rig {
	side := 1.0
	if mirrored {
		side = -1
	}
	seg := cfg.Segments

	r := &Rig{Kind: kind, Mirrored: mirrored, Config: cfg}
	r.Root = newNode("root", mgl64.Vec3{}, axisYaw)

	var baseOffset mgl64.Vec3
	if kind == KindLeg {
		baseOffset = mgl64.Vec3{-hipSpread * side, 0, 0}
	}
	r.Base = r.Root.Add(newNode("base", baseOffset, axisYaw))
	r.Shoulder = r.Base.Add(newNode(r.jointName("shoulder", "hip"), mgl64.Vec3{0, seg.BaseHeight, 0}, axisRaise))
	r.Upper = r.Shoulder.Add(newNode(r.jointName("upper_arm", "thigh"), mgl64.Vec3{}, mgl64.Vec3{}))
	r.Elbow = r.Upper.Add(newNode(r.jointName("elbow", "knee"), mgl64.Vec3{0, 0, seg.Upper}, axisBend))
	r.Lower = r.Elbow.Add(newNode(r.jointName("forearm", "shin"), mgl64.Vec3{}, mgl64.Vec3{}))
	r.Wrist = r.Lower.Add(newNode(r.jointName("wrist", "ankle"), mgl64.Vec3{0, 0, seg.Lower}, axisRaise))

	if kind == KindLeg {
		r.Foot = r.Wrist.Add(newNode("foot", mgl64.Vec3{}, mgl64.Vec3{}))
		r.Effector = r.Foot
	} else {
		r.Effector = r.Wrist.Add(newNode("effector", mgl64.Vec3{}, mgl64.Vec3{}))
		r.GripperLeft = r.Wrist.Add(newNode("gripper_left", mgl64.Vec3{-fingerSpread * side, 0, 0}, axisGrip))
		r.GripperRight = r.Wrist.Add(newNode("gripper_right", mgl64.Vec3{fingerSpread * side, 0, 0}, axisGrip))
	}
	return r
}

func (r *Rig) jointName(arm, leg string) string {
	if r.Kind == KindLeg {
		return leg
	}
	return arm
}

// Place sets the rig's world position and heading (yaw about +Y).
func (r *Rig) Place(position mgl64.Vec3, heading float64) {
	r.Root.Offset = position
	r.Root.Angle = heading
}

// Position returns the rig's world position.
func (r *Rig) Position() mgl64.Vec3 {
	return r.Root.Offset
}

// Heading returns the rig's yaw in the world.
func (r *Rig) Heading() float64 {
	return r.Root.Angle
}

// Forward returns the rig's forward direction in the world.
func (r *Rig) Forward() mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(r.Heading()), 0, math.Cos(r.Heading())}
}

// Apply writes joint angles to the tree.
func (r *Rig) Apply(a kinematics.Angles) {
	r.Base.Angle = a.Base
	r.Shoulder.Angle = a.Shoulder
	r.Elbow.Angle = a.Elbow
	r.Wrist.Angle = a.Wrist
}

// Angles reads the current joint angles.
func (r *Rig) Angles() kinematics.Angles {
	return kinematics.Angles{
		Base:     r.Base.Angle,
		Shoulder: r.Shoulder.Angle,
		Elbow:    r.Elbow.Angle,
		Wrist:    r.Wrist.Angle,
	}
}

// SetGripper opens the fingers to width radians. No-op on legs.
func (r *Rig) SetGripper(width float64) {
	if r.GripperLeft == nil {
		return
	}
	r.GripperLeft.Angle = width
	r.GripperRight.Angle = -width
}

// Gripper returns the current finger opening.
func (r *Rig) Gripper() float64 {
	if r.GripperLeft == nil {
		return 0
	}
	return r.GripperLeft.Angle
}

// EffectorPosition returns the end-effector in world space.
func (r *Rig) EffectorPosition() mgl64.Vec3 {
	return r.Effector.WorldPosition()
}

// ToLocal converts a world point into the solver frame: origin at the base
// pivot, oriented with the root.
func (r *Rig) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	o := r.Base.Offset
	frame := r.Root.World().Mul4(mgl64.Translate3D(o.X(), o.Y(), o.Z()))
	return mgl64.TransformCoordinate(world, frame.Inv())
}

// ToWorld converts a solver-frame point into world space.
func (r *Rig) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	o := r.Base.Offset
	frame := r.Root.World().Mul4(mgl64.Translate3D(o.X(), o.Y(), o.Z()))
	return mgl64.TransformCoordinate(local, frame)
}

// Joints returns every node keyed by name.
func (r *Rig) Joints() map[string]*Node {
	out := make(map[string]*Node)
	r.Root.Walk(func(n *Node) {
		out[n.Name] = n
	})
	return out
}
