package rig

import "github.com/go-gl/mathgl/mgl64"

// Node is one joint in a rig's transform hierarchy. Offset and Axis are
// fixed at construction; Angle is the only field mutated at runtime.
type Node struct {
	Name     string
	Offset   mgl64.Vec3 // translation from the parent joint
	Axis     mgl64.Vec3 // unit rotation axis, zero for fixed nodes
	Angle    float64
	Parent   *Node
	Children []*Node
}

func newNode(name string, offset, axis mgl64.Vec3) *Node {
	return &Node{Name: name, Offset: offset, Axis: axis}
}

// Add attaches child under n and returns the child.
func (n *Node) Add(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// Local returns the node's transform relative to its parent.
func (n *Node) Local() mgl64.Mat4 {
	m := mgl64.Translate3D(n.Offset.X(), n.Offset.Y(), n.Offset.Z())
	if n.Angle != 0 && n.Axis != (mgl64.Vec3{}) {
		m = m.Mul4(mgl64.HomogRotate3D(n.Angle, n.Axis))
	}
	return m
}

// World returns the node's transform in world space.
func (n *Node) World() mgl64.Mat4 {
	m := n.Local()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.Local().Mul4(m)
	}
	return m
}

// WorldPosition returns the node's origin in world space.
func (n *Node) WorldPosition() mgl64.Vec3 {
	return n.World().Col(3).Vec3()
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
