// Package sketch draws orthographic pictures of scene snapshots.
package sketch

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/teslashibe/go-rigmotion/pkg/scene"
	"github.com/teslashibe/go-rigmotion/pkg/task"
)

// View picks the projection plane.
type View int

const (
	// Top looks down the Y axis onto the floor.
	Top View = iota
	// Side looks along the Z axis.
	Side
)

func (v View) String() string {
	if v == Side {
		return "side"
	}
	return "top"
}

// ParseView maps "top" or "side" to a View.
func ParseView(s string) (View, error) {
	switch s {
	case "top", "":
		return Top, nil
	case "side":
		return Side, nil
	}
	return Top, fmt.Errorf("sketch: unknown view %q", s)
}

// Options controls Render.
type Options struct {
	Width, Height int
	View          View

	// Backdrop, if set, is stretched over the whole canvas.
	Backdrop image.Image

	// Margin is padding around the rigs, metres.
	Margin float64
}

// DefaultOptions returns a 960x720 top view.
func DefaultOptions() Options {
	return Options{Width: 960, Height: 720, View: Top, Margin: 1}
}

// rendering happens at this multiple of the output size
const supersample = 2

var (
	background   = color.RGBA{0x14, 0x18, 0x1f, 0xff}
	floorColor   = color.RGBA{0x3a, 0x40, 0x4a, 0xff}
	armColor     = color.RGBA{0x5d, 0xa9, 0xe9, 0xff}
	legColor     = color.RGBA{0xe9, 0xb4, 0x5d, 0xff}
	hoverColor   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	gripColor    = color.RGBA{0x6b, 0xe3, 0x8a, 0xff}
	propColor    = color.RGBA{0xe0, 0x5d, 0x5d, 0xff}
	targetColor  = color.RGBA{0xb0, 0x80, 0xe0, 0xff}
	pointerColor = color.RGBA{0xff, 0xe0, 0x40, 0xff}
)

// Render draws snap and returns an image of opts.Width by opts.Height.
func Render(snap scene.Snapshot, opts Options) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("sketch: invalid size %dx%d", opts.Width, opts.Height)
	}

	w, h := opts.Width*supersample, opts.Height*supersample
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	if opts.Backdrop != nil {
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), opts.Backdrop, opts.Backdrop.Bounds(), draw.Over, nil)
	}

	p := fit(snap, opts.View, opts.Margin, w, h)
	pen := newPen(canvas)
	unit := float32(supersample)

	if opts.View == Side {
		a, b := p.project(mgl64.Vec3{p.minU, 0, 0}), p.project(mgl64.Vec3{p.maxU, 0, 0})
		pen.line(a, b, unit, floorColor)
	}

	for _, r := range snap.Rigs {
		c := armColor
		if r.Kind == "leg" {
			c = legColor
		}
		if r.ID == snap.Hover {
			c = hoverColor
		}

		chain := r.Chain()
		for i := 1; i < len(chain); i++ {
			pen.line(p.project(chain[i-1]), p.project(chain[i]), 3*unit, c)
		}
		for _, j := range chain {
			pen.disc(p.project(j), 3*unit, c)
		}

		eff := c
		if s, ok := task.ParseState(r.State); ok && s.Grips() {
			eff = gripColor
		}
		pen.disc(p.project(r.Effector), 5*unit, eff)

		if r.Prop != nil {
			pen.square(p.project(*r.Prop), 5*unit, propColor)
		}
		if r.Target != nil {
			t := p.project(*r.Target)
			pen.line(t.Add(pt(-4*unit, 0)), t.Add(pt(4*unit, 0)), unit, targetColor)
			pen.line(t.Add(pt(0, -4*unit)), t.Add(pt(0, 4*unit)), unit, targetColor)
		}
	}

	if snap.Pointer != nil {
		c := p.project(*snap.Pointer)
		pen.ring(c, 10*unit, 2*unit, pointerColor)
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
	return out, nil
}

// point is a canvas position in pixels.
type point struct{ X, Y float32 }

func pt(x, y float32) point { return point{x, y} }

func (a point) Add(b point) point { return point{a.X + b.X, a.Y + b.Y} }

// projection maps world coordinates onto the canvas.
type projection struct {
	view       View
	minU, maxU float64
	minV, maxV float64
	scale      float64
	offX, offY float64
	height     float64
}

func axes(v mgl64.Vec3, view View) (u, w float64) {
	if view == Side {
		return v.X(), v.Y()
	}
	return v.X(), v.Z()
}

func fit(snap scene.Snapshot, view View, margin float64, w, h int) projection {
	p := projection{
		view:   view,
		minU:   math.Inf(1),
		maxU:   math.Inf(-1),
		minV:   math.Inf(1),
		maxV:   math.Inf(-1),
		height: float64(h),
	}
	grow := func(pos mgl64.Vec3) {
		u, v := axes(pos, view)
		p.minU, p.maxU = math.Min(p.minU, u), math.Max(p.maxU, u)
		p.minV, p.maxV = math.Min(p.minV, v), math.Max(p.maxV, v)
	}
	for _, r := range snap.Rigs {
		for _, j := range r.Joints {
			grow(j.Position)
		}
		if r.Prop != nil {
			grow(*r.Prop)
		}
	}
	if snap.Pointer != nil {
		grow(*snap.Pointer)
	}
	if math.IsInf(p.minU, 1) {
		p.minU, p.maxU, p.minV, p.maxV = -1, 1, -1, 1
	}
	if view == Side {
		p.minV = math.Min(p.minV, 0)
	}

	p.minU -= margin
	p.maxU += margin
	p.minV -= margin
	p.maxV += margin

	du := math.Max(p.maxU-p.minU, 1e-6)
	dv := math.Max(p.maxV-p.minV, 1e-6)
	p.scale = math.Min(float64(w)/du, float64(h)/dv)
	p.offX = (float64(w) - du*p.scale) / 2
	p.offY = (float64(h) - dv*p.scale) / 2
	return p
}

func (p projection) project(v mgl64.Vec3) point {
	u, w := axes(v, p.view)
	x := p.offX + (u-p.minU)*p.scale
	y := p.offY + (w-p.minV)*p.scale
	if p.view == Side {
		// up is up
		y = p.height - y
	}
	return point{float32(x), float32(y)}
}

// pen fills shapes onto an RGBA canvas, one colour at a time.
type pen struct {
	dst *image.RGBA
	z   *vector.Rasterizer
}

func newPen(dst *image.RGBA) *pen {
	b := dst.Bounds()
	return &pen{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

func (p *pen) fill(c color.Color) {
	p.z.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c), image.Point{})
	b := p.dst.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
}

func (p *pen) line(a, b point, width float32, c color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	n := float32(math.Hypot(float64(dx), float64(dy)))
	if n < 1e-3 {
		p.disc(a, width/2, c)
		return
	}
	nx, ny := -dy/n*width/2, dx/n*width/2
	p.z.MoveTo(a.X+nx, a.Y+ny)
	p.z.LineTo(b.X+nx, b.Y+ny)
	p.z.LineTo(b.X-nx, b.Y-ny)
	p.z.LineTo(a.X-nx, a.Y-ny)
	p.z.ClosePath()
	p.fill(c)
}

func (p *pen) polygon(c point, r float32, sides int, phase float64) {
	for i := 0; i <= sides; i++ {
		a := phase + 2*math.Pi*float64(i)/float64(sides)
		x := c.X + r*float32(math.Cos(a))
		y := c.Y + r*float32(math.Sin(a))
		if i == 0 {
			p.z.MoveTo(x, y)
		} else {
			p.z.LineTo(x, y)
		}
	}
	p.z.ClosePath()
}

func (p *pen) disc(c point, r float32, col color.Color) {
	p.polygon(c, r, 16, 0)
	p.fill(col)
}

func (p *pen) square(c point, r float32, col color.Color) {
	p.polygon(c, r*math.Sqrt2, 4, math.Pi/4)
	p.fill(col)
}

// ring strokes a circle of radius r with the given width.
func (p *pen) ring(c point, r, width float32, col color.Color) {
	const sides = 32
	for i := 0; i < sides; i++ {
		a0 := 2 * math.Pi * float64(i) / sides
		a1 := 2 * math.Pi * float64(i+1) / sides
		p0 := point{c.X + r*float32(math.Cos(a0)), c.Y + r*float32(math.Sin(a0))}
		p1 := point{c.X + r*float32(math.Cos(a1)), c.Y + r*float32(math.Sin(a1))}
		p.line(p0, p1, width, col)
	}
}
