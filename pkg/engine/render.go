package engine

import (
	"context"
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var (
	pageColor        = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	imageColor       = color.RGBA{R: 210, G: 210, B: 210, A: 255}
	imageBorderColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	textColor        = color.RGBA{A: 255}
)

// minGlyphPixels is the smallest scaled font size drawn as text;
// smaller runs are drawn as a bar
const minGlyphPixels = 5

// maxBitmapPixels is the largest scaled font size drawn with the bitmap
// face as is; larger runs are scaled up from it
const maxBitmapPixels = 26

// curveSteps is the number of segments a Bézier curve is flattened into
const curveSteps = 16

// renderer paints a preview of a page: filled and stroked paths in
// device colors, image XObjects and text runs in a fixed bitmap face
type renderer struct {
	dst      draw.Image
	viewport Viewport
	pageW    float64
	pageH    float64

	// resolve describes the XObject painted by a Do operation and, for
	// images it can decode, returns the samples
	resolve func(op Operation) (Object, image.Image)
}

func (r renderer) render(ctx context.Context, ops []Operation, items []TextItem) error {
	bounds := r.dst.Bounds()
	draw.Draw(r.dst, bounds, image.NewUniform(pageColor), image.Point{}, draw.Src)

	p := newPainter(r)
	for i, op := range ops {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		p.apply(op)
	}

	drawer := &font.Drawer{
		Dst:  r.dst,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
	}
	for i, item := range items {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		x, y := r.device(item.X, item.Y)
		if item.Height*r.scale() < minGlyphPixels {
			w := int(math.Max(1, item.Width*r.scale()))
			bar := image.Rect(int(x), int(y)-1, int(x)+w, int(y)).Intersect(bounds)
			draw.Draw(r.dst, bar, image.NewUniform(textColor), image.Point{}, draw.Src)
			continue
		}
		if item.Height*r.scale() > maxBitmapPixels {
			r.drawScaled(item, x, y)
			continue
		}
		drawer.Dot = fixed.P(int(math.Round(x)), int(math.Round(y)))
		drawer.DrawString(item.Str)
	}
	return nil
}

// drawScaled draws a run at native face size, then scales it so the
// face height matches the run height
func (r renderer) drawScaled(item TextItem, x, y float64) {
	face := basicfont.Face7x13
	advance := font.MeasureString(face, item.Str).Ceil()
	if advance == 0 {
		return
	}
	metrics := face.Metrics()
	ascent, height := metrics.Ascent.Ceil(), metrics.Height.Ceil()

	src := image.NewRGBA(image.Rect(0, 0, advance, height))
	d := font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(item.Str)

	k := item.Height * r.scale() / float64(height)
	dr := image.Rect(
		int(math.Round(x)),
		int(math.Round(y-float64(ascent)*k)),
		int(math.Round(x+float64(advance)*k)),
		int(math.Round(y+float64(height-ascent)*k)),
	)
	draw.BiLinear.Scale(r.dst, dr, src, src.Bounds(), draw.Over, nil)
}

// drawImage paints image samples into the unit square of ctm. Images
// it cannot decode are shown as a grey box over their placement.
func (r renderer) drawImage(obj Object, pix image.Image, ctm Matrix) {
	if pix != nil {
		b := pix.Bounds()
		if s2d, ok := r.imageTransform(ctm, b.Dx(), b.Dy()); ok {
			draw.BiLinear.Transform(r.dst, s2d, pix, b, draw.Over, nil)
			return
		}
	}

	rect := r.deviceRect(obj.Placement).Intersect(r.dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(r.dst, rect, image.NewUniform(imageColor), image.Point{}, draw.Src)
	r.outline(rect)
}

// imageTransform maps image sample space onto the surface. Row 0 of an
// image is the top edge of the unit square.
func (r renderer) imageTransform(ctm Matrix, w, h int) (f64.Aff3, bool) {
	if w <= 0 || h <= 0 {
		return f64.Aff3{}, false
	}
	ox, oy := r.device(ctm.Apply(0, 1))
	ux, uy := r.device(ctm.Apply(1/float64(w), 1))
	vx, vy := r.device(ctm.Apply(0, 1-1/float64(h)))

	m := f64.Aff3{ux - ox, vx - ox, ox, uy - oy, vy - oy, oy}
	det := m[0]*m[4] - m[1]*m[3]
	return m, math.Abs(det) > 1e-9
}

func (r renderer) scale() float64 {
	if r.viewport.Scale > 0 {
		return r.viewport.Scale
	}
	return 1
}

// device maps a user space point onto the surface, honouring the
// page rotation. The surface origin is top-left.
func (r renderer) device(x, y float64) (float64, float64) {
	s := r.scale()
	switch r.viewport.Rotation {
	case 90:
		return y * s, x * s
	case 180:
		return (r.pageW - x) * s, y * s
	case 270:
		return (r.pageH - y) * s, (r.pageW - x) * s
	default:
		return x * s, (r.pageH - y) * s
	}
}

func (r renderer) deviceRect(b BoundingBox) image.Rectangle {
	x0, y0 := r.device(b.X0, b.Y0)
	x1, y1 := r.device(b.X1, b.Y1)
	return image.Rect(
		int(math.Floor(math.Min(x0, x1))), int(math.Floor(math.Min(y0, y1))),
		int(math.Ceil(math.Max(x0, x1))), int(math.Ceil(math.Max(y0, y1))),
	)
}

func (r renderer) outline(rect image.Rectangle) {
	c := image.NewUniform(imageBorderColor)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+1),
		image.Rect(rect.Min.X, rect.Max.Y-1, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+1, rect.Max.Y),
		image.Rect(rect.Max.X-1, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(r.dst, e, c, image.Point{}, draw.Src)
	}
}

// point is a position on the surface
type point struct{ x, y float64 }

// paintState is the part of the graphics state the painter honours;
// the CTM travels with each operation
type paintState struct {
	fill      color.RGBA
	stroke    color.RGBA
	lineWidth float64
}

// painter replays path construction and painting operators
type painter struct {
	r     renderer
	z     vector.Rasterizer
	state paintState
	stack []paintState
	path  [][]point
}

func newPainter(r renderer) *painter {
	return &painter{
		r:     r,
		state: paintState{fill: textColor, stroke: textColor, lineWidth: 1},
	}
}

func (p *painter) apply(op Operation) {
	args := numericOperands(op.Operands)

	switch op.Operator {
	case "q":
		p.stack = append(p.stack, p.state)
	case "Q":
		if n := len(p.stack); n > 0 {
			p.state = p.stack[n-1]
			p.stack = p.stack[:n-1]
		}
	case "w":
		if len(args) == 1 {
			p.state.lineWidth = args[0]
		}

	case "g", "rg", "k", "sc", "scn":
		if c, ok := deviceColor(args); ok {
			p.state.fill = c
		}
	case "G", "RG", "K", "SC", "SCN":
		if c, ok := deviceColor(args); ok {
			p.state.stroke = c
		}
	case "cs":
		p.state.fill = textColor
	case "CS":
		p.state.stroke = textColor

	case "m":
		if len(args) == 2 {
			p.path = append(p.path, []point{p.at(op.CTM, args[0], args[1])})
		}
	case "l":
		if len(args) == 2 {
			p.lineTo(p.at(op.CTM, args[0], args[1]))
		}
	case "c":
		if len(args) == 6 {
			p.curveTo(p.at(op.CTM, args[0], args[1]), p.at(op.CTM, args[2], args[3]), p.at(op.CTM, args[4], args[5]))
		}
	case "v":
		if cur, ok := p.current(); ok && len(args) == 4 {
			p.curveTo(cur, p.at(op.CTM, args[0], args[1]), p.at(op.CTM, args[2], args[3]))
		}
	case "y":
		if len(args) == 4 {
			end := p.at(op.CTM, args[2], args[3])
			p.curveTo(p.at(op.CTM, args[0], args[1]), end, end)
		}
	case "h":
		p.closePath()
	case "re":
		if len(args) == 4 {
			x, y, w, h := args[0], args[1], args[2], args[3]
			p.path = append(p.path, []point{
				p.at(op.CTM, x, y), p.at(op.CTM, x+w, y),
				p.at(op.CTM, x+w, y+h), p.at(op.CTM, x, y+h),
				p.at(op.CTM, x, y),
			})
		}

	case "f", "F", "f*":
		p.fillPath()
		p.path = nil
	case "S":
		p.strokePath(op.CTM)
		p.path = nil
	case "s":
		p.closePath()
		p.strokePath(op.CTM)
		p.path = nil
	case "B", "B*":
		p.fillPath()
		p.strokePath(op.CTM)
		p.path = nil
	case "b", "b*":
		p.closePath()
		p.fillPath()
		p.strokePath(op.CTM)
		p.path = nil
	case "n":
		p.path = nil

	case "Do":
		if p.r.resolve == nil {
			return
		}
		if obj, pix := p.r.resolve(op); obj.Subtype == SubtypeImage {
			p.r.drawImage(obj, pix, op.CTM)
		}
	}
}

func (p *painter) at(ctm Matrix, x, y float64) point {
	dx, dy := p.r.device(ctm.Apply(x, y))
	return point{dx, dy}
}

func (p *painter) current() (point, bool) {
	if len(p.path) == 0 {
		return point{}, false
	}
	sub := p.path[len(p.path)-1]
	return sub[len(sub)-1], true
}

func (p *painter) lineTo(pt point) {
	if len(p.path) == 0 {
		p.path = append(p.path, []point{pt})
		return
	}
	last := len(p.path) - 1
	p.path[last] = append(p.path[last], pt)
}

// curveTo flattens a cubic Bézier from the current point
func (p *painter) curveTo(c1, c2, end point) {
	start, ok := p.current()
	if !ok {
		p.lineTo(end)
		return
	}
	for i := 1; i <= curveSteps; i++ {
		t := float64(i) / curveSteps
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		p.lineTo(point{
			x: a*start.x + b*c1.x + c*c2.x + d*end.x,
			y: a*start.y + b*c1.y + c*c2.y + d*end.y,
		})
	}
}

func (p *painter) closePath() {
	if len(p.path) == 0 {
		return
	}
	last := len(p.path) - 1
	sub := p.path[last]
	if len(sub) > 1 && sub[0] != sub[len(sub)-1] {
		p.path[last] = append(sub, sub[0])
	}
	// a new subpath starts at the closed subpath's start
	p.path = append(p.path, []point{sub[0]})
}

func (p *painter) fillPath() {
	p.fillPolygons(p.path, p.state.fill)
}

// strokePath fills one quadrilateral per segment, each as wide as the
// line width under ctm
func (p *painter) strokePath(ctm Matrix) {
	width := p.state.lineWidth * math.Sqrt(math.Abs(ctm.A*ctm.D-ctm.B*ctm.C)) * p.r.scale()
	half := math.Max(width, 1) / 2

	var quads [][]point
	for _, sub := range p.path {
		for i := 1; i < len(sub); i++ {
			a, b := sub[i-1], sub[i]
			dx, dy := b.x-a.x, b.y-a.y
			length := math.Hypot(dx, dy)
			if length == 0 {
				continue
			}
			nx, ny := -dy/length*half, dx/length*half
			quads = append(quads, []point{
				{a.x + nx, a.y + ny}, {b.x + nx, b.y + ny},
				{b.x - nx, b.y - ny}, {a.x - nx, a.y - ny},
			})
		}
	}
	p.fillPolygons(quads, p.state.stroke)
}

// fillPolygons rasterizes closed polygons over their bounding box only
func (p *painter) fillPolygons(polys [][]point, c color.RGBA) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		for _, pt := range poly {
			minX, minY = math.Min(minX, pt.x), math.Min(minY, pt.y)
			maxX, maxY = math.Max(maxX, pt.x), math.Max(maxY, pt.y)
		}
	}
	if math.IsInf(minX, 1) {
		return
	}

	area := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(p.r.dst.Bounds())
	if area.Empty() {
		return
	}

	p.z.Reset(area.Dx(), area.Dy())
	ox, oy := float64(area.Min.X), float64(area.Min.Y)
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		p.z.MoveTo(float32(poly[0].x-ox), float32(poly[0].y-oy))
		for _, pt := range poly[1:] {
			p.z.LineTo(float32(pt.x-ox), float32(pt.y-oy))
		}
		p.z.ClosePath()
	}
	p.z.Draw(p.r.dst, area, image.NewUniform(c), image.Point{})
}

// numericOperands parses the number operands of an operation, skipping
// names and strings
func numericOperands(operands []string) []float64 {
	nums := make([]float64, 0, len(operands))
	for _, s := range operands {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			nums = append(nums, f)
		}
	}
	return nums
}

// deviceColor reads a gray, RGB or CMYK color from its components
func deviceColor(args []float64) (color.RGBA, bool) {
	c := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	switch len(args) {
	case 1:
		g := c(args[0])
		return color.RGBA{R: g, G: g, B: g, A: 255}, true
	case 3:
		return color.RGBA{R: c(args[0]), G: c(args[1]), B: c(args[2]), A: 255}, true
	case 4:
		k := 1 - math.Max(0, math.Min(1, args[3]))
		return color.RGBA{
			R: c((1 - args[0]) * k),
			G: c((1 - args[1]) * k),
			B: c((1 - args[2]) * k),
			A: 255,
		}, true
	}
	return color.RGBA{}, false
}
