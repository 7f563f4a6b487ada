package engine

import (
	"math"
	"time"
)

// ObjectSubtype is the /Subtype of an XObject
type ObjectSubtype string

const (
	SubtypeImage ObjectSubtype = "Image"
	SubtypeForm  ObjectSubtype = "Form"
)

// BoundingBox represents a rectangular area with coordinates
type BoundingBox struct {
	X0 float64 // Left
	Y0 float64 // Bottom
	X1 float64 // Right
	Y1 float64 // Top
}

// Width returns the width of the bounding box
func (b BoundingBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the height of the bounding box
func (b BoundingBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Matrix represents a 2D transformation matrix [a b c d e f]
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix returns the identity transformation
func IdentityMatrix() Matrix {
	return Matrix{A: 1, D: 1}
}

// Multiply returns m × n, i.e. m applied first, then n
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Apply transforms a point
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// UnitSquare returns the bounding box of the unit square under m.
// Image XObjects are painted into exactly this area.
func (m Matrix) UnitSquare() BoundingBox {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.Apply(0, 0)
	xs[1], ys[1] = m.Apply(1, 0)
	xs[2], ys[2] = m.Apply(0, 1)
	xs[3], ys[3] = m.Apply(1, 1)

	bbox := BoundingBox{X0: xs[0], Y0: ys[0], X1: xs[0], Y1: ys[0]}
	for i := 1; i < 4; i++ {
		bbox.X0 = math.Min(bbox.X0, xs[i])
		bbox.Y0 = math.Min(bbox.Y0, ys[i])
		bbox.X1 = math.Max(bbox.X1, xs[i])
		bbox.Y1 = math.Max(bbox.Y1, ys[i])
	}
	return bbox
}

// TextItem is one run of text as drawn on the page.
// Coordinates are PDF user space: origin bottom-left, Y is the baseline.
type TextItem struct {
	Str    string  `json:"str"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Font   string  `json:"font,omitempty"`
}

// Viewport describes how a page maps onto a drawing surface
type Viewport struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Scale    float64 `json:"scale"`
	Rotation int     `json:"rotation"`
}

// WithScale returns the same page rectangle at another scale
func (v Viewport) WithScale(scale float64) Viewport {
	if v.Scale == 0 {
		return v
	}
	return Viewport{
		Width:    v.Width / v.Scale * scale,
		Height:   v.Height / v.Scale * scale,
		Scale:    scale,
		Rotation: v.Rotation,
	}
}

// PixelSize returns the surface size in whole pixels
func (v Viewport) PixelSize() (int, int) {
	return int(math.Ceil(v.Width)), int(math.Ceil(v.Height))
}

// Metadata represents PDF document metadata
type Metadata struct {
	Title        string            `json:"title"`
	Author       string            `json:"author"`
	Subject      string            `json:"subject"`
	Keywords     string            `json:"keywords"`
	Creator      string            `json:"creator"`
	Producer     string            `json:"producer"`
	CreationDate time.Time         `json:"creation_date"`
	ModDate      time.Time         `json:"mod_date"`
	Trapped      string            `json:"trapped,omitempty"`
	PDFVersion   string            `json:"pdf_version"`
	Encrypted    bool              `json:"encrypted"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// OutlineItem is one bookmark. Page is 0 when the destination
// could not be resolved to a page of this document.
type OutlineItem struct {
	Title    string
	Page     int
	Children []OutlineItem
}

// Operation is one drawing operation of a page content stream
type Operation struct {
	Operator string
	Operands []string
	// CTM is the current transformation matrix when the operator runs
	CTM Matrix

	// set for XObject operations; resolved lazily by ResolveObject
	target any
}

// IsXObjectPaint reports whether the operation paints a named XObject
func (op Operation) IsXObjectPaint() bool {
	return op.Operator == "Do"
}

// Object describes an XObject referenced from a content stream
type Object struct {
	Name             string        `json:"name"`
	Subtype          ObjectSubtype `json:"subtype"`
	Width            int           `json:"width,omitempty"`
	Height           int           `json:"height,omitempty"`
	ColorSpace       string        `json:"color_space,omitempty"`
	BitsPerComponent int           `json:"bits_per_component,omitempty"`
	Filter           string        `json:"filter,omitempty"`
	// Placement is where the object lands on the page, in user space
	Placement BoundingBox `json:"placement"`
}
