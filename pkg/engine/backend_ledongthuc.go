package engine

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	lpdf "github.com/ledongthuc/pdf"
)

// maxFormDepth bounds form XObject expansion; forms may reference each other
const maxFormDepth = 12

// maxOutlineItems bounds the bookmark walk
const maxOutlineItems = 10000

// maxImagePixels bounds the images decoded for previews
const maxImagePixels = 1 << 24

// ledongthucSource reads text, operations and XObjects with ledongthuc/pdf
type ledongthucSource struct {
	reader *lpdf.Reader

	// page dictionary text -> page number, for outline destinations
	pageIndex map[string]int
	indexOnce sync.Once
}

// openLedongthuc opens a PDF held in memory with the ledongthuc/pdf library
func openLedongthuc(data []byte, password string) (src *ledongthucSource, err error) {
	defer recoverError(&err, "open PDF with ledongthuc")

	var r *lpdf.Reader
	if password != "" {
		r, err = lpdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), passwordOnce(password))
	} else {
		r, err = lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with ledongthuc: %w", err)
	}
	if r.NumPage() < 0 {
		return nil, fmt.Errorf("failed to open PDF with ledongthuc: invalid page count")
	}

	return &ledongthucSource{reader: r}, nil
}

func (s *ledongthucSource) backend() string {
	return BackendLedongthuc
}

func (s *ledongthucSource) pageCount() int {
	return s.reader.NumPage()
}

func (s *ledongthucSource) page(number int) (lpdf.Page, error) {
	page := s.reader.Page(number)
	if page.V.IsNull() {
		return page, fmt.Errorf("page %d not found in page tree", number)
	}
	return page, nil
}

// pageText returns the glyphs of a page in content-stream order
func (s *ledongthucSource) pageText(number int) (glyphs []glyph, err error) {
	defer recoverError(&err, "extract text")

	page, err := s.page(number)
	if err != nil {
		return nil, err
	}

	content := page.Content()
	glyphs = make([]glyph, 0, len(content.Text))
	for _, text := range content.Text {
		glyphs = append(glyphs, glyph{
			font: text.Font,
			size: text.FontSize,
			x:    text.X,
			y:    text.Y,
			w:    text.W,
			s:    text.S,
		})
	}
	return glyphs, nil
}

// pageBox reads the inherited MediaBox and the Rotate entry
func (s *ledongthucSource) pageBox(number int) (box pageBox, err error) {
	defer recoverError(&err, "read page box")

	page, err := s.page(number)
	if err != nil {
		return pageBox{}, err
	}

	box = defaultPageBox
	mediaBox := inheritedLedongthuc(page.V, "MediaBox")
	if mediaBox.Kind() == lpdf.Array && mediaBox.Len() == 4 {
		// MediaBox is [x0, y0, x1, y1]
		x0 := mediaBox.Index(0).Float64()
		y0 := mediaBox.Index(1).Float64()
		x1 := mediaBox.Index(2).Float64()
		y1 := mediaBox.Index(3).Float64()
		box.width = abs(x1 - x0)
		box.height = abs(y1 - y0)
	}

	if rotate := inheritedLedongthuc(page.V, "Rotate"); rotate.Kind() == lpdf.Integer {
		box.rotate = int(rotate.Int64())
	}
	return box, nil
}

// inheritedLedongthuc looks key up on the page and then its /Parent chain
func inheritedLedongthuc(v lpdf.Value, key string) lpdf.Value {
	for depth := 0; v.Kind() == lpdf.Dict && depth < 64; depth++ {
		if found := v.Key(key); found.Kind() != lpdf.Null {
			return found
		}
		v = v.Key("Parent")
	}
	return lpdf.Value{}
}

// info reads the trailer's info dictionary
func (s *ledongthucSource) info() (md Metadata, err error) {
	defer recoverError(&err, "read info dictionary")

	trailer := s.reader.Trailer()
	info := trailer.Key("Info")
	get := func(key string) string {
		v := info.Key(key)
		if v.Kind() == lpdf.Name {
			return v.Name()
		}
		return v.Text()
	}
	md = metadataFromInfo(get, info.Keys())
	md.Encrypted = trailer.Key("Encrypt").Kind() != lpdf.Null
	return md, nil
}

// outline walks the bookmark tree, resolving destinations to page numbers
func (s *ledongthucSource) outline() (items []OutlineItem, err error) {
	defer recoverError(&err, "read outline")

	root := s.reader.Trailer().Key("Root")
	outlines := root.Key("Outlines")
	if outlines.Kind() != lpdf.Dict {
		return []OutlineItem{}, nil
	}

	budget := maxOutlineItems
	return s.outlineLevel(root, outlines.Key("First"), &budget), nil
}

func (s *ledongthucSource) outlineLevel(root, first lpdf.Value, budget *int) []OutlineItem {
	items := []OutlineItem{}
	for entry := first; entry.Kind() == lpdf.Dict && *budget > 0; entry = entry.Key("Next") {
		*budget--
		item := OutlineItem{
			Title: entry.Key("Title").Text(),
			Page:  s.destinationPage(root, entry),
		}
		if kid := entry.Key("First"); kid.Kind() == lpdf.Dict {
			item.Children = s.outlineLevel(root, kid, budget)
		}
		items = append(items, item)
	}
	return items
}

// destinationPage resolves an outline item's /Dest or GoTo action
func (s *ledongthucSource) destinationPage(root, entry lpdf.Value) int {
	dest := entry.Key("Dest")
	if dest.Kind() == lpdf.Null {
		action := entry.Key("A")
		if action.Key("S").Name() != "GoTo" {
			return 0
		}
		dest = action.Key("D")
	}

	switch dest.Kind() {
	case lpdf.Name:
		dest = lookupNamedDest(root, dest.Name())
	case lpdf.String:
		dest = lookupNamedDest(root, dest.RawString())
	}
	if dest.Kind() == lpdf.Dict {
		dest = dest.Key("D")
	}
	if dest.Kind() != lpdf.Array || dest.Len() == 0 {
		return 0
	}

	target := dest.Index(0)
	switch target.Kind() {
	case lpdf.Integer:
		// remote-style destinations carry a 0-based page index
		n := int(target.Int64()) + 1
		if n >= 1 && n <= s.pageCount() {
			return n
		}
	case lpdf.Dict:
		s.indexOnce.Do(func() {
			s.pageIndex = make(map[string]int, s.pageCount())
			for i := 1; i <= s.pageCount(); i++ {
				s.pageIndex[s.reader.Page(i).V.String()] = i
			}
		})
		return s.pageIndex[target.String()]
	}
	return 0
}

// lookupNamedDest finds a named destination in /Dests or the /Names tree
func lookupNamedDest(root lpdf.Value, name string) lpdf.Value {
	if v := root.Key("Dests").Key(name); v.Kind() != lpdf.Null {
		return v
	}
	return lookupNameTree(root.Key("Names").Key("Dests"), name, 0)
}

func lookupNameTree(node lpdf.Value, name string, depth int) lpdf.Value {
	if node.Kind() != lpdf.Dict || depth > 32 {
		return lpdf.Value{}
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		if names.Index(i).RawString() == name {
			return names.Index(i + 1)
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if v := lookupNameTree(kids.Index(i), name, depth+1); v.Kind() != lpdf.Null {
			return v
		}
	}
	return lpdf.Value{}
}

// operations interprets the page content, expanding form XObjects in place
func (s *ledongthucSource) operations(number int) (ops []Operation, err error) {
	defer recoverError(&err, "interpret content stream")

	page, err := s.page(number)
	if err != nil {
		return nil, err
	}

	w := &opWalker{ops: []Operation{}}
	contents := page.V.Key("Contents")
	if contents.Kind() == lpdf.Null {
		return w.ops, nil
	}
	w.walk(contents, page.Resources(), IdentityMatrix(), 0)
	return w.ops, nil
}

// xobjectRef is the target of a Do operation
type xobjectRef struct {
	name  string
	value lpdf.Value
}

// resolve describes the XObject painted by a Do operation
func (s *ledongthucSource) resolve(op Operation) (obj Object, err error) {
	defer recoverError(&err, "resolve XObject")

	ref, ok := op.target.(xobjectRef)
	if !ok {
		return Object{}, fmt.Errorf("operation carries no object reference")
	}
	v := ref.value
	if v.Kind() != lpdf.Stream && v.Kind() != lpdf.Dict {
		return Object{}, fmt.Errorf("XObject %q not found in page resources", ref.name)
	}

	obj = Object{
		Name:             ref.name,
		Subtype:          ObjectSubtype(v.Key("Subtype").Name()),
		Width:            int(v.Key("Width").Int64()),
		Height:           int(v.Key("Height").Int64()),
		BitsPerComponent: int(v.Key("BitsPerComponent").Int64()),
		ColorSpace:       firstName(v.Key("ColorSpace")),
		Filter:           joinNames(v.Key("Filter")),
		Placement:        op.CTM.UnitSquare(),
	}
	if obj.Subtype == SubtypeForm {
		obj.Placement = formPlacement(v, op.CTM)
	}
	return obj, nil
}

// pixels decodes the samples of the 8-bit image XObject painted by op.
// Only filters the library decodes itself are supported.
func (s *ledongthucSource) pixels(op Operation) (img image.Image, err error) {
	defer recoverError(&err, "decode image")

	ref, ok := op.target.(xobjectRef)
	if !ok {
		return nil, fmt.Errorf("operation carries no object reference")
	}
	v := ref.value
	if v.Kind() != lpdf.Stream || v.Key("Subtype").Name() != string(SubtypeImage) {
		return nil, fmt.Errorf("XObject %q is not an image", ref.name)
	}
	if v.Key("ImageMask").Bool() {
		return nil, fmt.Errorf("stencil mask %q: %w", ref.name, ErrUnsupported)
	}
	for _, filter := range strings.Split(joinNames(v.Key("Filter")), ",") {
		switch filter {
		case "", "FlateDecode", "ASCII85Decode":
		default:
			return nil, fmt.Errorf("image %q with filter %s: %w", ref.name, filter, ErrUnsupported)
		}
	}

	w, h := int(v.Key("Width").Int64()), int(v.Key("Height").Int64())
	if w <= 0 || h <= 0 || w > maxImagePixels/h {
		return nil, fmt.Errorf("image %q has unusable size %dx%d", ref.name, w, h)
	}
	if bpc := v.Key("BitsPerComponent").Int64(); bpc != 8 {
		return nil, fmt.Errorf("image %q with %d bits per component: %w", ref.name, bpc, ErrUnsupported)
	}

	rect := image.Rect(0, 0, w, h)
	rd := v.Reader()
	defer rd.Close()

	switch n := colorComponents(v.Key("ColorSpace")); n {
	case 1:
		gray := image.NewGray(rect)
		if _, err := io.ReadFull(rd, gray.Pix); err != nil {
			return nil, fmt.Errorf("failed to read image %q: %w", ref.name, err)
		}
		return gray, nil
	case 3:
		samples := make([]byte, w*h*3)
		if _, err := io.ReadFull(rd, samples); err != nil {
			return nil, fmt.Errorf("failed to read image %q: %w", ref.name, err)
		}
		rgba := image.NewRGBA(rect)
		for i, j := 0, 0; i < len(samples); i, j = i+3, j+4 {
			rgba.Pix[j], rgba.Pix[j+1], rgba.Pix[j+2], rgba.Pix[j+3] = samples[i], samples[i+1], samples[i+2], 0xff
		}
		return rgba, nil
	case 4:
		cmyk := image.NewCMYK(rect)
		if _, err := io.ReadFull(rd, cmyk.Pix); err != nil {
			return nil, fmt.Errorf("failed to read image %q: %w", ref.name, err)
		}
		return cmyk, nil
	default:
		return nil, fmt.Errorf("image %q color space %s: %w", ref.name, firstName(v.Key("ColorSpace")), ErrUnsupported)
	}
}

// colorComponents is the number of samples per pixel of a color space
func colorComponents(cs lpdf.Value) int {
	switch firstName(cs) {
	case "DeviceGray", "CalGray", "G":
		return 1
	case "DeviceRGB", "CalRGB", "RGB":
		return 3
	case "DeviceCMYK", "CMYK":
		return 4
	case "ICCBased":
		return int(cs.Index(1).Key("N").Int64())
	}
	return 0
}

// opWalker collects operations while tracking the graphics state matrix
type opWalker struct {
	ops []Operation
}

func (w *opWalker) walk(strm, resources lpdf.Value, ctm Matrix, depth int) {
	state := ctm
	var stack []Matrix

	lpdf.Interpret(strm, func(stk *lpdf.Stack, op string) {
		n := stk.Len()
		args := make([]lpdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		operation := Operation{
			Operator: op,
			Operands: make([]string, n),
			CTM:      state,
		}
		for i, arg := range args {
			operation.Operands[i] = arg.String()
		}

		switch op {
		case "q":
			stack = append(stack, state)
		case "Q":
			if len(stack) > 0 {
				state = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case "cm":
			if n == 6 {
				state = matrixFromValues(args).Multiply(state)
			}
		case "Do":
			if n < 1 {
				break
			}
			name := args[n-1].Name()
			xobj := resources.Key("XObject").Key(name)
			operation.target = xobjectRef{name: name, value: xobj}
			w.ops = append(w.ops, operation)

			if xobj.Key("Subtype").Name() == string(SubtypeForm) && depth < maxFormDepth {
				formResources := xobj.Key("Resources")
				if formResources.Kind() == lpdf.Null {
					formResources = resources
				}
				formMatrix := IdentityMatrix()
				if m := xobj.Key("Matrix"); m.Len() == 6 {
					formMatrix = matrixFromArray(m)
				}
				w.walk(xobj, formResources, formMatrix.Multiply(state), depth+1)
			}
			return
		}

		w.ops = append(w.ops, operation)
	})
}

func matrixFromValues(v []lpdf.Value) Matrix {
	return Matrix{
		A: v[0].Float64(), B: v[1].Float64(),
		C: v[2].Float64(), D: v[3].Float64(),
		E: v[4].Float64(), F: v[5].Float64(),
	}
}

func matrixFromArray(a lpdf.Value) Matrix {
	v := make([]lpdf.Value, 6)
	for i := range v {
		v[i] = a.Index(i)
	}
	return matrixFromValues(v)
}

// formPlacement maps a form's /BBox through its /Matrix and the CTM
func formPlacement(form lpdf.Value, ctm Matrix) BoundingBox {
	bbox := form.Key("BBox")
	if bbox.Len() != 4 {
		return ctm.UnitSquare()
	}
	m := IdentityMatrix()
	if fm := form.Key("Matrix"); fm.Len() == 6 {
		m = matrixFromArray(fm)
	}
	x0, y0 := bbox.Index(0).Float64(), bbox.Index(1).Float64()
	x1, y1 := bbox.Index(2).Float64(), bbox.Index(3).Float64()
	box := Matrix{A: x1 - x0, D: y1 - y0, E: x0, F: y0}
	return box.Multiply(m).Multiply(ctm).UnitSquare()
}

// firstName returns a name value, or the family name of an array color space
func firstName(v lpdf.Value) string {
	switch v.Kind() {
	case lpdf.Name:
		return v.Name()
	case lpdf.Array:
		return v.Index(0).Name()
	}
	return ""
}

func joinNames(v lpdf.Value) string {
	switch v.Kind() {
	case lpdf.Name:
		return v.Name()
	case lpdf.Array:
		names := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			names = append(names, v.Index(i).Name())
		}
		return strings.Join(names, ",")
	}
	return ""
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
