// Package pdftest builds small, well-formed PDF files in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Image is an image XObject placed on a page
type Image struct {
	Width  int
	Height int
	// X, Y, W, H is the placement rectangle in user space
	X, Y, W, H float64
}

// Page describes one page. Text lines are drawn top to bottom with
// Helvetica 12pt; Content, when set, replaces the generated stream.
type Page struct {
	Lines   []string
	Content string
	Width   float64
	Height  float64
	Rotate  int
	Images  []Image
}

// Bookmark is an outline entry pointing at a 1-based page; 0 means
// no destination
type Bookmark struct {
	Title    string
	Page     int
	Children []Bookmark
}

// Document describes a PDF to build
type Document struct {
	Pages   []Page
	Info    map[string]string
	Outline []Bookmark
	// Version is the header version, 1.4 when empty
	Version string
	// TreeSize, when set, is a MediaBox on the page tree root. Pages
	// without their own size inherit it. TreeRotate is inherited the
	// same way.
	TreeSize   [2]float64
	TreeRotate int
}

// Text returns a PDF with one page per argument, each holding one line
func Text(pages ...string) []byte {
	doc := Document{}
	for _, p := range pages {
		doc.Pages = append(doc.Pages, Page{Lines: []string{p}})
	}
	return Build(doc)
}

type objects struct {
	bodies []string
}

func (o *objects) alloc() int {
	o.bodies = append(o.bodies, "")
	return len(o.bodies)
}

func (o *objects) set(n int, format string, args ...any) {
	o.bodies[n-1] = fmt.Sprintf(format, args...)
}

// Build serializes doc with a classic cross-reference table
func Build(doc Document) []byte {
	var o objects
	catalog := o.alloc()
	pages := o.alloc()
	font := o.alloc()
	info := o.alloc()

	o.set(font, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	infoKeys := make([]string, 0, len(doc.Info))
	for k := range doc.Info {
		infoKeys = append(infoKeys, k)
	}
	sort.Strings(infoKeys)
	var infoDict strings.Builder
	infoDict.WriteString("<<")
	for _, k := range infoKeys {
		fmt.Fprintf(&infoDict, " /%s %s", k, literal(doc.Info[k]))
	}
	infoDict.WriteString(" >>")
	o.set(info, "%s", infoDict.String())

	pageRefs := make([]int, len(doc.Pages))
	for i := range doc.Pages {
		pageRefs[i] = o.alloc()
	}
	for i, p := range doc.Pages {
		w, h := p.Width, p.Height
		inherit := w == 0 && h == 0 && doc.TreeSize != [2]float64{}
		if inherit {
			w, h = doc.TreeSize[0], doc.TreeSize[1]
		}
		if w == 0 {
			w = 612
		}
		if h == 0 {
			h = 792
		}

		content := p.Content
		if content == "" {
			content = lines(p.Lines, h)
		}

		var xobjects strings.Builder
		for j, img := range p.Images {
			ref := o.alloc()
			data := bytes.Repeat([]byte{0x80}, img.Width*img.Height*3)
			o.set(ref, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream",
				img.Width, img.Height, len(data), data)
			fmt.Fprintf(&xobjects, " /Im%d %d 0 R", j+1, ref)
			content += fmt.Sprintf("\nq %g 0 0 %g %g %g cm /Im%d Do Q", img.W, img.H, img.X, img.Y, j+1)
		}

		stream := o.alloc()
		o.set(stream, "<< /Length %d >>\nstream\n%s\nendstream", len(content), content)

		resources := fmt.Sprintf("<< /Font << /F1 %d 0 R >>", font)
		if xobjects.Len() > 0 {
			resources += " /XObject <<" + xobjects.String() + " >>"
		}
		resources += " >>"

		rotate := ""
		if p.Rotate != 0 {
			rotate = fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		mediaBox := ""
		if !inherit {
			mediaBox = fmt.Sprintf(" /MediaBox [0 0 %g %g]", w, h)
		}
		o.set(pageRefs[i], "<< /Type /Page /Parent %d 0 R%s%s /Resources %s /Contents %d 0 R >>",
			pages, mediaBox, rotate, resources, stream)
	}

	kids := make([]string, len(pageRefs))
	for i, ref := range pageRefs {
		kids[i] = fmt.Sprintf("%d 0 R", ref)
	}
	tree := ""
	if doc.TreeSize != [2]float64{} {
		tree += fmt.Sprintf(" /MediaBox [0 0 %g %g]", doc.TreeSize[0], doc.TreeSize[1])
	}
	if doc.TreeRotate != 0 {
		tree += fmt.Sprintf(" /Rotate %d", doc.TreeRotate)
	}
	o.set(pages, "<< /Type /Pages /Kids [%s] /Count %d%s >>", strings.Join(kids, " "), len(pageRefs), tree)

	outlines := ""
	if len(doc.Outline) > 0 {
		root := o.alloc()
		first, last, count := outlineLevel(&o, root, doc.Outline, pageRefs)
		o.set(root, "<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>", first, last, count)
		outlines = fmt.Sprintf(" /Outlines %d 0 R", root)
	}
	o.set(catalog, "<< /Type /Catalog /Pages %d 0 R%s >>", pages, outlines)

	version := doc.Version
	if version == "" {
		version = "1.4"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	offsets := make([]int, len(o.bodies))
	for i, body := range o.bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(o.bodies)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(o.bodies)+1, catalog, info, xref)
	return buf.Bytes()
}

func outlineLevel(o *objects, parent int, items []Bookmark, pageRefs []int) (first, last, count int) {
	refs := make([]int, len(items))
	for i := range items {
		refs[i] = o.alloc()
	}
	for i, item := range items {
		var entry strings.Builder
		fmt.Fprintf(&entry, "<< /Title %s /Parent %d 0 R", literal(item.Title), parent)
		if i > 0 {
			fmt.Fprintf(&entry, " /Prev %d 0 R", refs[i-1])
		}
		if i < len(items)-1 {
			fmt.Fprintf(&entry, " /Next %d 0 R", refs[i+1])
		}
		if item.Page >= 1 && item.Page <= len(pageRefs) {
			fmt.Fprintf(&entry, " /Dest [%d 0 R /Fit]", pageRefs[item.Page-1])
		}
		if len(item.Children) > 0 {
			f, l, c := outlineLevel(o, refs[i], item.Children, pageRefs)
			fmt.Fprintf(&entry, " /First %d 0 R /Last %d 0 R /Count %d", f, l, c)
		}
		entry.WriteString(" >>")
		o.set(refs[i], "%s", entry.String())
	}
	return refs[0], refs[len(refs)-1], len(items)
}

func lines(text []string, height float64) string {
	var b strings.Builder
	y := height - 72
	for _, line := range text {
		fmt.Fprintf(&b, "BT /F1 12 Tf 72 %g Td %s Tj ET\n", y, literal(line))
		y -= 16
	}
	return b.String()
}

// literal encodes s as a PDF literal string
func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return "(" + r.Replace(s) + ")"
}
