// Command pdfinspect prints what the viewer sees in a PDF file: metadata,
// text, outline and images, and can render a page preview to PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	pdfviewer "github.com/pyhub-apps/pdfviewer-golang"
	"github.com/pyhub-apps/pdfviewer-golang/internal/logging"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/session"
)

// maxValueWidth truncates long metadata values in the table
const maxValueWidth = 60

type options struct {
	path       string
	text       bool
	page       int
	outline    bool
	images     bool
	render     int
	scale      float64
	output     string
	backend    string
	password   string
	validation string
	renderer   string
	verbose    bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "pdfinspect: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pdfinspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: pdfinspect [flags] <pdf_file>")
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.text, "text", false, "print the extracted text")
	fs.IntVar(&opts.page, "page", 0, "limit -text to one page (1-based)")
	fs.BoolVar(&opts.outline, "outline", false, "print the bookmark tree")
	fs.BoolVar(&opts.images, "images", false, "list the images painted on each page")
	fs.IntVar(&opts.render, "render", 0, "render this page (1-based) to a PNG file")
	fs.Float64Var(&opts.scale, "scale", 1.0, "render scale")
	fs.StringVar(&opts.output, "o", "page.png", "output file for -render")
	fs.StringVar(&opts.backend, "backend", engine.BackendAuto, "text backend: auto, ledongthuc or dslipak")
	fs.StringVar(&opts.password, "password", "", "password for encrypted documents")
	fs.StringVar(&opts.validation, "validation", engine.ValidationRelaxed, "structure validation: strict, relaxed or off")
	fs.StringVar(&opts.renderer, "renderer", engine.RendererPreview, "page renderer: preview or mupdf (needs -tags fitz)")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("expected exactly one PDF file")
	}
	opts.path = fs.Arg(0)
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logCfg := logging.Config{Level: "warn", Format: logging.FormatText}
	if opts.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.NewWithOutput(logCfg, stderr)
	if err != nil {
		return err
	}

	cfg := pdfviewer.DefaultConfig()
	cfg.TextBackend = opts.backend
	cfg.Password = opts.password
	cfg.Validation = opts.validation
	cfg.Renderer = opts.renderer

	doc, err := pdfviewer.OpenWithConfig(ctx, opts.path, cfg, logger)
	if err != nil {
		return err
	}
	defer doc.Close()

	fmt.Fprintf(stdout, "Document: %s (%d pages, %d bytes)\n\n", doc.Name, doc.PageCount, doc.Size)
	printMetadata(stdout, doc.Metadata, doc.PageCount)

	if opts.text {
		if err := printText(stdout, doc, opts.page); err != nil {
			return err
		}
	}
	if opts.outline {
		printOutline(ctx, stdout, doc)
	}
	if opts.images {
		printImages(ctx, stdout, doc)
	}
	if opts.render > 0 {
		if err := renderPage(ctx, doc, opts.render, opts.scale, opts.output); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Rendered page %d at %.2fx to %s\n", opts.render, opts.scale, opts.output)
	}
	return nil
}

func printMetadata(w io.Writer, md pdfviewer.Metadata, pageCount int) {
	rows := pdfviewer.MetadataRows(md, pageCount)
	width := 0
	for _, row := range rows {
		width = max(width, runewidth.StringWidth(row.Key))
	}

	fmt.Fprintln(w, "Metadata")
	for _, row := range rows {
		value := runewidth.Truncate(strings.TrimSpace(row.Value), maxValueWidth, "...")
		fmt.Fprintf(w, "  %s  %s\n", runewidth.FillRight(row.Key, width), value)
	}
	fmt.Fprintln(w)
}

func printText(w io.Writer, doc *pdfviewer.Session, page int) error {
	if page > 0 {
		p, err := doc.Page(page)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "=== Page %d ===\n%s\n\n", p.Number, pdfviewer.TextOf(p))
		return nil
	}

	for _, p := range doc.Pages {
		fmt.Fprintf(w, "=== Page %d ===\n", p.Number)
		if text := pdfviewer.TextOf(p); strings.TrimSpace(text) != "" {
			fmt.Fprintln(w, text)
		} else {
			fmt.Fprintln(w, "No text found on this page")
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printOutline(ctx context.Context, w io.Writer, doc *pdfviewer.Session) {
	nodes, ok := doc.Outline(ctx)
	switch {
	case !ok:
		fmt.Fprintln(w, "Outline: unavailable")
	case len(nodes) == 0:
		fmt.Fprintln(w, "Outline: none")
	default:
		fmt.Fprintf(w, "Outline (%d entries)\n", session.CountNodes(nodes))
		writeOutline(w, nodes, 1)
	}
	fmt.Fprintln(w)
}

func writeOutline(w io.Writer, nodes []pdfviewer.OutlineNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, node := range nodes {
		if node.Dest.Resolved() {
			fmt.Fprintf(w, "%s%s (page %d)\n", indent, node.Title, node.Dest.Page)
		} else {
			fmt.Fprintf(w, "%s%s\n", indent, node.Title)
		}
		writeOutline(w, node.Children, depth+1)
	}
}

func printImages(ctx context.Context, w io.Writer, doc *pdfviewer.Session) {
	images, ok := doc.Images(ctx)
	switch {
	case !ok:
		fmt.Fprintln(w, "Images: unavailable")
	case len(images) == 0:
		fmt.Fprintln(w, "Images: none")
	default:
		fmt.Fprintf(w, "Images (%d)\n", len(images))
		for _, img := range images {
			fmt.Fprintf(w, "  #%d page %d %s %dx%d %s at [%.2f %.2f %.2f %.2f]\n",
				img.Index, img.PageNumber, img.Handle.Name,
				img.Handle.Width, img.Handle.Height, img.Handle.ColorSpace,
				img.BBox.X0, img.BBox.Y0, img.BBox.X1, img.BBox.Y1)
		}
	}
	fmt.Fprintln(w)
}

func renderPage(ctx context.Context, doc *pdfviewer.Session, page int, scale float64, output string) error {
	img, err := doc.RenderPageImage(ctx, page, scale)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", output, err)
	}
	return f.Close()
}
