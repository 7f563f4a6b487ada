package engine

import (
	"bytes"
	"fmt"

	gopdf "github.com/dslipak/pdf"
)

// dslipakSource reads text with dslipak/pdf. It is the fallback for
// documents ledongthuc cannot parse and exposes no drawing operations.
type dslipakSource struct {
	reader *gopdf.Reader
}

// openDslipak opens a PDF held in memory with the dslipak/pdf library
func openDslipak(data []byte) (src *dslipakSource, err error) {
	defer recoverError(&err, "open PDF with dslipak")

	r, err := gopdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with dslipak: %w", err)
	}
	return &dslipakSource{reader: r}, nil
}

func (s *dslipakSource) backend() string {
	return BackendDslipak
}

func (s *dslipakSource) pageCount() int {
	return s.reader.NumPage()
}

func (s *dslipakSource) pageText(number int) (glyphs []glyph, err error) {
	defer recoverError(&err, "extract text")

	page := s.reader.Page(number)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d not found in page tree", number)
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

// pageBox walks the page tree for an inherited MediaBox, since the
// library exposes no accessor for it
func (s *dslipakSource) pageBox(number int) (box pageBox, err error) {
	defer recoverError(&err, "read page box")

	page := s.reader.Page(number)
	if page.V.IsNull() {
		return pageBox{}, fmt.Errorf("page %d not found in page tree", number)
	}

	box = defaultPageBox
	mediaBox := inheritedDslipak(page.V, "MediaBox")
	if mediaBox.Kind() == gopdf.Array && mediaBox.Len() == 4 {
		box.width = abs(mediaBox.Index(2).Float64() - mediaBox.Index(0).Float64())
		box.height = abs(mediaBox.Index(3).Float64() - mediaBox.Index(1).Float64())
	}
	if rotate := inheritedDslipak(page.V, "Rotate"); rotate.Kind() == gopdf.Integer {
		box.rotate = int(rotate.Int64())
	}
	return box, nil
}

func inheritedDslipak(v gopdf.Value, key string) gopdf.Value {
	for depth := 0; v.Kind() == gopdf.Dict && depth < 64; depth++ {
		if found := v.Key(key); found.Kind() != gopdf.Null {
			return found
		}
		v = v.Key("Parent")
	}
	return gopdf.Value{}
}

func (s *dslipakSource) info() (md Metadata, err error) {
	defer recoverError(&err, "read info dictionary")

	trailer := s.reader.Trailer()
	info := trailer.Key("Info")
	get := func(key string) string {
		v := info.Key(key)
		if v.Kind() == gopdf.Name {
			return v.Name()
		}
		return v.Text()
	}
	md = metadataFromInfo(get, info.Keys())
	md.Encrypted = trailer.Key("Encrypt").Kind() != gopdf.Null
	return md, nil
}
