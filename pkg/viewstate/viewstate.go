// Package viewstate holds the viewer's UI state and the pure reducer that
// moves it from one value to the next.
package viewstate

import "math"

// Tab is a sidebar panel
type Tab string

const (
	TabViewer    Tab = "viewer"
	TabText      Tab = "text"
	TabStructure Tab = "structure"
	TabMetadata  Tab = "metadata"
	TabImages    Tab = "images"
)

// Tabs lists the panels in display order
var Tabs = []Tab{TabViewer, TabText, TabStructure, TabMetadata, TabImages}

// Valid reports whether t is a known tab
func (t Tab) Valid() bool {
	for _, known := range Tabs {
		if t == known {
			return true
		}
	}
	return false
}

// TextMode selects whole-document or single-page text
type TextMode string

const (
	TextModeDocument TextMode = "document"
	TextModePage     TextMode = "page"
)

// Valid reports whether m is a known text mode
func (m TextMode) Valid() bool {
	return m == TextModeDocument || m == TextModePage
}

// Zoom limits
const (
	MinScale     = 0.5
	MaxScale     = 3.0
	ScaleStep    = 0.2
	DefaultScale = 1.0
)

// State is the complete view state. It is a value; Reduce returns a new one.
type State struct {
	Tab       Tab      `json:"tab"`
	Page      int      `json:"page"`
	PageCount int      `json:"page_count"`
	Scale     float64  `json:"scale"`
	Loading   bool     `json:"loading"`
	Loaded    bool     `json:"loaded"`
	LoadError string   `json:"load_error,omitempty"`
	TextMode  TextMode `json:"text_mode"`
	TextPage  int      `json:"text_page"`
}

// Initial returns the state before any document is loaded
func Initial() State {
	return State{
		Tab:      TabViewer,
		Scale:    DefaultScale,
		TextMode: TextModeDocument,
	}
}

// CanNext reports whether the next-page control is enabled
func (s State) CanNext() bool {
	return s.Loaded && s.Page < s.PageCount
}

// CanPrev reports whether the previous-page control is enabled
func (s State) CanPrev() bool {
	return s.Loaded && s.Page > 1
}

// CanZoomIn reports whether the zoom-in control is enabled
func (s State) CanZoomIn() bool {
	return s.Scale < MaxScale
}

// CanZoomOut reports whether the zoom-out control is enabled
func (s State) CanZoomOut() bool {
	return s.Scale > MinScale
}

// CanNextText reports whether the next text page control is enabled
func (s State) CanNextText() bool {
	return s.Loaded && s.TextMode == TextModePage && s.TextPage < s.PageCount
}

// CanPrevText reports whether the previous text page control is enabled
func (s State) CanPrevText() bool {
	return s.Loaded && s.TextMode == TextModePage && s.TextPage > 1
}

// clampScale keeps scale inside the zoom limits, rounded to one decimal
func clampScale(scale float64) float64 {
	scale = math.Round(scale*10) / 10
	return math.Min(MaxScale, math.Max(MinScale, scale))
}
