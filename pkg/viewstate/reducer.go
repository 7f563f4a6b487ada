package viewstate

// Action is an event applied to the view state
type Action interface {
	// Type names the action, as used by the HTTP API
	Type() string
}

type (
	// LoadStarted marks an accepted upload; the old document is gone
	LoadStarted struct{}
	// LoadSucceeded shows the first page of a new document
	LoadSucceeded struct{ PageCount int }
	// LoadFailed leaves the viewer empty with an error message
	LoadFailed struct{ Err string }

	NextPage     struct{}
	PrevPage     struct{}
	GoToPage     struct{ Page int }
	ZoomIn       struct{}
	ZoomOut      struct{}
	SelectTab    struct{ Tab Tab }
	SetTextMode  struct{ Mode TextMode }
	NextTextPage struct{}
	PrevTextPage struct{}
	Reset        struct{}
)

func (LoadStarted) Type() string   { return "load_started" }
func (LoadSucceeded) Type() string { return "load_succeeded" }
func (LoadFailed) Type() string    { return "load_failed" }
func (NextPage) Type() string      { return "next_page" }
func (PrevPage) Type() string      { return "prev_page" }
func (GoToPage) Type() string      { return "go_to_page" }
func (ZoomIn) Type() string        { return "zoom_in" }
func (ZoomOut) Type() string       { return "zoom_out" }
func (SelectTab) Type() string     { return "select_tab" }
func (SetTextMode) Type() string   { return "set_text_mode" }
func (NextTextPage) Type() string  { return "next_text_page" }
func (PrevTextPage) Type() string  { return "prev_text_page" }
func (Reset) Type() string         { return "reset" }

// Reduce returns the state that follows s after a. It has no side effects.
// Actions that do not apply, such as paging past the last page, return s
// unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadStarted:
		next := Initial()
		next.Tab = s.Tab
		next.Scale = s.Scale
		next.TextMode = s.TextMode
		next.Loading = true
		return next

	case LoadSucceeded:
		if a.PageCount < 0 {
			return s
		}
		s.Loading = false
		s.Loaded = true
		s.LoadError = ""
		s.PageCount = a.PageCount
		s.Page = min(1, a.PageCount)
		s.TextPage = s.Page
		return s

	case LoadFailed:
		s.Loading = false
		s.Loaded = false
		s.LoadError = a.Err
		s.Page = 0
		s.PageCount = 0
		s.TextPage = 0
		return s

	case NextPage:
		if s.CanNext() {
			s.Page++
		}
		return s

	case PrevPage:
		if s.CanPrev() {
			s.Page--
		}
		return s

	case GoToPage:
		if s.Loaded && a.Page >= 1 && a.Page <= s.PageCount {
			s.Page = a.Page
		}
		return s

	case ZoomIn:
		s.Scale = clampScale(s.Scale + ScaleStep)
		return s

	case ZoomOut:
		s.Scale = clampScale(s.Scale - ScaleStep)
		return s

	case SelectTab:
		if a.Tab.Valid() {
			s.Tab = a.Tab
		}
		return s

	case SetTextMode:
		if a.Mode.Valid() {
			s.TextMode = a.Mode
		}
		return s

	case NextTextPage:
		if s.CanNextText() {
			s.TextPage++
		}
		return s

	case PrevTextPage:
		if s.CanPrevText() {
			s.TextPage--
		}
		return s

	case Reset:
		return Initial()
	}

	return s
}
