package viewstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(pages int) State {
	return Reduce(Reduce(Initial(), LoadStarted{}), LoadSucceeded{PageCount: pages})
}

func TestInitial(t *testing.T) {
	s := Initial()
	assert.Equal(t, TabViewer, s.Tab)
	assert.Equal(t, 1.0, s.Scale)
	assert.Equal(t, TextModeDocument, s.TextMode)
	assert.False(t, s.Loaded)
	assert.False(t, s.CanNext())
	assert.False(t, s.CanPrev())
}

func TestLoadLifecycle(t *testing.T) {
	s := Reduce(Initial(), SelectTab{Tab: TabText})
	s = Reduce(s, ZoomIn{})

	s = Reduce(s, LoadStarted{})
	assert.True(t, s.Loading)
	assert.False(t, s.Loaded)
	assert.Equal(t, 0, s.PageCount)
	// tab and zoom survive a new upload
	assert.Equal(t, TabText, s.Tab)
	assert.Equal(t, 1.2, s.Scale)

	ok := Reduce(s, LoadSucceeded{PageCount: 3})
	assert.False(t, ok.Loading)
	assert.True(t, ok.Loaded)
	assert.Equal(t, 1, ok.Page)
	assert.Equal(t, 1, ok.TextPage)
	assert.Equal(t, 3, ok.PageCount)

	failed := Reduce(s, LoadFailed{Err: "malformed PDF"})
	assert.False(t, failed.Loading)
	assert.False(t, failed.Loaded)
	assert.Equal(t, "malformed PDF", failed.LoadError)
	assert.Equal(t, 0, failed.Page)

	retried := Reduce(Reduce(failed, LoadStarted{}), LoadSucceeded{PageCount: 1})
	assert.Empty(t, retried.LoadError)
}

func TestPageNavigation(t *testing.T) {
	s := loaded(3)

	assert.True(t, s.CanNext())
	assert.False(t, s.CanPrev())
	assert.Equal(t, s, Reduce(s, PrevPage{}))

	s = Reduce(s, NextPage{})
	s = Reduce(s, NextPage{})
	assert.Equal(t, 3, s.Page)
	assert.False(t, s.CanNext())

	// next at the last page is refused
	assert.Equal(t, s, Reduce(s, NextPage{}))

	s = Reduce(s, PrevPage{})
	assert.Equal(t, 2, s.Page)
}

func TestGoToPage(t *testing.T) {
	s := loaded(5)
	tests := []struct {
		page int
		want int
	}{
		{page: 4, want: 4},
		{page: 5, want: 5},
		{page: 0, want: 1},
		{page: 6, want: 1},
		{page: -2, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reduce(s, GoToPage{Page: tt.page}).Page, "page %d", tt.page)
	}

	notLoaded := Initial()
	assert.Equal(t, notLoaded, Reduce(notLoaded, GoToPage{Page: 1}))
}

func TestZoom(t *testing.T) {
	s := Initial()
	var scales []float64
	for i := 0; i < 12; i++ {
		s = Reduce(s, ZoomIn{})
		scales = append(scales, s.Scale)
	}
	assert.Equal(t, []float64{1.2, 1.4, 1.6, 1.8, 2, 2.2, 2.4, 2.6, 2.8, 3, 3, 3}, scales)
	assert.False(t, s.CanZoomIn())
	assert.True(t, s.CanZoomOut())

	for i := 0; i < 20; i++ {
		s = Reduce(s, ZoomOut{})
	}
	assert.Equal(t, 0.5, s.Scale)
	assert.False(t, s.CanZoomOut())

	s = Reduce(s, ZoomIn{})
	assert.Equal(t, 0.7, s.Scale)
}

func TestSelectTab(t *testing.T) {
	s := Initial()
	for _, tab := range Tabs {
		assert.Equal(t, tab, Reduce(s, SelectTab{Tab: tab}).Tab)
	}
	assert.Equal(t, s, Reduce(s, SelectTab{Tab: "settings"}))
}

func TestTextPaging(t *testing.T) {
	s := loaded(2)

	// page-by-page controls only apply in page mode
	assert.Equal(t, s, Reduce(s, NextTextPage{}))

	s = Reduce(s, SetTextMode{Mode: TextModePage})
	assert.Equal(t, TextModePage, s.TextMode)
	assert.True(t, s.CanNextText())
	assert.False(t, s.CanPrevText())

	s = Reduce(s, NextTextPage{})
	assert.Equal(t, 2, s.TextPage)
	assert.Equal(t, s, Reduce(s, NextTextPage{}))

	s = Reduce(s, PrevTextPage{})
	assert.Equal(t, 1, s.TextPage)

	// the viewer page is independent of the text page
	assert.Equal(t, 1, s.Page)

	assert.Equal(t, s, Reduce(s, SetTextMode{Mode: "chapters"}))
}

func TestReset(t *testing.T) {
	s := Reduce(loaded(4), ZoomIn{})
	assert.Equal(t, Initial(), Reduce(s, Reset{}))
}

type unknownAction struct{}

func (unknownAction) Type() string { return "unknown" }

func TestUnknownActionIsNoop(t *testing.T) {
	s := loaded(2)
	assert.Equal(t, s, Reduce(s, unknownAction{}))
	assert.Equal(t, s, Reduce(s, nil))
}

func TestActionRequest(t *testing.T) {
	tests := []struct {
		req     ActionRequest
		want    Action
		wantErr bool
	}{
		{req: ActionRequest{Type: "next_page"}, want: NextPage{}},
		{req: ActionRequest{Type: "prev_page"}, want: PrevPage{}},
		{req: ActionRequest{Type: "go_to_page", Page: 3}, want: GoToPage{Page: 3}},
		{req: ActionRequest{Type: "zoom_in"}, want: ZoomIn{}},
		{req: ActionRequest{Type: "zoom_out"}, want: ZoomOut{}},
		{req: ActionRequest{Type: "select_tab", Tab: TabImages}, want: SelectTab{Tab: TabImages}},
		{req: ActionRequest{Type: "set_text_mode", Mode: TextModePage}, want: SetTextMode{Mode: TextModePage}},
		{req: ActionRequest{Type: "next_text_page"}, want: NextTextPage{}},
		{req: ActionRequest{Type: "prev_text_page"}, want: PrevTextPage{}},
		{req: ActionRequest{Type: "select_tab", Tab: "bogus"}, wantErr: true},
		{req: ActionRequest{Type: "set_text_mode"}, wantErr: true},
		{req: ActionRequest{Type: "load_succeeded"}, wantErr: true},
		{req: ActionRequest{Type: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.req.Type, func(t *testing.T) {
			got, err := tt.req.Action()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
