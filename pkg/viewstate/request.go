package viewstate

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned for action types clients may not dispatch
var ErrUnknownAction = errors.New("unknown action")

// ActionRequest is the wire form of a user action
type ActionRequest struct {
	Type string   `json:"type"`
	Page int      `json:"page,omitempty"`
	Tab  Tab      `json:"tab,omitempty"`
	Mode TextMode `json:"mode,omitempty"`
}

// Action converts the request into an Action. Load actions are issued by
// the controller only and are rejected here.
func (r ActionRequest) Action() (Action, error) {
	switch r.Type {
	case NextPage{}.Type():
		return NextPage{}, nil
	case PrevPage{}.Type():
		return PrevPage{}, nil
	case GoToPage{}.Type():
		return GoToPage{Page: r.Page}, nil
	case ZoomIn{}.Type():
		return ZoomIn{}, nil
	case ZoomOut{}.Type():
		return ZoomOut{}, nil
	case SelectTab{}.Type():
		if !r.Tab.Valid() {
			return nil, fmt.Errorf("invalid tab: %q", r.Tab)
		}
		return SelectTab{Tab: r.Tab}, nil
	case SetTextMode{}.Type():
		if !r.Mode.Valid() {
			return nil, fmt.Errorf("invalid text mode: %q", r.Mode)
		}
		return SetTextMode{Mode: r.Mode}, nil
	case NextTextPage{}.Type():
		return NextTextPage{}, nil
	case PrevTextPage{}.Type():
		return PrevTextPage{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, r.Type)
}
