package session

import (
	"context"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
)

// Destination is where a bookmark points. Page is 0 when unresolved.
type Destination struct {
	Page int `json:"page"`
}

// Resolved reports whether the destination names a page
func (d Destination) Resolved() bool {
	return d.Page > 0
}

// OutlineNode is one bookmark of the document outline
type OutlineNode struct {
	Title    string        `json:"title"`
	Dest     Destination   `json:"dest"`
	Children []OutlineNode `json:"children,omitempty"`
}

// Outline returns the bookmark tree. A document without bookmarks gives
// an empty slice and true; an engine failure gives nil and false.
func (s *Session) Outline(ctx context.Context) ([]OutlineNode, bool) {
	items, err := s.handle.Outline(ctx)
	if err != nil {
		s.log.WithError(err).Warn("outline extraction failed")
		return nil, false
	}
	return convertOutline(items), true
}

func convertOutline(items []engine.OutlineItem) []OutlineNode {
	nodes := make([]OutlineNode, 0, len(items))
	for _, item := range items {
		node := OutlineNode{
			Title: item.Title,
			Dest:  Destination{Page: item.Page},
		}
		if len(item.Children) > 0 {
			node.Children = convertOutline(item.Children)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// CountNodes returns the number of nodes in an outline tree
func CountNodes(nodes []OutlineNode) int {
	n := len(nodes)
	for _, node := range nodes {
		n += CountNodes(node.Children)
	}
	return n
}
