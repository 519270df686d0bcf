// Package menu positions context menus inside the viewport and holds the
// per-interaction menu state.
package menu

import "go.klb.dev/clipone/internal/entry"

// Defaults used when the host has not measured the menu yet.
const (
	DefaultWidth   = 200
	DefaultHeight  = 300
	DefaultPadding = 8
)

// Point is a position in viewport pixels.
type Point struct {
	X, Y float64
}

// Size is a width and height in viewport pixels.
type Size struct {
	W, H float64
}

// Place returns the top-left corner for a box of size box opened at anchor.
//
// The box flips to the other side of the anchor when it would cross the far
// edge, then both axes are clamped to the padded viewport. The result fits
// whenever the box is no larger than the viewport minus twice the padding;
// otherwise it is pinned to the near padding.
func Place(anchor Point, box, viewport Size, padding float64) Point {
	return Point{
		X: placeAxis(anchor.X, box.W, viewport.W, padding),
		Y: placeAxis(anchor.Y, box.H, viewport.H, padding),
	}
}

func placeAxis(anchor, length, extent, padding float64) float64 {
	pos := anchor
	if pos+length > extent-padding {
		pos = max(padding, anchor-length)
	}
	if pos < padding {
		pos = padding
	}
	// A flip near one edge can push a large box past the other one.
	if pos+length > extent-padding {
		pos = max(padding, extent-length-padding)
	}
	return pos
}

// State is the context menu for one interaction.
type State struct {
	Visible bool
	Origin  Point // pointer anchor
	Pos     Point // resolved top-left
	Item    *entry.Entry
}

// Open shows the menu for item at anchor.
func (s *State) Open(item entry.Entry, anchor Point, box, viewport Size, padding float64) {
	s.Visible = true
	s.Origin = anchor
	s.Pos = Place(anchor, box, viewport, padding)
	s.Item = &item
}

// Close hides the menu and forgets its target.
func (s *State) Close() {
	*s = State{}
}
