package actions

import (
	"cmp"
	"slices"
	"strings"

	"go.klb.dev/clipone/internal/entry"
)

// DefaultCap is how many actions a compact menu shows before "show more".
const DefaultCap = 3

// Menu is a resolved menu body.
type Menu struct {
	Visible []*Action
	HasMore bool
}

// Resolve picks the actions shown for view. Actions are filtered by the
// view's format and content, then by query, and sorted by priority with ties
// kept in input order. Without a query and without showAll the list is cut
// to DefaultCap and HasMore reports the cut.
func Resolve(view entry.View, all []*Action, query string, showAll bool) Menu {
	matched := make([]*Action, 0, len(all))
	for _, a := range all {
		if a.Matches(view.Content, view.Format) {
			matched = append(matched, a)
		}
	}

	q := strings.TrimSpace(query)
	if q != "" {
		matched = Search(matched, q)
	}

	slices.SortStableFunc(matched, func(a, b *Action) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})

	if q != "" || showAll || len(matched) <= DefaultCap {
		return Menu{Visible: matched}
	}
	return Menu{Visible: matched[:DefaultCap], HasMore: true}
}

// Search keeps actions whose label or any keyword contains query,
// case-insensitively. A blank query keeps everything.
func Search(actions []*Action, query string) []*Action {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return actions
	}
	out := make([]*Action, 0, len(actions))
	for _, a := range actions {
		if strings.Contains(strings.ToLower(a.Label()), q) ||
			slices.ContainsFunc(a.Keywords(), func(k string) bool {
				return strings.Contains(strings.ToLower(k), q)
			}) {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the action with id.
func Find(actions []*Action, id string) (*Action, bool) {
	i := slices.IndexFunc(actions, func(a *Action) bool { return a.ID() == id })
	if i < 0 {
		return nil, false
	}
	return actions[i], true
}
