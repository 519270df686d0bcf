// Package actions turns user-declared action descriptors into executable
// actions and resolves which of them a context menu shows for an entry.
package actions

import (
	"math"
	"slices"

	"go.klb.dev/clipone/internal/category"
)

// Kind selects how a descriptor's command is interpreted.
type Kind string

const (
	KindURL     Kind = "url-template"
	KindShell   Kind = "shell-template"
	KindScript  Kind = "script-template"
	KindBuiltin Kind = "built-in"
)

// Placeholder is replaced by the (percent-encoded) entry content in URL
// templates.
const Placeholder = "CONTENT"

// NoPriority is the sort key of descriptors without a priority, so they sort
// after every prioritised action.
const NoPriority = math.MaxInt

// Descriptor is a persisted, user-editable action rule.
type Descriptor struct {
	ID          string              `mapstructure:"id" json:"id" validate:"required"`
	Label       string              `mapstructure:"label" json:"label" validate:"required"`
	Icon        string              `mapstructure:"icon" json:"icon,omitempty"`
	Description string              `mapstructure:"description" json:"description,omitempty"`
	Enabled     bool                `mapstructure:"enabled" json:"enabled"`
	Priority    *int                `mapstructure:"priority" json:"priority,omitempty"`
	Keywords    []string            `mapstructure:"keywords" json:"keywords,omitempty"`
	Kind        Kind                `mapstructure:"kind" json:"kind" validate:"required,oneof=url-template shell-template script-template built-in"`
	Command     string              `mapstructure:"command" json:"command,omitempty" validate:"required_if=Kind url-template"`
	Categories  []category.Category `mapstructure:"categories" json:"categories" validate:"required,min=1,dive,oneof=text url html image files"`
}

// SortKey returns the priority, or NoPriority when unset.
func (d Descriptor) SortKey() int {
	if d.Priority == nil {
		return NoPriority
	}
	return *d.Priority
}

// Allows reports whether c is one of the descriptor's categories.
func (d Descriptor) Allows(c category.Category) bool {
	return slices.Contains(d.Categories, c)
}

// Priority returns a pointer to p, for building descriptors in code.
func Priority(p int) *int { return &p }
