package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		d := sl.Current().Interface().(Descriptor)
		if d.Kind == KindURL && d.Command != "" && !strings.Contains(d.Command, Placeholder) {
			sl.ReportError(d.Command, "Command", "command", "placeholder", Placeholder)
		}
		// Disabled built-ins may name handlers that do not exist yet.
		if d.Kind == KindBuiltin && d.Enabled && !IsBuiltin(d.ID) {
			sl.ReportError(d.ID, "ID", "id", "builtin", "")
		}
	}, Descriptor{})
	return v
}

// Validate checks every descriptor and that ids are unique. All problems are
// reported together.
func Validate(ds []Descriptor) error {
	var msgs []string
	seen := make(map[string]int, len(ds))

	for i, d := range ds {
		name := d.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if j, dup := seen[d.ID]; dup && d.ID != "" {
			msgs = append(msgs, fmt.Sprintf("action %s: duplicate id (first at #%d)", name, j))
		} else {
			seen[d.ID] = i
		}

		err := validate.Struct(d)
		if err == nil {
			continue
		}
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return fmt.Errorf("validate action %s: %w", name, err)
		}
		for _, e := range errs {
			msg := fmt.Sprintf("action %s: %s failed rule '%s'", name, e.Field(), e.Tag())
			if e.Param() != "" {
				msg += fmt.Sprintf(" (expected: %s)", e.Param())
			}
			msgs = append(msgs, msg)
		}
	}

	if len(msgs) > 0 {
		return fmt.Errorf("invalid actions:\n  %s", strings.Join(msgs, "\n  "))
	}
	return nil
}
