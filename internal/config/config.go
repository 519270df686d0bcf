// Package config is the configuration boundary: daemon and session settings
// plus the user's action descriptors, read through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/actions"
	"go.klb.dev/clipone/internal/history"
	"go.klb.dev/clipone/internal/menu"
	"go.klb.dev/clipone/internal/monitor"
	"go.klb.dev/clipone/internal/store"
)

// Keys read by Load. Flags of the same name override them.
const (
	KeyHistoryLimit      = "history-limit"
	KeyReconcileInterval = "reconcile-interval"
	KeyMenuPadding       = "menu-padding"
	KeyDB                = "db"
	KeyMaxItems          = "max-items"
	KeyListen            = "listen"
	KeyToken             = "token"
	KeySource            = "source"
	KeyAutostart         = "autostart"
	KeyHeadless          = "headless"
	KeyActions           = "actions"
)

// DefaultMaxItems is how many non-favorite entries the daemon keeps.
const DefaultMaxItems = 1000

// Settings is the resolved configuration.
type Settings struct {
	HistoryLimit      int           `mapstructure:"history-limit" validate:"gte=1"`
	ReconcileInterval time.Duration `mapstructure:"reconcile-interval" validate:"gt=0"`
	MenuPadding       float64       `mapstructure:"menu-padding" validate:"gte=0"`
	DB                string        `mapstructure:"db" validate:"required"`
	MaxItems          int           `mapstructure:"max-items" validate:"gte=0"` // 0 keeps everything
	Listen            string        `mapstructure:"listen" validate:"omitempty,hostname_port"`
	Token             string        `mapstructure:"token"`
	Source            string        `mapstructure:"source"`
	Autostart         bool          `mapstructure:"autostart"`
	Headless          bool          `mapstructure:"headless"`

	Actions []actions.Descriptor `mapstructure:"-"`
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHistoryLimit, history.DefaultLimit)
	v.SetDefault(KeyReconcileInterval, monitor.DefaultInterval)
	v.SetDefault(KeyMenuPadding, menu.DefaultPadding)
	v.SetDefault(KeyDB, store.DefaultPath())
	v.SetDefault(KeyMaxItems, DefaultMaxItems)
	v.SetDefault(KeyAutostart, true)
}

// Load decodes and validates the settings and actions in v.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validateSettings(&s); err != nil {
		return nil, err
	}

	ds, err := LoadActions(v)
	if err != nil {
		return nil, err
	}
	s.Actions = ds
	return &s, nil
}

// LoadActions decodes the [[actions]] tables in v. A descriptor without an
// enabled key is enabled. When no actions are configured the default set is
// returned.
func LoadActions(v *viper.Viper) ([]actions.Descriptor, error) {
	raw := v.Get(KeyActions)
	if raw == nil {
		return actions.Defaults(), nil
	}
	tables, ok := raw.([]any)
	if !ok {
		if maps, isMaps := raw.([]map[string]any); isMaps {
			for _, m := range maps {
				tables = append(tables, m)
			}
		} else {
			return nil, fmt.Errorf("config: %s must be an array of tables, got %T", KeyActions, raw)
		}
	}
	if len(tables) == 0 {
		return actions.Defaults(), nil
	}

	ds := make([]actions.Descriptor, 0, len(tables))
	for i, t := range tables {
		m, ok := t.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("config: %s #%d is %T, not a table", KeyActions, i, t)
		}
		d, err := decodeDescriptor(m)
		if err != nil {
			return nil, fmt.Errorf("config: %s #%d: %w", KeyActions, i, err)
		}
		ds = append(ds, d)
	}

	if err := actions.Validate(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func decodeDescriptor(m map[string]any) (actions.Descriptor, error) {
	fields := make(map[string]any, len(m)+1)
	for k, v := range m {
		fields[strings.ToLower(k)] = v
	}
	if _, ok := fields["enabled"]; !ok {
		fields["enabled"] = true
	}

	var d actions.Descriptor
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &d,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return d, err
	}
	if err := dec.Decode(fields); err != nil {
		return d, err
	}
	return d, nil
}

var validate = validator.New()

func validateSettings(s *Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("%s failed rule '%s'", e.Field(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
}
