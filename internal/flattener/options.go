package flattener

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/jsontab/internal/config"
)

// DefaultSeparator joins path segments into a column name.
const DefaultSeparator = "_"

// ValueColumn holds the value of a top-level array element that is not an object.
const ValueColumn = "value"

// ArrayMode selects how arrays nested inside a record are handled.
type ArrayMode int

const (
	// ArrayAsString writes the whole array as compact JSON into one cell.
	ArrayAsString ArrayMode = iota
	// ArrayAsRows repeats the enclosing record once per element when every
	// element is an object. Other arrays are still written as strings.
	ArrayAsRows
)

func (m ArrayMode) String() string {
	if m == ArrayAsRows {
		return "rows"
	}
	return "string"
}

// ParseArrayMode accepts "string" or "rows".
func ParseArrayMode(s string) (ArrayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string":
		return ArrayAsString, nil
	case "rows":
		return ArrayAsRows, nil
	default:
		return ArrayAsString, fmt.Errorf("unknown array mode %q (want string or rows)", s)
	}
}

// KeyCase rewrites each key segment before segments are joined.
type KeyCase string

const (
	KeyCaseNone       KeyCase = "none"
	KeyCaseSnake      KeyCase = "snake"
	KeyCaseCamel      KeyCase = "camel"
	KeyCaseLowerCamel KeyCase = "lower-camel"
	KeyCaseKebab      KeyCase = "kebab"
)

// ParseKeyCase validates a key case name. The empty string means none.
func ParseKeyCase(s string) (KeyCase, error) {
	switch k := KeyCase(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KeyCaseNone, nil
	case KeyCaseNone, KeyCaseSnake, KeyCaseCamel, KeyCaseLowerCamel, KeyCaseKebab:
		return k, nil
	default:
		return KeyCaseNone, fmt.Errorf("unknown key case %q", s)
	}
}

// Apply converts one key segment.
func (k KeyCase) Apply(key string) string {
	switch k {
	case KeyCaseSnake:
		return strcase.ToSnake(key)
	case KeyCaseCamel:
		return strcase.ToCamel(key)
	case KeyCaseLowerCamel:
		return strcase.ToLowerCamel(key)
	case KeyCaseKebab:
		return strcase.ToKebab(key)
	default:
		return key
	}
}

// Options controls flattening. The zero value is not ready for use; start
// from DefaultOptions.
type Options struct {
	Separator string
	// MaxDepth stops descent at this many nesting levels; nil means unbounded.
	MaxDepth         *int
	ArrayMode        ArrayMode
	DropEmptyColumns bool
	KeyCase          KeyCase
}

// DefaultOptions returns "_" as separator, unbounded depth, arrays as strings.
func DefaultOptions() Options {
	return Options{
		Separator: DefaultSeparator,
		ArrayMode: ArrayAsString,
		KeyCase:   KeyCaseNone,
	}
}

// OptionsFromConfig derives flattening options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}

	// An empty separator is allowed and concatenates segments.
	opts.Separator = cfg.Separator
	if cfg.MaxDepth != nil {
		if *cfg.MaxDepth < 0 {
			return opts, fmt.Errorf("max depth must not be negative, got %d", *cfg.MaxDepth)
		}
		depth := *cfg.MaxDepth
		opts.MaxDepth = &depth
	}
	opts.DropEmptyColumns = cfg.DropEmptyColumns

	mode, err := ParseArrayMode(cfg.Arrays.Mode)
	if err != nil {
		return opts, err
	}
	opts.ArrayMode = mode

	keyCase, err := ParseKeyCase(cfg.Naming.KeyCase)
	if err != nil {
		return opts, err
	}
	opts.KeyCase = keyCase

	return opts, nil
}
