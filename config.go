package formula

import (
	"sort"
	"strconv"
)

// Config holds switches for operators that are disabled by default. The zero
// Config is the default configuration.
type Config struct {
	// In enables the membership operator "x in list", which is true when
	// any element of the array list is strictly equal to x.
	In bool
}

// Enabled returns whether the operator with the given symbol may be parsed
// under c. Operators that are not optional are always enabled; unknown
// symbols are never enabled.
func (c Config) Enabled(sym string) bool {
	op, ok := binops[sym]
	if !ok {
		op, ok = unops[sym]
	}
	switch {
	case !ok:
		return false
	case !op.opt:
		return true
	}
	switch sym {
	case "in":
		return c.In
	default:
		panic("formula: optional operator " + strconv.Quote(sym) + " has no switch")
	}
}

// ConfigFromMap builds a Config from a map of optional operator names to
// whether they are enabled. Names other than optional operators are an error.
func ConfigFromMap(m map[string]bool) (Config, error) {
	var c Config
	for sym, on := range m {
		switch sym {
		case "in":
			c.In = on
		default:
			return Config{}, &ConfigError{Name: sym}
		}
	}
	return c, nil
}

// OptionalOperators returns the names of operators that a Config can enable,
// in sorted order.
func OptionalOperators() []string {
	var r []string
	for k, v := range binops {
		if v.opt {
			r = append(r, k)
		}
	}
	sort.Strings(r)
	return r
}

// enabledBinops returns the binary operators enabled under c.
func (c Config) enabledBinops() map[string]operator {
	m := make(map[string]operator, len(binops))
	for k, v := range binops {
		if c.Enabled(k) {
			m[k] = v
		}
	}
	return m
}

// ConfigError is an error indicating an attempt to configure an operator that
// is not optional.
type ConfigError struct {
	// Name is the operator name that was given.
	Name string
}

func (err *ConfigError) Error() string {
	return "no optional operator " + strconv.Quote(err.Name)
}
