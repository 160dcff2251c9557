package fields

import "fmt"

// Kind discriminates the lookup rule variants.
type Kind int

const (
	// KindAbsent has no extraction rule and always resolves to the sentinel.
	KindAbsent Kind = iota
	// KindDerived is computed from document metadata, without tree traversal.
	KindDerived
	// KindSingle is one namespace-qualified path.
	KindSingle
	// KindFallback is an ordered list of paths; the first present value wins.
	KindFallback
	// KindTagged tries named locations in order and suffixes the value with the
	// matching location's tag.
	KindTagged
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindDerived:
		return "derived"
	case KindSingle:
		return "single"
	case KindFallback:
		return "fallback"
	case KindTagged:
		return "tagged"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Meta is the document metadata available to derived rules.
type Meta struct {
	Name string
}

// DeriveFunc computes a derived field value.
type DeriveFunc func(Meta) string

// Location is one candidate of a tagged rule.
type Location struct {
	Path string
	Tag  string
}

// Rule is the lookup rule of one field. Only the members matching Kind are set.
type Rule struct {
	Kind      Kind
	Derive    DeriveFunc
	Paths     []string
	Locations []Location
}

// Absent returns a rule with no extraction.
func Absent() Rule {
	return Rule{Kind: KindAbsent}
}

// Derived returns a rule computed from document metadata.
func Derived(fn DeriveFunc) Rule {
	return Rule{Kind: KindDerived, Derive: fn}
}

// Single returns a one-path rule.
func Single(path string) Rule {
	return Rule{Kind: KindSingle, Paths: []string{path}}
}

// Fallback returns an ordered multi-path rule.
func Fallback(paths ...string) Rule {
	return Rule{Kind: KindFallback, Paths: append([]string(nil), paths...)}
}

// Tagged returns a location-tagged rule, tried in the given order.
func Tagged(locs ...Location) Rule {
	return Rule{Kind: KindTagged, Locations: append([]Location(nil), locs...)}
}

// AllPaths lists every path the rule may evaluate, in evaluation order.
func (r Rule) AllPaths() []string {
	switch r.Kind {
	case KindSingle, KindFallback:
		return r.Paths
	case KindTagged:
		out := make([]string, 0, len(r.Locations))
		for _, l := range r.Locations {
			out = append(out, l.Path)
		}
		return out
	default:
		return nil
	}
}

func (r Rule) validate() error {
	switch r.Kind {
	case KindAbsent:
		return nil
	case KindDerived:
		if r.Derive == nil {
			return fmt.Errorf("derived rule without function")
		}
	case KindSingle:
		if len(r.Paths) != 1 || r.Paths[0] == "" {
			return fmt.Errorf("single rule needs exactly one path")
		}
	case KindFallback:
		if len(r.Paths) < 2 {
			return fmt.Errorf("fallback rule needs at least two paths, got %d", len(r.Paths))
		}
		for i, p := range r.Paths {
			if p == "" {
				return fmt.Errorf("fallback path %d is empty", i)
			}
		}
	case KindTagged:
		if len(r.Locations) < 2 {
			return fmt.Errorf("tagged rule needs at least two locations, got %d", len(r.Locations))
		}
		for i, l := range r.Locations {
			if l.Path == "" || l.Tag == "" {
				return fmt.Errorf("tagged location %d needs path and tag", i)
			}
		}
	default:
		return fmt.Errorf("unknown rule kind %s", r.Kind)
	}
	return nil
}
