package entity

import (
	"fmt"
	"strings"
)

// MatchStrategy classifies how a discriminator constrains its attribute.
type MatchStrategy string

const (
	MatchNone       MatchStrategy = "none"
	MatchExact      MatchStrategy = "exact"
	MatchStartsWith MatchStrategy = "startsWith"
	MatchEndsWith   MatchStrategy = "endsWith"
	MatchContains   MatchStrategy = "contains"
	// MatchComplex marks patterns this package refuses to build:
	// more than two wildcards, or a wildcard not anchored at an end.
	MatchComplex MatchStrategy = "complex"
)

// Discriminator distinguishes which logical entity type a physical item
// represents within a shared table or index.
type Discriminator struct {
	attribute string
	strategy  MatchStrategy
	// text is the pattern with its wildcards stripped, or the exact value.
	text string
	raw  string
}

// NewDiscriminator builds a discriminator on the given attribute from
// either an exact value or a wildcard pattern. Exactly one of value and
// pattern must be set: the source system silently preferred value and
// dropped the pattern, which hid configuration mistakes, so supplying
// both is an error here.
//
// Pattern forms: "literal" (implicit exact match), "prefix*", "*suffix",
// "*infix*". Anything else is rejected.
func NewDiscriminator(attribute, value, pattern string) (*Discriminator, error) {
	if attribute == "" {
		return nil, fmt.Errorf("discriminator requires an attribute")
	}
	if value != "" && pattern != "" {
		return nil, fmt.Errorf("discriminator on %q: value %q and pattern %q are mutually exclusive", attribute, value, pattern)
	}
	if value != "" {
		return &Discriminator{attribute: attribute, strategy: MatchExact, text: value, raw: value}, nil
	}
	if pattern == "" {
		return nil, fmt.Errorf("discriminator on %q: value or pattern required", attribute)
	}
	strategy, text, err := classifyPattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("discriminator on %q: %w", attribute, err)
	}
	return &Discriminator{attribute: attribute, strategy: strategy, text: text, raw: pattern}, nil
}

// MustDiscriminator panics on an invalid definition. For startup-time registration.
func MustDiscriminator(attribute, value, pattern string) *Discriminator {
	d, err := NewDiscriminator(attribute, value, pattern)
	if err != nil {
		panic(err)
	}
	return d
}

func classifyPattern(pattern string) (MatchStrategy, string, error) {
	n := strings.Count(pattern, "*")
	switch {
	case n == 0:
		// zero wildcards is an implicit exact match
		return MatchExact, pattern, nil
	case n > 2:
		return MatchComplex, "", fmt.Errorf("pattern %q has %d wildcards, at most 2 supported", pattern, n)
	}
	prefix := strings.HasPrefix(pattern, "*")
	suffix := strings.HasSuffix(pattern, "*")
	stripped := strings.Trim(pattern, "*")
	if strings.Contains(stripped, "*") {
		return MatchComplex, "", fmt.Errorf("pattern %q has an unanchored wildcard", pattern)
	}
	if stripped == "" {
		return MatchComplex, "", fmt.Errorf("pattern %q has no literal text", pattern)
	}
	switch {
	case prefix && suffix:
		return MatchContains, stripped, nil
	case suffix:
		return MatchStartsWith, stripped, nil
	case prefix:
		return MatchEndsWith, stripped, nil
	default:
		// single wildcard neither leading nor trailing
		return MatchComplex, "", fmt.Errorf("pattern %q has an unanchored wildcard", pattern)
	}
}

// Attribute returns the physical attribute the discriminator constrains.
func (d *Discriminator) Attribute() string { return d.attribute }

// Strategy returns the match strategy.
func (d *Discriminator) Strategy() MatchStrategy { return d.strategy }

// Text returns the literal text of the match: the exact value, or the
// pattern with wildcards stripped.
func (d *Discriminator) Text() string { return d.text }

// Pattern returns the raw value or pattern as configured.
func (d *Discriminator) Pattern() string { return d.raw }

// Matches applies the discriminator to a candidate attribute value.
// This is the read-side twin of the filter the compiler generates:
// both must accept exactly the same set of strings.
func (d *Discriminator) Matches(s string) bool {
	switch d.strategy {
	case MatchExact:
		return s == d.text
	case MatchStartsWith:
		return strings.HasPrefix(s, d.text)
	case MatchEndsWith:
		return strings.HasSuffix(s, d.text)
	case MatchContains:
		return strings.Contains(s, d.text)
	default:
		return false
	}
}
