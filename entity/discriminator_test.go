package entity_test

import (
	"testing"

	"github.com/halvard/ddbexpr/entity"
)

func TestNewDiscriminator_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		pattern  string
		strategy entity.MatchStrategy
		text     string
	}{
		{"exact value", "ORDER", "", entity.MatchExact, "ORDER"},
		{"pattern without wildcards is exact", "", "ORDER", entity.MatchExact, "ORDER"},
		{"prefix", "", "ORDER#*", entity.MatchStartsWith, "ORDER#"},
		{"suffix", "", "*#ORDER", entity.MatchEndsWith, "#ORDER"},
		{"contains", "", "*ORDER*", entity.MatchContains, "ORDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := entity.NewDiscriminator("sk", tt.value, tt.pattern)
			if err != nil {
				t.Fatalf("NewDiscriminator: %v", err)
			}
			if d.Strategy() != tt.strategy {
				t.Errorf("Strategy() = %q, want %q", d.Strategy(), tt.strategy)
			}
			if d.Text() != tt.text {
				t.Errorf("Text() = %q, want %q", d.Text(), tt.text)
			}
		})
	}
}

func TestNewDiscriminator_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		value   string
		pattern string
	}{
		{"no attribute", "", "ORDER", ""},
		{"neither value nor pattern", "sk", "", ""},
		{"both value and pattern", "sk", "ORDER", "ORDER#*"},
		{"three wildcards", "sk", "", "*A*B*"},
		{"unanchored wildcard", "sk", "", "ORDER*001"},
		{"only wildcards", "sk", "", "**"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := entity.NewDiscriminator(tt.attr, tt.value, tt.pattern); err == nil {
				t.Errorf("NewDiscriminator(%q, %q, %q) accepted invalid config", tt.attr, tt.value, tt.pattern)
			}
		})
	}
}

func TestDiscriminator_Matches(t *testing.T) {
	tests := []struct {
		pattern string
		accepts []string
		rejects []string
	}{
		{"ORDER#*", []string{"ORDER#001", "ORDER#"}, []string{"PRODUCT#001", "XORDER#1", ""}},
		{"*#V1", []string{"ORDER#V1", "#V1"}, []string{"ORDER#V2", "V1#ORDER"}},
		{"*ORDER*", []string{"ORDER", "XORDERX", "AORDER"}, []string{"ORD", "order"}},
		{"METADATA", []string{"METADATA"}, []string{"METADATA2", "META"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			d, err := entity.NewDiscriminator("sk", "", tt.pattern)
			if err != nil {
				t.Fatalf("NewDiscriminator: %v", err)
			}
			for _, s := range tt.accepts {
				if !d.Matches(s) {
					t.Errorf("Matches(%q) = false, want true", s)
				}
			}
			for _, s := range tt.rejects {
				if d.Matches(s) {
					t.Errorf("Matches(%q) = true, want false", s)
				}
			}
		})
	}
}
