package entity

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Schema is the root of a YAML entity declaration file.
type Schema struct {
	Entities []EntityDecl `yaml:"entities" validate:"required,min=1,dive"`
}

// EntityDecl mirrors Metadata in declarative form.
type EntityDecl struct {
	Table         string             `yaml:"table" validate:"required"`
	Discriminator *DiscriminatorDecl `yaml:"discriminator,omitempty"`
	Properties    []PropertyDecl     `yaml:"properties" validate:"required,min=1,dive"`
	GSIs          []GSIDecl          `yaml:"gsis,omitempty" validate:"dive"`
}

// PropertyDecl mirrors Property.
type PropertyDecl struct {
	Name         string   `yaml:"name" validate:"required"`
	Attribute    string   `yaml:"attribute,omitempty"`
	Type         string   `yaml:"type" validate:"required,oneof=S N B BOOL T SS NS L M"`
	Nullable     bool     `yaml:"nullable,omitempty"`
	Format       string   `yaml:"format,omitempty"`
	Timezone     string   `yaml:"timezone,omitempty" validate:"omitempty,oneof=utc local"`
	PartitionKey bool     `yaml:"partitionKey,omitempty"`
	SortKey      bool     `yaml:"sortKey,omitempty"`
	IndexKeys    []string `yaml:"indexKeys,omitempty"`
	Sensitive    bool     `yaml:"sensitive,omitempty"`
	Encrypted    bool     `yaml:"encrypted,omitempty"`
}

// DiscriminatorDecl carries either an exact value or a wildcard pattern.
type DiscriminatorDecl struct {
	Attribute string `yaml:"attribute" validate:"required"`
	Value     string `yaml:"value,omitempty"`
	Pattern   string `yaml:"pattern,omitempty"`
}

// GSIDecl mirrors GSI.
type GSIDecl struct {
	Name          string             `yaml:"name" validate:"required"`
	PartitionKey  string             `yaml:"partitionKey" validate:"required"`
	SortKey       string             `yaml:"sortKey,omitempty"`
	Discriminator *DiscriminatorDecl `yaml:"discriminator,omitempty"`
}

var validate = validator.New()

// Load reads a YAML schema and builds Metadata for every declared
// entity, keyed by table name.
func Load(r io.Reader) (map[string]*Metadata, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	out := make(map[string]*Metadata, len(s.Entities))
	for _, decl := range s.Entities {
		m, err := decl.Build()
		if err != nil {
			return nil, err
		}
		if _, ok := out[m.TableName()]; ok {
			return nil, fmt.Errorf("duplicate entity for table %q", m.TableName())
		}
		out[m.TableName()] = m
	}
	return out, nil
}

// LoadFile is Load over a file path.
func LoadFile(path string) (map[string]*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Build converts the declaration into validated Metadata.
func (d EntityDecl) Build() (*Metadata, error) {
	b := New(d.Table)
	for _, p := range d.Properties {
		b.Property(Property{
			Name:         p.Name,
			Attribute:    p.Attribute,
			Type:         ValueType(p.Type),
			Nullable:     p.Nullable,
			Format:       p.Format,
			Timezone:     TimezoneKind(p.Timezone),
			PartitionKey: p.PartitionKey,
			SortKey:      p.SortKey,
			IndexKeys:    p.IndexKeys,
			Sensitive:    p.Sensitive,
			Encrypted:    p.Encrypted,
		})
	}
	if d.Discriminator != nil {
		disc, err := NewDiscriminator(d.Discriminator.Attribute, d.Discriminator.Value, d.Discriminator.Pattern)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", d.Table, err)
		}
		b.Discriminator(disc)
	}
	for _, g := range d.GSIs {
		gsi := GSI{Name: g.Name, PartitionKey: g.PartitionKey, SortKey: g.SortKey}
		if g.Discriminator != nil {
			disc, err := NewDiscriminator(g.Discriminator.Attribute, g.Discriminator.Value, g.Discriminator.Pattern)
			if err != nil {
				return nil, fmt.Errorf("entity %q GSI %q: %w", d.Table, g.Name, err)
			}
			gsi.Discriminator = disc
		}
		b.GSI(gsi)
	}
	return b.Build()
}
