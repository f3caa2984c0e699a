package entity

import "fmt"

// Builder assembles Metadata. Methods chain; validation happens in Build.
type Builder struct {
	meta Metadata
	errs []error
}

// New starts a builder for an entity stored in the given table.
func New(table string) *Builder {
	return &Builder{meta: Metadata{
		table:       table,
		byName:      make(map[string]*Property),
		byAttribute: make(map[string]*Property),
		gsis:        make(map[string]*GSI),
	}}
}

// Property adds a mapped field.
func (b *Builder) Property(p Property) *Builder {
	b.meta.props = append(b.meta.props, p)
	return b
}

// Discriminator sets the table-level discriminator.
func (b *Builder) Discriminator(d *Discriminator) *Builder {
	b.meta.discriminator = d
	return b
}

// GSI registers a Global Secondary Index.
func (b *Builder) GSI(g GSI) *Builder {
	if _, ok := b.meta.gsis[g.Name]; ok {
		b.errs = append(b.errs, fmt.Errorf("duplicate GSI %q", g.Name))
		return b
	}
	b.meta.gsis[g.Name] = &g
	return b
}

// Build validates the collected definition and freezes it.
func (b *Builder) Build() (*Metadata, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("entity %q: %w", b.meta.table, b.errs[0])
	}
	if b.meta.table == "" {
		return nil, fmt.Errorf("entity requires a table name")
	}
	if len(b.meta.props) == 0 {
		return nil, fmt.Errorf("entity %q has no properties", b.meta.table)
	}
	for i := range b.meta.props {
		p := &b.meta.props[i]
		if p.Name == "" {
			return nil, fmt.Errorf("entity %q: property %d has no name", b.meta.table, i)
		}
		if p.Attribute == "" {
			p.Attribute = p.Name
		}
		if _, ok := b.meta.byName[p.Name]; ok {
			return nil, fmt.Errorf("entity %q: duplicate property %q", b.meta.table, p.Name)
		}
		if _, ok := b.meta.byAttribute[p.Attribute]; ok {
			return nil, fmt.Errorf("entity %q: duplicate attribute %q", b.meta.table, p.Attribute)
		}
		b.meta.byName[p.Name] = p
		b.meta.byAttribute[p.Attribute] = p
		if p.PartitionKey {
			if b.meta.partition != nil {
				return nil, fmt.Errorf("entity %q: partition key declared on both %q and %q",
					b.meta.table, b.meta.partition.Name, p.Name)
			}
			b.meta.partition = p
		}
		if p.SortKey {
			if b.meta.sort != nil {
				return nil, fmt.Errorf("entity %q: sort key declared on both %q and %q",
					b.meta.table, b.meta.sort.Name, p.Name)
			}
			b.meta.sort = p
		}
	}
	for name, g := range b.meta.gsis {
		if g.PartitionKey == "" {
			return nil, fmt.Errorf("entity %q: GSI %q has no partition key", b.meta.table, name)
		}
	}
	return &b.meta, nil
}

// MustBuild is Build for startup-time registration, where a malformed
// definition is a programming error.
func (b *Builder) MustBuild() *Metadata {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}
