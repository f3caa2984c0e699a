// Package entity describes the shape of an entity stored in a DynamoDB
// table: its attributes, key roles, per-attribute formatting rules and
// security flags, and the discriminators that distinguish entity types
// sharing a table or index.
//
// Metadata is built once at startup (via Builder or a YAML declaration)
// and is read-only afterwards, so a single instance is safe to share
// across concurrent compilations.
package entity

import "fmt"

// ValueType is the declared type of a property's value.
type ValueType string

const (
	TypeString    ValueType = "S"
	TypeNumber    ValueType = "N"
	TypeBinary    ValueType = "B"
	TypeBool      ValueType = "BOOL"
	TypeTime      ValueType = "T" // serialized as a string attribute
	TypeStringSet ValueType = "SS"
	TypeNumberSet ValueType = "NS"
	TypeList      ValueType = "L"
	TypeMap       ValueType = "M"
)

// TimezoneKind controls how time values are normalized before formatting.
type TimezoneKind string

const (
	TimezoneNone  TimezoneKind = ""
	TimezoneUTC   TimezoneKind = "utc"
	TimezoneLocal TimezoneKind = "local"
)

// Property describes a single mapped field of an entity.
// Constructed once, never mutated.
type Property struct {
	// Name is the logical property name used by application code.
	Name string
	// Attribute is the physical attribute name stored in DynamoDB.
	Attribute string
	Type      ValueType
	Nullable  bool

	// Format renders the value as a string attribute instead of its
	// native type. "F<n>" fixes a number to n decimal places; for time
	// properties it is a Go time layout (default RFC3339).
	Format string
	// Timezone normalizes time values before formatting.
	Timezone TimezoneKind

	PartitionKey bool
	SortKey      bool
	// IndexKeys lists the GSI names this property is a key of.
	IndexKeys []string

	// Sensitive values are redacted from diagnostics.
	Sensitive bool
	// Encrypted values must pass through an encryption provider
	// before transmission.
	Encrypted bool
}

// IsPartOfIndex reports whether the property keys the named GSI.
func (p *Property) IsPartOfIndex(index string) bool {
	for _, idx := range p.IndexKeys {
		if idx == index {
			return true
		}
	}
	return false
}

// GSI describes a Global Secondary Index on the entity's table.
type GSI struct {
	Name string
	// PartitionKey and SortKey are physical attribute names.
	PartitionKey string
	SortKey      string
	// Discriminator scoped to this index. Independent of the table-level
	// discriminator and may differ from it.
	Discriminator *Discriminator
}

// Metadata is the immutable description of one entity type.
type Metadata struct {
	table         string
	props         []Property
	byName        map[string]*Property
	byAttribute   map[string]*Property
	partition     *Property
	sort          *Property
	discriminator *Discriminator
	gsis          map[string]*GSI
}

// TableName returns the physical table the entity is stored in.
func (m *Metadata) TableName() string { return m.table }

// Properties returns the ordered property list.
func (m *Metadata) Properties() []Property { return m.props }

// Property looks up a property by its logical name.
func (m *Metadata) Property(name string) (*Property, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// ByAttribute looks up a property by its physical attribute name.
func (m *Metadata) ByAttribute(attr string) (*Property, bool) {
	p, ok := m.byAttribute[attr]
	return p, ok
}

// PartitionKey returns the partition key property, or nil if the entity
// declares none.
func (m *Metadata) PartitionKey() *Property { return m.partition }

// SortKey returns the sort key property, or nil.
func (m *Metadata) SortKey() *Property { return m.sort }

// Discriminator returns the table-level discriminator, or nil.
func (m *Metadata) Discriminator() *Discriminator { return m.discriminator }

// GSI returns the named index definition.
func (m *Metadata) GSI(name string) (*GSI, bool) {
	g, ok := m.gsis[name]
	return g, ok
}

// DiscriminatorFor returns the discriminator in effect for the given
// scope: the index-scoped one when index is non-empty and the GSI
// declares its own, otherwise the table-level one.
func (m *Metadata) DiscriminatorFor(index string) *Discriminator {
	if index != "" {
		if g, ok := m.gsis[index]; ok && g.Discriminator != nil {
			return g.Discriminator
		}
	}
	return m.discriminator
}

func (m *Metadata) String() string {
	return fmt.Sprintf("entity(%s, %d properties)", m.table, len(m.props))
}
