package db

// IndexBuilder is a fluent builder for FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index over hashes.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Tag adds single-valued, case-insensitive TAG attributes.
func (b *IndexBuilder) Tag(names ...string) *IndexBuilder {
	for _, n := range names {
		b.def.Tags = append(b.def.Tags, TagField{Name: n})
	}
	return b
}

// MultiTag adds a TAG attribute whose values are joined by TagSeparator.
func (b *IndexBuilder) MultiTag(name string) *IndexBuilder {
	b.def.Tags = append(b.def.Tags, TagField{Name: name, Separator: TagSeparator})
	return b
}

// Vector sets the HNSW vector attribute stored in VectorField.
// Non-positive m or efConstruct fall back to the defaults.
func (b *IndexBuilder) Vector(alias string, dim, m, efConstruct int) *IndexBuilder {
	if m <= 0 {
		m = DefaultHNSWM
	}
	if efConstruct <= 0 {
		efConstruct = DefaultHNSWEFConstruct
	}
	b.def.Vector = VectorSpec{Field: VectorField, Alias: alias, Dim: dim, M: m, EFConstruct: efConstruct}
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}
