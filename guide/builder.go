package guide

// Builder assembles a Guide one field at a time.
//
//	g := guide.NewBuilder().
//		Property("destination", guide.TypeString, "Country being described").
//		OptionalProperty("population", guide.TypeInteger, "Population, if known").
//		Build()
type Builder struct {
	fields Guide
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{fields: Guide{}}
}

// Property adds a required field with the given type tag and description.
func (b *Builder) Property(name, typ, description string) *Builder {
	b.fields[name] = Descriptor{Type: typ, Description: description}
	return b
}

// OptionalProperty adds an optional field with the given type tag and description.
func (b *Builder) OptionalProperty(name, typ, description string) *Builder {
	b.fields[name] = Descriptor{Type: typ, Description: description, IsOptional: true}
	return b
}

// ArrayProperty adds a required field holding an array of elem values.
func (b *Builder) ArrayProperty(name, elem, description string) *Builder {
	b.fields[name] = Descriptor{Type: ArrayOf(elem), Description: description}
	return b
}

// EnumProperty adds a required string field restricted to the given values.
func (b *Builder) EnumProperty(name, description string, values ...string) *Builder {
	d := Descriptor{Type: TypeString, Description: description}
	if len(values) > 0 {
		d.ValidValues = values
	}
	b.fields[name] = d
	return b
}

// OptionalEnumProperty adds an optional string field restricted to the given values.
func (b *Builder) OptionalEnumProperty(name, description string, values ...string) *Builder {
	d := Descriptor{Type: TypeString, Description: description, IsOptional: true}
	if len(values) > 0 {
		d.ValidValues = values
	}
	b.fields[name] = d
	return b
}

// Build returns the assembled Guide. The Builder can keep being used
// afterwards; later calls modify the same underlying map.
func (b *Builder) Build() Guide {
	return b.fields
}
