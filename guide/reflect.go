package guide

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
)

// For derives a Guide from a struct type by reflecting its JSON schema.
//
// Field names follow json tags, descriptions come from jsonschema
// description tags, and enum tags become ValidValues. Fields not listed
// as required by the schema (e.g. tagged omitempty) are marked optional.
// Only flat shapes are supported: primitive fields and arrays of
// primitives. A nested object or array of objects is an error, since
// the descriptor format cannot express it.
func For[T any]() (Guide, error) {
	// ExpandedStruct assumes a struct root; reflecting anything else
	// panics inside the library, so reject non-structs up front.
	rt := reflect.TypeOf((*T)(nil)).Elem()
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("guide: type %T does not reflect to an object schema", *new(T))
	}

	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.ReflectFromType(rt)
	if s == nil || s.Type != "object" || s.Properties == nil {
		return nil, fmt.Errorf("guide: type %T does not reflect to an object schema", *new(T))
	}

	g := Guide{}
	for el := s.Properties.Oldest(); el != nil; el = el.Next() {
		d, err := descriptorFor(el.Value)
		if err != nil {
			return nil, fmt.Errorf("guide: field %q: %w", el.Key, err)
		}
		d.IsOptional = !lo.Contains(s.Required, el.Key)
		g[el.Key] = d
	}
	return g, nil
}

// MustFor is For but panics on error, for guides built at program start.
func MustFor[T any]() Guide {
	g, err := For[T]()
	if err != nil {
		panic(err)
	}
	return g
}

// descriptorFor maps one reflected property schema onto a flat Descriptor.
func descriptorFor(s *jsonschema.Schema) (Descriptor, error) {
	if s == nil {
		return Descriptor{}, fmt.Errorf("missing property schema")
	}

	d := Descriptor{Description: s.Description}

	switch s.Type {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		d.Type = s.Type
	case "array":
		if s.Items == nil {
			return Descriptor{}, fmt.Errorf("array without item type")
		}
		switch s.Items.Type {
		case TypeString, TypeInteger, TypeNumber, TypeBoolean:
			d.Type = ArrayOf(s.Items.Type)
		default:
			return Descriptor{}, fmt.Errorf("unsupported array element type %q", s.Items.Type)
		}
	default:
		return Descriptor{}, fmt.Errorf("unsupported type %q", s.Type)
	}

	if len(s.Enum) > 0 {
		d.ValidValues = lo.Map(s.Enum, func(v any, _ int) string {
			return fmt.Sprint(v)
		})
	}

	return d, nil
}
