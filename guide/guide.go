// Package guide describes the JSON shape a model is asked to produce.
//
// A Guide maps response field names to flat Descriptors: primitive type,
// human-readable description, optionality, and an optional closed set of
// allowed values. Guides are rendered into prompts so the model knows
// what to emit, and consulted during partial extraction to decide which
// truncated values are safe to repair.
package guide

import (
	"encoding/json"
)

// Type tags used in Descriptor.Type.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// ArrayOf returns the type tag describing an array of elem values,
// e.g. ArrayOf(TypeString) is "array of strings".
func ArrayOf(elem string) string {
	return "array of " + elem + "s"
}

// Descriptor describes a single field of the expected response object.
type Descriptor struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	IsOptional  bool     `json:"isOptional"`
	ValidValues []string `json:"validValues,omitempty"` // set only for closed enumerations
}

// Guide maps response field names to their descriptors.
type Guide map[string]Descriptor

// JSON renders the guide as indented JSON with keys in sorted order, the
// form embedded into prompts. Rendering the same guide always produces
// the same text.
func (g Guide) JSON() string {
	out, _ := json.MarshalIndent(g, "", "  ")
	return string(out)
}
