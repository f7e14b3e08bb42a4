// Package jsonld implements the minimal JSON-LD/Hydra envelope HyprCAT
// speaks on the wire: a tagged-variant map plus typed accessors, rather
// than a class hierarchy of resource types.
package jsonld

import (
	"encoding/json"
	"fmt"
)

// Node wraps a raw JSON-LD resource body and exposes typed accessors.
// The underlying representation stays a map so arbitrary properties
// round-trip untouched even when this package doesn't know their shape.
type Node struct {
	raw map[string]interface{}
}

// NewNode wraps an existing map. The map is used by reference: mutating
// the Node mutates the caller's map too, the same reference semantics
// every other map-backed structure in this codebase relies on.
func NewNode(raw map[string]interface{}) Node {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return Node{raw: raw}
}

// New creates an empty node seeded with @context, @id and @type.
func New(id string, types ...string) Node {
	n := NewNode(map[string]interface{}{
		"@context": "https://hyprcat.dev/ns/core#",
		"@id":      id,
	})
	if len(types) == 1 {
		n.raw["@type"] = types[0]
	} else if len(types) > 1 {
		n.raw["@type"] = types
	}
	return n
}

// Raw returns the underlying map for serialization.
func (n Node) Raw() map[string]interface{} { return n.raw }

// ID returns the @id property, or "" if absent.
func (n Node) ID() string {
	v, _ := n.raw["@id"].(string)
	return v
}

// Types returns the @type property normalized to a slice, regardless of
// whether it was stored as a single string or an array in the source.
func (n Node) Types() []string {
	switch t := n.raw["@type"].(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// HasType reports whether the node declares the given @type.
func (n Node) HasType(t string) bool {
	for _, got := range n.Types() {
		if got == t {
			return true
		}
	}
	return false
}

// Get returns a raw property value and whether it was present.
func (n Node) Get(prop string) (interface{}, bool) {
	v, ok := n.raw[prop]
	return v, ok
}

// GetString returns a string property, or "" if absent or not a string.
func (n Node) GetString(prop string) string {
	v, _ := n.raw[prop].(string)
	return v
}

// GetFloat returns a numeric property as float64. JSON numbers decode to
// float64 by default, so this also covers integer-valued properties.
func (n Node) GetFloat(prop string) (float64, bool) {
	v, ok := n.raw[prop]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Set assigns prop on the node, mutating the wrapped map in place.
func (n Node) Set(prop string, value interface{}) {
	n.raw[prop] = value
}

// Operations returns the hydra:operation affordances attached to the
// node, each wrapped as its own Node for accessor access.
func (n Node) Operations() []Node {
	raw, ok := n.raw["hydra:operation"]
	if !ok {
		return nil
	}
	return asNodeSlice(raw)
}

// Links returns the hydra:link collection.
func (n Node) Links() []Node {
	raw, ok := n.raw["hydra:link"]
	if !ok {
		return nil
	}
	return asNodeSlice(raw)
}

// Members returns the hydra:member collection.
func (n Node) Members() []Node {
	raw, ok := n.raw["hydra:member"]
	if !ok {
		return nil
	}
	return asNodeSlice(raw)
}

func asNodeSlice(raw interface{}) []Node {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]Node, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, NewNode(m))
			}
		}
		return out
	case map[string]interface{}:
		return []Node{NewNode(v)}
	default:
		return nil
	}
}

// MarshalJSON lets Node be embedded directly in response bodies.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.raw)
}

// UnmarshalJSON decodes a JSON-LD body directly into a Node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("jsonld: decode node: %w", err)
	}
	n.raw = raw
	return nil
}

// Clone deep-copies the node through a JSON round trip, used when a
// store must hand back a value isolated from its internal map.
func (n Node) Clone() Node {
	data, err := json.Marshal(n.raw)
	if err != nil {
		return NewNode(map[string]interface{}{})
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(data, &raw)
	return NewNode(raw)
}
