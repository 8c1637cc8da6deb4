package rdf

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// fieldDoc is the structured form of an annotated Field.
type fieldDoc struct {
	Value      string `json:"value" yaml:"value"`
	Units      string `json:"units,omitempty" yaml:"units,omitempty"`
	Dimensions string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Element    string `json:"element,omitempty" yaml:"element,omitempty"`
	Comment    string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

func (f Field) annotated() bool {
	return f.Units != "" || f.Dimensions != "" || f.Element != "" || f.Comment != ""
}

func (f Field) doc() fieldDoc {
	return fieldDoc{Value: f.Value, Units: f.Units, Dimensions: f.Dimensions, Element: f.Element, Comment: f.Comment}
}

func (d fieldDoc) field() Field {
	return Field{Value: d.Value, Units: d.Units, Dimensions: d.Dimensions, Element: d.Element, Comment: d.Comment}
}

// MarshalJSON renders an unannotated field as a string and an annotated one
// as an object.
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.annotated() {
		return json.Marshal(f.Value)
	}
	return json.Marshal(f.doc())
}

func (f *Field) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Field{Value: s}
		return nil
	}
	var d fieldDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*f = d.field()
	return nil
}

// MarshalJSON renders the mapping as a JSON object in key order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.fields[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the document's key order.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("rdf: expected JSON object, got %v", tok)
	}
	out := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("rdf: expected string key, got %v", tok)
		}
		var f Field
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		out.Set(key, f)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = *out
	return nil
}

// MarshalYAML renders the mapping as an ordered YAML mapping.
func (m *Mapping) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for k, f := range m.All() {
		var val yaml.Node
		if f.annotated() {
			if err := val.Encode(f.doc()); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
		} else {
			val = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Value}
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}

// UnmarshalYAML reads a YAML mapping, keeping the document's key order.
// Scalar values of any type are stored as their source text.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("rdf: line %d: expected YAML mapping", node.Line)
	}
	out := New()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			out.Set(key.Value, val.Value)
		case yaml.SequenceNode:
			var items []string
			if err := val.Decode(&items); err != nil {
				return fmt.Errorf("%s: %w", key.Value, err)
			}
			out.Set(key.Value, items)
		default:
			var d fieldDoc
			if err := val.Decode(&d); err != nil {
				return fmt.Errorf("%s: %w", key.Value, err)
			}
			out.Set(key.Value, d.field())
		}
	}
	*m = *out
	return nil
}
