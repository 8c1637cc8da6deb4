// Package rdfpb converts RDF mappings to and from protobuf well-known types so
// they can travel over gRPC without generated code.
//
// A mapping becomes a ListValue of record structs, which keeps key order:
//
//	[{"key": "RANGE", "value": "2000", "units": "m"}, ...]
package rdfpb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/groundproc/rdf"
)

var ErrBadRecord = errors.New("malformed record")

const (
	fieldKey        = "key"
	fieldValue      = "value"
	fieldUnits      = "units"
	fieldDimensions = "dimensions"
	fieldElement    = "element"
	fieldComment    = "comment"
)

// RecordStruct encodes one record. Empty annotations are omitted.
func RecordStruct(r rdf.Record) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldKey:   structpb.NewStringValue(r.Key),
		fieldValue: structpb.NewStringValue(r.Value),
	}
	for name, v := range map[string]string{
		fieldUnits:      r.Units,
		fieldDimensions: r.Dimensions,
		fieldElement:    r.Element,
		fieldComment:    r.Comment,
	} {
		if v != "" {
			fields[name] = structpb.NewStringValue(v)
		}
	}
	return &structpb.Struct{Fields: fields}
}

// ToList encodes m as an ordered list of record structs.
func ToList(m *rdf.Mapping) *structpb.ListValue {
	records := m.Records()
	values := make([]*structpb.Value, 0, len(records))
	for _, r := range records {
		values = append(values, structpb.NewStructValue(RecordStruct(r)))
	}
	return &structpb.ListValue{Values: values}
}

// FromList decodes a list produced by ToList.
func FromList(l *structpb.ListValue) (*rdf.Mapping, error) {
	m := rdf.New()
	for i, v := range l.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("%w %d: not a struct", ErrBadRecord, i)
		}
		key := s.GetFields()[fieldKey].GetStringValue()
		if key == "" {
			return nil, fmt.Errorf("%w %d: missing key", ErrBadRecord, i)
		}
		text := func(name string) string { return s.GetFields()[name].GetStringValue() }
		m.Set(key, rdf.Field{
			Value:      text(fieldValue),
			Units:      text(fieldUnits),
			Dimensions: text(fieldDimensions),
			Element:    text(fieldElement),
			Comment:    text(fieldComment),
		})
	}
	return m, nil
}

// ToStruct encodes m as a key -> value struct. Key order and annotations are
// dropped; use ToList when either matters.
func ToStruct(m *rdf.Mapping) *structpb.Struct {
	fields := make(map[string]*structpb.Value, m.Len())
	for k, f := range m.All() {
		fields[k] = structpb.NewStringValue(f.Value)
	}
	return &structpb.Struct{Fields: fields}
}

// Marshal renders m as protojson.
func Marshal(m *rdf.Mapping) ([]byte, error) {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(ToList(m))
}

// Unmarshal parses protojson produced by Marshal.
func Unmarshal(data []byte) (*rdf.Mapping, error) {
	var l structpb.ListValue
	if err := protojson.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return FromList(&l)
}
