package metainfo

import (
	"encoding/json"
	"fmt"
)

// Wire shape: every value is an object with a "type" discriminator plus the
// kind's own fields, e.g. {"type":"string","value":"hg38"}.

type wireValue struct {
	Type Kind `json:"type"`

	Value     json.RawMessage   `json:"value,omitempty"`
	Date      *int64            `json:"date,omitempty"`
	Text      string            `json:"text,omitempty"`
	URL       string            `json:"url,omitempty"`
	Format    map[string]string `json:"format,omitempty"`
	Accession string            `json:"accession,omitempty"`
	Direction string            `json:"direction,omitempty"`
}

// EncodeValue renders one value in the wire shape.
func EncodeValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case StringValue:
		return marshalScalar(KindString, val.Value)
	case IntegerValue:
		return marshalScalar(KindInteger, val.Value)
	case DecimalValue:
		return marshalScalar(KindDecimal, val.Value)
	case BooleanValue:
		return marshalScalar(KindBoolean, val.Value)
	case MemorySizeValue:
		return marshalScalar(KindMemorySize, val.Bytes)
	case DateTimeValue:
		millis := val.Millis
		return json.Marshal(wireValue{Type: KindDateTime, Date: &millis})
	case ExternalLink:
		return json.Marshal(wireValue{Type: KindExternalLink, Text: val.Text, URL: val.URL, Format: val.Format})
	case FileReference:
		return json.Marshal(wireValue{Type: KindFileReference, Accession: val.Accession, Direction: val.Direction})
	case EmptyValue:
		return json.Marshal(wireValue{Type: KindEmpty})
	default:
		return nil, fmt.Errorf("unknown metainfo value type %T", v)
	}
}

func marshalScalar(kind Kind, value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: kind, Value: raw})
}

// DecodeValue parses one wire value.
func DecodeValue(data []byte) (Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("metainfo value: %w", err)
	}
	switch w.Type {
	case KindString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, err
		}
		return StringValue{Value: s}, nil
	case KindInteger:
		var n int64
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return nil, err
		}
		return IntegerValue{Value: n}, nil
	case KindDecimal:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, err
		}
		return DecimalValue{Value: s}, nil
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return nil, err
		}
		return BooleanValue{Value: b}, nil
	case KindMemorySize:
		var n int64
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return nil, err
		}
		return MemorySizeValue{Bytes: n}, nil
	case KindDateTime:
		if w.Date == nil {
			return nil, fmt.Errorf("datetime value missing date field")
		}
		return DateTimeValue{Millis: *w.Date}, nil
	case KindExternalLink:
		return ExternalLink{Text: w.Text, URL: w.URL, Format: w.Format}, nil
	case KindFileReference:
		return FileReference{Accession: w.Accession, Direction: w.Direction}, nil
	case KindEmpty:
		return EmptyValue{}, nil
	default:
		return nil, fmt.Errorf("unknown metainfo value type %q", w.Type)
	}
}

// MarshalJSON renders the whole record as {key: [value, ...], ...}.
func (m Metainfo) MarshalJSON() ([]byte, error) {
	out := make(map[string][]json.RawMessage, len(m))
	for key, values := range m {
		encoded := make([]json.RawMessage, 0, len(values))
		for _, v := range values {
			raw, err := EncodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			encoded = append(encoded, raw)
		}
		out[key] = encoded
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the record wire shape.
func (m *Metainfo) UnmarshalJSON(data []byte) error {
	var in map[string][]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Metainfo, len(in))
	for key, raws := range in {
		values := make([]Value, 0, len(raws))
		for _, raw := range raws {
			v, err := DecodeValue(raw)
			if err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			values = append(values, v)
		}
		out[key] = values
	}
	*m = out
	return nil
}
